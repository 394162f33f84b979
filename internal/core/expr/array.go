// Copyright 2024 The itree Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import "fmt"

// Array is a named symbolic byte array. A "shadow" array is a freshly
// named copy introduced for alpha-renaming of existentially quantified
// variables (see Shadow).
type Array struct {
	Name        string
	IndexWidth  uint32
	ValueWidth  uint32
	IsShadow    bool
	ShadowOfArr *Array // non-nil when IsShadow, points back to the original
}

// NewArray creates a named, non-shadow array.
func NewArray(name string, indexWidth, valueWidth uint32) *Array {
	return &Array{Name: name, IndexWidth: indexWidth, ValueWidth: valueWidth}
}

// ShadowNamer mints fresh, collision-free names for shadow arrays. Callers
// typically back this with a UUID-derived suffix generator so that shadow
// arrays introduced by distinct subsumption-table entries never collide.
type ShadowNamer interface {
	NextSuffix() string
}

// Shadow returns a freshly named copy of a for use as an existentially
// quantified variable standing in for a. Two calls to Shadow on the same
// array with the same namer produce distinct arrays: each call consumes a
// new suffix.
func (a *Array) Shadow(namer ShadowNamer) *Array {
	return &Array{
		Name:        fmt.Sprintf("shadow_%s_%s", a.Name, namer.NextSuffix()),
		IndexWidth:  a.IndexWidth,
		ValueWidth:  a.ValueWidth,
		IsShadow:    true,
		ShadowOfArr: a,
	}
}

// Read is a symbolic read of a's value at Index.
type Read struct {
	Arr   *Array
	Index Expr
}

func NewRead(arr *Array, index Expr) *Read { return &Read{Arr: arr, Index: index} }

func (r *Read) Kind() Kind     { return KRead }
func (r *Read) NumKids() int   { return 1 }
func (r *Read) Width() uint32  { return r.Arr.ValueWidth }
func (r *Read) Kid(i int) Expr {
	if i == 0 {
		return r.Index
	}
	panic("expr: Read has one kid")
}
func (r *Read) String() string { return fmt.Sprintf("%s[%s]", r.Arr.Name, r.Index) }

// Write represents the array that results from writing Value at Index
// into Arr. It is retained structurally so that expressions can reference
// array updates, but the core algorithms never need to interpret it: it
// is opaque data flowing through the dependency graph like any other
// term.
type Write struct {
	Arr   *Array
	Index Expr
	Value Expr
}

func NewWrite(arr *Array, index, value Expr) *Write {
	return &Write{Arr: arr, Index: index, Value: value}
}

func (w *Write) Kind() Kind    { return KWrite }
func (w *Write) NumKids() int  { return 2 }
func (w *Write) Width() uint32 { return w.Arr.ValueWidth }
func (w *Write) Kid(i int) Expr {
	switch i {
	case 0:
		return w.Index
	case 1:
		return w.Value
	}
	panic("expr: Write has two kids")
}
func (w *Write) String() string {
	return fmt.Sprintf("%s[%s <- %s]", w.Arr.Name, w.Index, w.Value)
}

// ContainsArray reports whether e structurally references arr, directly
// via a Read/Write or through any nested child.
func ContainsArray(e Expr, arr *Array) bool {
	switch x := e.(type) {
	case nil:
		return false
	case *Read:
		return x.Arr == arr || ContainsArray(x.Index, arr)
	case *Write:
		return x.Arr == arr || ContainsArray(x.Index, arr) || ContainsArray(x.Value, arr)
	}
	for i := 0; i < e.NumKids(); i++ {
		if ContainsArray(e.Kid(i), arr) {
			return true
		}
	}
	return false
}
