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

// Package expr implements the symbolic expression term model consumed by
// the interpolation tree: immutable, typed bitvector terms with a closed
// set of kinds, structural children, and a bit-width.
//
// Terms are not hash-consed in the full sense of the original KLEE
// implementation; instead equality and ordering are computed structurally
// (see Compare). This is sufficient for every operation the core performs
// on expressions: membership tests, deduplication, and the "compare==0"
// term-identity check markPathCondition relies on.
package expr

import (
	"fmt"

	"github.com/kr/pretty"
)

// Kind identifies the shape of a term.
type Kind int

const (
	KConst Kind = iota
	KRead       // array read: Arr[Index]
	KWrite      // array write: Arr[Index] = Value
	KEq
	KNe
	KAnd
	KOr
	KNot
	KSlt
	KSle
	KSgt
	KSge
	KUlt
	KUle
	KAdd
	KSub
	KMul
	KExists
)

//go:generate stringer -type=Kind

func (k Kind) String() string {
	switch k {
	case KConst:
		return "Const"
	case KRead:
		return "Read"
	case KWrite:
		return "Write"
	case KEq:
		return "Eq"
	case KNe:
		return "Ne"
	case KAnd:
		return "And"
	case KOr:
		return "Or"
	case KNot:
		return "Not"
	case KSlt:
		return "Slt"
	case KSle:
		return "Sle"
	case KSgt:
		return "Sgt"
	case KSge:
		return "Sge"
	case KUlt:
		return "Ult"
	case KUle:
		return "Ule"
	case KAdd:
		return "Add"
	case KSub:
		return "Sub"
	case KMul:
		return "Mul"
	case KExists:
		return "Exists"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// BoolWidth is the width used for every term with boolean kind (equality,
// comparisons, conjunctions/disjunctions), mirroring klee's Expr::Bool.
const BoolWidth uint32 = 1

// Expr is an immutable symbolic term. Implementations are value types or
// pointers that are safe to share; callers never mutate a term in place.
type Expr interface {
	// Kind returns the term's tag.
	Kind() Kind
	// NumKids returns the number of structural children.
	NumKids() int
	// Kid returns the i'th structural child. It panics if i is out of range.
	Kid(i int) Expr
	// Width returns the bit-width of the term's result.
	Width() uint32
	// String renders the term for diagnostics and the search-tree observer.
	String() string
}

// Compare imposes a total, structural order on terms: two terms compare
// equal (0) iff they have the same kind, width and recursively-equal
// children (with kind-specific leaf comparisons for Const and array
// identity). It is the structural stand-in for the pointer identity
// hash-consing gives the original representation.
func Compare(a, b Expr) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.Kind() != b.Kind() {
		return int(a.Kind()) - int(b.Kind())
	}
	if a.Width() != b.Width() {
		if a.Width() < b.Width() {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case *Const:
		y := b.(*Const)
		switch {
		case x.Value < y.Value:
			return -1
		case x.Value > y.Value:
			return 1
		default:
			return 0
		}
	case *Read:
		y := b.(*Read)
		if c := compareArray(x.Arr, y.Arr); c != 0 {
			return c
		}
		return Compare(x.Index, y.Index)
	case *Write:
		y := b.(*Write)
		if c := compareArray(x.Arr, y.Arr); c != 0 {
			return c
		}
	case *Exists:
		y := b.(*Exists)
		if len(x.Vars) != len(y.Vars) {
			return len(x.Vars) - len(y.Vars)
		}
		for i := range x.Vars {
			if c := compareArray(x.Vars[i], y.Vars[i]); c != 0 {
				return c
			}
		}
		return Compare(x.Body, y.Body)
	}
	// Every other kind is an n-ary structural node: compare arity, then
	// each child in order.
	if a.NumKids() != b.NumKids() {
		return a.NumKids() - b.NumKids()
	}
	for i := 0; i < a.NumKids(); i++ {
		if c := Compare(a.Kid(i), b.Kid(i)); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	return Compare(a, b) == 0
}

// Dump renders e's kind, width and children with kr/pretty, recursing
// through the full term tree. Unlike String, which produces the
// flattened diagnostic rendering path conditions use, Dump shows the
// term's structure and is meant for ad hoc inspection, e.g. from a CLI
// debug flag or a failing test.
func Dump(e Expr) string {
	return pretty.Sprint(dumpNode(e))
}

type dumpTree struct {
	Kind  string
	Width uint32
	Kids  []dumpTree
}

func dumpNode(e Expr) dumpTree {
	if e == nil {
		return dumpTree{Kind: "<nil>"}
	}
	d := dumpTree{Kind: e.Kind().String(), Width: e.Width()}
	for i := 0; i < e.NumKids(); i++ {
		d.Kids = append(d.Kids, dumpNode(e.Kid(i)))
	}
	return d
}

func compareArray(a, b *Array) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	return 0
}
