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

// Renaming carries the state needed to alpha-rename arrays to shadow
// arrays consistently across many calls: the same source array always
// maps to the same shadow array for the lifetime of a Renaming, and every
// freshly introduced shadow is appended to Replacements. A single
// Renaming is shared across a PathCondition's packInterpolant and a
// Dependency's interpolant-core-expression export so that the
// interpolant and its accompanying stores reference the same shadow
// arrays, as spec.md §4.3 requires.
type Renaming struct {
	Namer        ShadowNamer
	Replacements []*Array

	table map[*Array]*Array
}

// NewRenaming creates an empty Renaming backed by namer.
func NewRenaming(namer ShadowNamer) *Renaming {
	return &Renaming{Namer: namer, table: map[*Array]*Array{}}
}

// Array returns the shadow of a, minting and recording one on first use.
func (r *Renaming) Array(a *Array) *Array {
	if a.IsShadow {
		return a
	}
	if s, ok := r.table[a]; ok {
		return s
	}
	s := a.Shadow(r.Namer)
	r.table[a] = s
	r.Replacements = append(r.Replacements, s)
	return s
}

// Rename returns a copy of e with every array occurrence replaced by its
// shadow, per r.
func (r *Renaming) Rename(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *Const:
		return x
	case *Read:
		return NewRead(r.Array(x.Arr), r.Rename(x.Index))
	case *Write:
		return NewWrite(r.Array(x.Arr), r.Rename(x.Index), r.Rename(x.Value))
	case *Not:
		return NewNot(r.Rename(x.X))
	case *Exists:
		vars := make([]*Array, len(x.Vars))
		for i, v := range x.Vars {
			vars[i] = r.Array(v)
		}
		return NewExists(vars, r.Rename(x.Body))
	case *Binary:
		return NewBinary(x.K, r.Rename(x.LHS), r.Rename(x.RHS))
	}
	panic(fmt.Sprintf("expr: Rename: unsupported expression type %T", e))
}
