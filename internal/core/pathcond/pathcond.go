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

// Package pathcond implements the per-node path-condition chain: a
// singly-linked list of branch constraints, shared with ancestors via its
// tail, and the two-phase marking that decides which of those constraints
// belong in an interpolant. It is the Go counterpart of klee's
// PathCondition and PathConditionMarker.
package pathcond

import (
	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
)

// Atom is one link of a path-condition chain. The chain is shared with
// ancestors: an ITreeNode's head points at its local suffix, and Tail
// points into the parent's chain, so an atom's owner is the deepest node
// that created it.
type Atom struct {
	Constraint       expr.Expr
	ShadowConstraint expr.Expr
	Shadowed         bool
	Condition        *dependency.VersionedValue
	InInterpolant    bool
	Tail             *Atom
}

// New prepends a new atom recording constraint onto tail. condition may be
// nil when the constraint did not arise from reading a single value (e.g.
// a conjunction introduced directly rather than from a branch).
func New(constraint expr.Expr, condition *dependency.VersionedValue, tail *Atom) *Atom {
	return &Atom{Constraint: constraint, Condition: condition, Tail: tail}
}

// IncludeInInterpolant marks a as belonging to the interpolant and, if it
// was produced from a VersionedValue, asks dep to mark every value that
// flows into it as reachable in g.
func (a *Atom) IncludeInInterpolant(dep *dependency.Dependency, g *dependency.AllocationGraph) {
	a.InInterpolant = true
	if a.Condition != nil {
		dep.MarkAllValues(g, a.Condition.Value)
	}
}

// Walk calls fn for every atom from head to the root of the chain, in
// that order.
func Walk(head *Atom, fn func(*Atom)) {
	for a := head; a != nil; a = a.Tail {
		fn(a)
	}
}

// PackInterpolant walks the chain from head outward and AND-combines, in
// that order, the shadow constraint of every atom marked InInterpolant,
// building each shadow constraint lazily (and caching it) via r. It
// returns nil if no atom in the chain is marked. This is the Go
// counterpart of PathCondition::packInterpolant.
func PackInterpolant(head *Atom, r *expr.Renaming) expr.Expr {
	var parts []expr.Expr
	Walk(head, func(a *Atom) {
		if !a.InInterpolant {
			return
		}
		if !a.Shadowed {
			a.ShadowConstraint = r.Rename(a.Constraint)
			a.Shadowed = true
		}
		parts = append(parts, a.ShadowConstraint)
	})
	return expr.AndAll(parts...)
}
