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

package pathcond

import (
	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
)

// Marker is a lightweight two-phase accept over a single Atom. During
// subsumption checking, a solver's unsat core identifies atoms that
// *could* justify subsumption: each is tentatively raised via
// MayIncludeInInterpolant. Only once the whole check succeeds does the
// caller commit every tentatively raised marker via IncludeInInterpolant,
// which is the point at which the underlying PathCondition and dependency
// graph are actually mutated. This is the Go counterpart of
// PathConditionMarker.
//
// Match is the expression an unsat core is compared against to decide
// whether to raise this marker; it is usually Atom.Constraint itself, but
// a disjunctive atom Or(p, q) gets one marker per disjunct in addition to
// one for the atom as a whole — all three sharing the same underlying
// Atom, so that a core containing just p still flags the whole Or(p, q)
// atom as belonging to the interpolant (see MakeMarkerMap in the itree
// package).
type Marker struct {
	Atom  *Atom
	Match expr.Expr

	mayInclude bool
}

// NewMarker returns a marker over atom that matches unsat-core entries
// equal to atom.Constraint itself, with no tentative flag raised.
func NewMarker(atom *Atom) *Marker {
	return &Marker{Atom: atom, Match: atom.Constraint}
}

// NewDisjunctMarker returns a marker over atom that matches unsat-core
// entries equal to match (one of atom's disjuncts) rather than atom's own
// constraint.
func NewDisjunctMarker(atom *Atom, match expr.Expr) *Marker {
	return &Marker{Atom: atom, Match: match}
}

// MayIncludeInInterpolant raises the tentative flag. It does not touch
// the underlying atom.
func (m *Marker) MayIncludeInInterpolant() {
	m.mayInclude = true
}

// IncludeInInterpolant commits the tentative flag, if raised, into the
// underlying atom and dependency graph. It is a no-op if
// MayIncludeInInterpolant was never called.
func (m *Marker) IncludeInInterpolant(dep *dependency.Dependency, g *dependency.AllocationGraph) {
	if !m.mayInclude {
		return
	}
	m.Atom.IncludeInInterpolant(dep, g)
}
