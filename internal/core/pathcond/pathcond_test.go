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

package pathcond_test

import (
	"fmt"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/pathcond"
)

type counter struct{ n int }

func (c *counter) NextSuffix() string {
	c.n++
	return fmt.Sprintf("%d", c.n)
}

func TestPackInterpolantSkipsUnmarkedAtoms(t *testing.T) {
	a1 := pathcond.New(expr.Slt(expr.BV(32, 1), expr.BV(32, 2)), nil, nil)
	a2 := pathcond.New(expr.Sle(expr.BV(32, 3), expr.BV(32, 4)), nil, a1)

	a2.InInterpolant = true
	got := pathcond.PackInterpolant(a2, expr.NewRenaming(&counter{}))

	qt.Assert(t, qt.IsTrue(expr.Equal(got, a2.Constraint)))
}

func TestPackInterpolantOrderPreservingHeadFirst(t *testing.T) {
	a1 := pathcond.New(expr.BV(1, 1), nil, nil)
	a2 := pathcond.New(expr.BV(1, 0), nil, a1)
	a1.InInterpolant = true
	a2.InInterpolant = true

	got := pathcond.PackInterpolant(a2, expr.NewRenaming(&counter{}))
	bin, ok := got.(*expr.Binary)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(bin.K, expr.KAnd))
	qt.Assert(t, qt.IsTrue(expr.Equal(bin.LHS, a2.Constraint)))
	qt.Assert(t, qt.IsTrue(expr.Equal(bin.RHS, a1.Constraint)))
}

func TestPackInterpolantReturnsNilWhenNothingMarked(t *testing.T) {
	a1 := pathcond.New(expr.BV(1, 1), nil, nil)
	got := pathcond.PackInterpolant(a1, expr.NewRenaming(&counter{}))
	qt.Assert(t, qt.IsNil(got))
}

func TestShadowConstraintBuiltOnceAndCached(t *testing.T) {
	arr := expr.NewArray("x", 32, 8)
	a := pathcond.New(expr.NewRead(arr, expr.BV(32, 0)), nil, nil)
	a.InInterpolant = true

	r := expr.NewRenaming(&counter{})
	first := pathcond.PackInterpolant(a, r)
	qt.Assert(t, qt.Equals(len(r.Replacements), 1))

	second := pathcond.PackInterpolant(a, r)
	qt.Assert(t, qt.IsTrue(first == second))
	qt.Assert(t, qt.Equals(len(r.Replacements), 1))
}

// TestMarkerCommitsOnlyWhenTentativelyRaised checks the two-phase
// commit on a single atom: committing before MayIncludeInInterpolant
// leaves the atom unmarked, and committing after it marks the atom and
// the branch value it was read from.
func TestMarkerCommitsOnlyWhenTentativelyRaised(t *testing.T) {
	dep := dependency.NewDependency(nil)
	g := dependency.NewAllocationGraph()

	cond := &dependency.VersionedValue{Value: "branch0", Expr: expr.BV(1, 1)}
	atom := pathcond.New(expr.BV(1, 1), cond, nil)
	m := pathcond.NewMarker(atom)

	m.IncludeInInterpolant(dep, g)
	qt.Assert(t, qt.IsFalse(atom.InInterpolant))

	m.MayIncludeInInterpolant()
	m.IncludeInInterpolant(dep, g)
	qt.Assert(t, qt.IsTrue(atom.InInterpolant))
	qt.Assert(t, qt.IsTrue(g.HasValue("branch0")))
}

func TestWalkVisitsHeadToRoot(t *testing.T) {
	a1 := pathcond.New(expr.BV(1, 1), nil, nil)
	a2 := pathcond.New(expr.BV(1, 0), nil, a1)
	a3 := pathcond.New(expr.BV(1, 1), nil, a2)

	var seen []*pathcond.Atom
	pathcond.Walk(a3, func(a *pathcond.Atom) { seen = append(seen, a) })

	qt.Assert(t, qt.Equals(len(seen), 3))
	qt.Assert(t, qt.IsTrue(seen[0] == a3))
	qt.Assert(t, qt.IsTrue(seen[1] == a2))
	qt.Assert(t, qt.IsTrue(seen[2] == a1))
}
