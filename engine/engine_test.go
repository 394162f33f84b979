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

package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/internal/config"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/solver"
)

func newTestEngine() *Engine {
	return New(config.Default(), "entry", solver.NewReference())
}

func TestNewAssignsRootIDOneAndDistinctSessionIDs(t *testing.T) {
	e1 := newTestEngine()
	e2 := newTestEngine()
	qt.Assert(t, qt.Equals(uint64(e1.Root().ID()), 1))
	qt.Assert(t, qt.Equals(e1.Root().ID(), e2.Root().ID()))
	qt.Assert(t, qt.IsTrue(e1.SessionID() != e2.SessionID()))
}

func TestSplitAndAddConstraintFlowThroughToObserver(t *testing.T) {
	e := newTestEngine()
	root := e.Root()
	e.SetCurrentNode(root)

	cond := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	e.AddConstraint(root, cond, nil)

	left, right := e.Split(root, "then", "else")
	qt.Assert(t, qt.Equals(left.Parent, root))
	qt.Assert(t, qt.Equals(right.Parent, root))
	qt.Assert(t, qt.IsTrue(expr.Equal(left.PathConditionHead().Constraint, cond)))

	out := e.Render()
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "digraph search_tree {")))
}

func TestCheckCurrentStateSubsumptionDisabledByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Interpolation = false
	e := New(cfg, "entry", solver.NewReference())

	state := e.NewExecutionState(e.Root())
	qt.Assert(t, qt.IsFalse(e.CheckCurrentStateSubsumption(state)))
}

func TestMarkPathConditionNoopWhenInterpolationDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Interpolation = false
	e := New(cfg, "entry", solver.NewReference())
	root := e.Root()

	c1 := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	e.AddConstraint(root, c1, nil)
	e.MarkPathCondition(root, nil, []expr.Expr{c1})

	qt.Assert(t, qt.IsFalse(root.PathConditionHead().InInterpolant))
}

func TestMarkPathConditionFlagsMatchingAtom(t *testing.T) {
	e := newTestEngine()
	root := e.Root()

	c1 := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	e.AddConstraint(root, c1, nil)
	e.MarkPathCondition(root, nil, []expr.Expr{c1})

	qt.Assert(t, qt.IsTrue(root.PathConditionHead().InInterpolant))
}

func TestExecuteAbstractDependencyRegistersValue(t *testing.T) {
	e := newTestEngine()
	root := e.Root()
	e.ExecuteAbstractDependency(root, "v1", expr.BV(32, 42))

	vv, ok := root.Dependency().GetLatestValue("v1")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(expr.Equal(vv.Expr, expr.BV(32, 42))))
}

func TestRemoveOfRootEmptiesTree(t *testing.T) {
	e := newTestEngine()
	root := e.Root()
	e.SetCurrentNode(root)
	e.Remove(root)

	var buf strings.Builder
	e.Print(&buf)
	qt.Assert(t, qt.Equals(buf.String(), ""))
}

func TestSolverTimeoutMatchesConfig(t *testing.T) {
	e := newTestEngine()
	qt.Assert(t, qt.Equals(e.SolverTimeout(), 5*time.Second))
}

func TestExecuteAbstractBinaryAndMemoryDependencyDelegate(t *testing.T) {
	e := newTestEngine()
	root := e.Root()
	e.ExecuteAbstractDependency(root, "addr", expr.BV(32, 0))
	e.ExecuteAbstractBinaryDependency(root, "v2", expr.BV(32, 2), "addr", "addr")
	e.ExecuteAbstractMemoryDependency(root, "v3", expr.BV(32, 3), "addr")

	vv, ok := root.Dependency().GetLatestValue("v2")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(expr.Equal(vv.Expr, expr.BV(32, 2))))

	vv, ok = root.Dependency().GetLatestValue("v3")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(expr.Equal(vv.Expr, expr.BV(32, 3))))
}
