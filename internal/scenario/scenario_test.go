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

package scenario

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/engine"
	"github.com/symbexec/itree/internal/config"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/solver"
)

const sample = `
root: entry
steps:
  - assign:
      var: x
      value: {const: {width: 32, value: 1}}
  - assign:
      var: y
      value: {const: {width: 32, value: 2}}
  - branch:
      condition: {op: slt, lhs: {var: x}, rhs: {var: y}}
      onVar: x
      then: then-branch
      else: else-branch
      take: then
      infeasible:
        unsatCore:
          - {op: not, lhs: {op: slt, lhs: {var: x}, rhs: {var: y}}}
  - assume:
      constraint: {op: eq, lhs: {var: x}, rhs: {const: {width: 32, value: 1}}}
  - terminate: {}
`

func newTestEngine() *engine.Engine {
	return engine.New(config.Default(), "entry", solver.NewReference())
}

func TestParseDecodesRootAndSteps(t *testing.T) {
	sc, err := Parse([]byte(sample))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sc.Root, "entry"))
	qt.Assert(t, qt.Equals(len(sc.Steps), 5))
	qt.Assert(t, qt.IsNotNil(sc.Steps[2].Branch))
	qt.Assert(t, qt.IsNotNil(sc.Steps[4].Terminate))
}

func TestExprSpecBuildResolvesVarsAndOps(t *testing.T) {
	env := map[string]expr.Expr{"x": expr.BV(32, 1)}
	spec := &ExprSpec{Op: "eq", LHS: &ExprSpec{Var: "x"}, RHS: &ExprSpec{Const: &ConstSpec{Width: 32, Value: 1}}}
	got, err := spec.Build(env)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(expr.Equal(got, expr.Eq(expr.BV(32, 1), expr.BV(32, 1)))))
}

func TestExprSpecBuildUndefinedVarErrors(t *testing.T) {
	_, err := (&ExprSpec{Var: "nope"}).Build(map[string]expr.Expr{})
	qt.Assert(t, qt.IsNotNil(err))
}

func TestRunReplaysFullTraceAndTerminates(t *testing.T) {
	sc, err := Parse([]byte(sample))
	qt.Assert(t, qt.IsNil(err))

	e := newTestEngine()
	res, err := Run(e, sc)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(res.Subsumed))
	qt.Assert(t, qt.Equals(res.StepsRun, len(sc.Steps)))
}

func TestRunBranchKeepsTakenSide(t *testing.T) {
	sc, err := Parse([]byte(`
root: entry
steps:
  - assign:
      var: x
      value: {const: {width: 32, value: 1}}
  - assign:
      var: y
      value: {const: {width: 32, value: 2}}
  - branch:
      condition: {op: slt, lhs: {var: x}, rhs: {var: y}}
      then: then-branch
      else: else-branch
      take: then
`))
	qt.Assert(t, qt.IsNil(err))

	e := newTestEngine()
	res, err := Run(e, sc)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(res.StepsRun, len(sc.Steps)))
	qt.Assert(t, qt.Equals(e.Current().ProgramPoint, "then-branch"))
}

func TestRunUnknownTakeValueErrors(t *testing.T) {
	sc, err := Parse([]byte(`
root: entry
steps:
  - branch:
      condition: {const: {width: 1, value: 1}}
      then: t
      else: e
      take: sideways
`))
	qt.Assert(t, qt.IsNil(err))

	e := newTestEngine()
	_, err = Run(e, sc)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestRunTerminateStopsReplayWithNoRemainingNode(t *testing.T) {
	sc, err := Parse([]byte(`
root: entry
steps:
  - terminate: {}
  - assume:
      constraint: {const: {width: 1, value: 1}}
`))
	qt.Assert(t, qt.IsNil(err))

	e := newTestEngine()
	res, err := Run(e, sc)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(res.StepsRun, 1))
}
