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

package solver_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/solver"
)

func TestEvaluateValidConjunction(t *testing.T) {
	g := solver.NewReference()
	query := expr.And(expr.Eq(expr.BV(32, 1), expr.BV(32, 1)), expr.Slt(expr.BV(32, 1), expr.BV(32, 2)))

	res := g.Evaluate(query)
	qt.Assert(t, qt.Equals(res.Validity, solver.Valid))
	qt.Assert(t, qt.Equals(len(res.UnsatCore), 2))
}

func TestEvaluateUnknownWhenNotFoldable(t *testing.T) {
	g := solver.NewReference()
	arr := expr.NewArray("x", 32, 8)
	query := expr.Eq(expr.NewRead(arr, expr.BV(32, 0)), expr.BV(32, 1))

	res := g.Evaluate(query)
	qt.Assert(t, qt.Equals(res.Validity, solver.Unknown))
}

func TestDirectComputeValidityUnwrapsExists(t *testing.T) {
	g := solver.NewReference()
	shadow := expr.NewArray("shadow_x_1", 32, 8)
	body := expr.Eq(expr.BV(32, 3), expr.BV(32, 3))
	query := expr.NewExists([]*expr.Array{shadow}, body)

	res := g.DirectComputeValidity(query)
	qt.Assert(t, qt.Equals(res.Validity, solver.Valid))
}

func TestSignedComparisonRespectsWidth(t *testing.T) {
	g := solver.NewReference()
	// -1 as an 8-bit value is 0xff; as a signed 8-bit comparison it is
	// less than 1.
	query := expr.Slt(expr.BV(8, 0xff), expr.BV(8, 1))
	res := g.Evaluate(query)
	qt.Assert(t, qt.Equals(res.Validity, solver.Valid))
}

func TestSetTimeoutIsObservable(t *testing.T) {
	g := solver.NewReference()
	g.SetTimeout(1)
	qt.Assert(t, qt.Equals(g.Timeout(), 1))
	g.SetTimeout(0)
	qt.Assert(t, qt.Equals(g.Timeout(), 0))
}
