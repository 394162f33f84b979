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

// Package solver provides the Gateway interface subsume.TableEntry.Subsumed
// queries, and a conservative reference implementation. The reference
// gateway is explicitly not a decision procedure: it normalizes a query by
// constant folding alone (no comparison rewrite rules), and reports Valid
// only when that normalization reduces the query to the constant true. Everything else —
// including formulas that are in fact valid but need real arithmetic or
// array reasoning to see it — is reported Unknown. This is sufficient to
// drive subsumption in the scenarios this module ships with; it is not a
// general-purpose solver (see spec.md's Non-goals).
package solver

import (
	"time"

	"github.com/symbexec/itree/internal/core/expr"
)

// Validity is the outcome of a query.
type Validity int

const (
	Unknown Validity = iota
	Valid
)

// Result is the outcome of a single Evaluate/DirectComputeValidity call.
// UnsatCore is populated only when Validity is Valid, and lists the
// AND conjuncts, at any nesting depth, that folded to true on the way.
type Result struct {
	Validity  Validity
	UnsatCore []expr.Expr
}

// Gateway is the solver-facing contract subsume.TableEntry.Subsumed
// consumes.
type Gateway interface {
	// SetTimeout bounds the next Evaluate/DirectComputeValidity call.
	// The reference implementation does not enforce it (it never runs
	// long), but every caller must still set and clear it around each
	// query per spec.md §5.
	SetTimeout(timeout time.Duration)
	// Evaluate decides the validity of a quantifier-free (or already
	// quantifier-eliminated) query.
	Evaluate(query expr.Expr) Result
	// DirectComputeValidity decides the validity of a query that may
	// still carry a leading existential, bypassing whatever
	// optimizations Evaluate applies that assume a quantifier-free
	// input.
	DirectComputeValidity(query expr.Expr) Result
}

// Reference is the conservative stand-in gateway described above.
type Reference struct {
	timeout time.Duration
}

// NewReference returns a Reference gateway with no timeout set.
func NewReference() *Reference { return &Reference{} }

func (r *Reference) SetTimeout(d time.Duration) { r.timeout = d }

// Timeout returns the most recently set timeout, for tests that need to
// assert it was set and cleared around a call.
func (r *Reference) Timeout() time.Duration { return r.timeout }

func (r *Reference) Evaluate(query expr.Expr) Result {
	return evaluate(query)
}

func (r *Reference) DirectComputeValidity(query expr.Expr) Result {
	if ex, ok := query.(*expr.Exists); ok {
		return evaluate(ex.Body)
	}
	return evaluate(query)
}

func evaluate(query expr.Expr) Result {
	core := map[string]expr.Expr{}
	simplified := fold(query, core)
	if expr.IsTrue(simplified) {
		out := make([]expr.Expr, 0, len(core))
		for _, e := range core {
			out = append(out, e)
		}
		return Result{Validity: Valid, UnsatCore: out}
	}
	return Result{Validity: Unknown}
}

// fold constant-folds e, recording in core the original (unfolded) form
// of every AND conjunct, at any nesting depth, that collapsed to true,
// since those are the atoms that "justified" the proof.
func fold(e expr.Expr, core map[string]expr.Expr) expr.Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *expr.Const:
		return x
	case *expr.Read, *expr.Write:
		return e
	case *expr.Not:
		inner := fold(x.X, core)
		if c, ok := expr.AsConst(inner); ok {
			if c.IsTrue() {
				return expr.False()
			}
			return expr.True()
		}
		return expr.NewNot(inner)
	case *expr.Exists:
		return expr.NewExists(x.Vars, fold(x.Body, core))
	case *expr.Binary:
		return foldBinary(x, core)
	}
	return e
}

func foldBinary(x *expr.Binary, core map[string]expr.Expr) expr.Expr {
	switch x.K {
	case expr.KAnd:
		l := fold(x.LHS, core)
		r := fold(x.RHS, core)
		if expr.IsFalse(l) || expr.IsFalse(r) {
			return expr.False()
		}
		lTrue, rTrue := expr.IsTrue(l), expr.IsTrue(r)
		if lTrue {
			core[x.LHS.String()] = x.LHS
		}
		if rTrue {
			core[x.RHS.String()] = x.RHS
		}
		switch {
		case lTrue && rTrue:
			return expr.True()
		case lTrue:
			return r
		case rTrue:
			return l
		default:
			return expr.And(l, r)
		}
	case expr.KOr:
		l := fold(x.LHS, core)
		r := fold(x.RHS, core)
		if expr.IsTrue(l) || expr.IsTrue(r) {
			return expr.True()
		}
		switch {
		case expr.IsFalse(l) && expr.IsFalse(r):
			return expr.False()
		case expr.IsFalse(l):
			return r
		case expr.IsFalse(r):
			return l
		default:
			return expr.Or(l, r)
		}
	case expr.KEq, expr.KNe, expr.KSlt, expr.KSle, expr.KSgt, expr.KSge, expr.KUlt, expr.KUle:
		l := fold(x.LHS, core)
		r := fold(x.RHS, core)
		lc, lok := expr.AsConst(l)
		rc, rok := expr.AsConst(r)
		if lok && rok {
			return compareConst(x.K, lc, rc)
		}
		return expr.NewBinary(x.K, l, r)
	case expr.KAdd, expr.KSub, expr.KMul:
		l := fold(x.LHS, core)
		r := fold(x.RHS, core)
		lc, lok := expr.AsConst(l)
		rc, rok := expr.AsConst(r)
		if lok && rok {
			return arithConst(x.K, lc, rc)
		}
		return expr.NewBinary(x.K, l, r)
	}
	return x
}

func signExtend(v uint64, width uint32) int64 {
	if width == 0 || width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}

func compareConst(k expr.Kind, l, r *expr.Const) *expr.Const {
	var b bool
	switch k {
	case expr.KEq:
		b = l.Value == r.Value
	case expr.KNe:
		b = l.Value != r.Value
	case expr.KSlt:
		b = signExtend(l.Value, l.W) < signExtend(r.Value, r.W)
	case expr.KSle:
		b = signExtend(l.Value, l.W) <= signExtend(r.Value, r.W)
	case expr.KSgt:
		b = signExtend(l.Value, l.W) > signExtend(r.Value, r.W)
	case expr.KSge:
		b = signExtend(l.Value, l.W) >= signExtend(r.Value, r.W)
	case expr.KUlt:
		b = l.Value < r.Value
	case expr.KUle:
		b = l.Value <= r.Value
	}
	if b {
		return expr.True()
	}
	return expr.False()
}

func arithConst(k expr.Kind, l, r *expr.Const) *expr.Const {
	var v uint64
	switch k {
	case expr.KAdd:
		v = l.Value + r.Value
	case expr.KSub:
		v = l.Value - r.Value
	case expr.KMul:
		v = l.Value * r.Value
	}
	return expr.BV(l.W, v)
}
