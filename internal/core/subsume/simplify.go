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

package subsume

import (
	"fmt"

	"github.com/symbexec/itree/internal/core/expr"
)

// usageViolation is raised for shapes simplifyEqualityExpr's caller
// guarantees never to produce: Subsumed always builds its query as
// interpolant AND stateEquality, so simplifyExistsExpr never reaches
// this path with anything else.
type usageViolation struct{ msg string }

func (u usageViolation) Error() string { return u.msg }

func panicUsage(format string, args ...any) {
	panic(usageViolation{fmt.Sprintf(format, args...)})
}

type equalityAtom struct {
	Node     expr.Expr // the original Eq(LHS, RHS) node, for later removal
	LHS, RHS expr.Expr
}

type interpolantAtom struct {
	Kind     expr.Kind
	LHS, RHS expr.Expr
}

// simplifyExistsExpr implements spec.md §4.3.2. e is returned unchanged
// whenever its shape does not match the interpolant-AND-equality pattern
// Subsumed builds.
func simplifyExistsExpr(e expr.Expr) expr.Expr {
	ex, ok := e.(*expr.Exists)
	if !ok {
		return e
	}

	bodyAnd, ok := ex.Body.(*expr.Binary)
	if !ok || bodyAnd.K != expr.KAnd {
		if c, ok := expr.AsConst(ex.Body); ok {
			return c
		}
		return e
	}

	interpolantPart, equalityPart := bodyAnd.LHS, bodyAnd.RHS

	if eqBin, ok := equalityPart.(*expr.Binary); ok && eqBin.K == expr.KOr {
		return e
	}

	var equalityPack []equalityAtom
	foldedEquality := collectEqualities(equalityPart, &equalityPack)
	if expr.IsFalse(foldedEquality) {
		return expr.False()
	}

	var interpolantPack []interpolantAtom
	foldedInterpolant := collectInterpolant(interpolantPart, &interpolantPack)
	if expr.IsFalse(foldedInterpolant) {
		return expr.False()
	}

	if _, isConst := expr.AsConst(foldedInterpolant); isConst {
		return foldedEquality
	}

	rewritten := make([]expr.Expr, len(interpolantPack))
	var consumed []expr.Expr
	for i, ia := range interpolantPack {
		out, usedNode, ok := substituteFromEqualities(ia, equalityPack)
		if b, isBin := out.(*expr.Binary); isBin {
			if lc, lok := expr.AsConst(b.LHS); lok {
				if rc, rok := expr.AsConst(b.RHS); rok {
					out = constCompare(b.K, lc, rc)
				}
			}
		}
		rewritten[i] = out
		if ok {
			consumed = append(consumed, usedNode)
		}
	}

	// An equality consumed by substitution ties a shadow variable to a
	// concrete expression; once consumed, the existential quantifier is
	// trivially satisfied by that value, so the equality itself drops out
	// of the recombined formula instead of being ANDed back in.
	remainingEquality := stripConsumed(foldedEquality, consumed)

	final := andFold(append(rewritten, remainingEquality)...)

	var remaining []*expr.Array
	for _, arr := range ex.Vars {
		if expr.ContainsArray(final, arr) {
			remaining = append(remaining, arr)
		}
	}
	if len(remaining) == 0 {
		return final
	}
	return simplifyWithFourierMotzkin(expr.NewExists(remaining, final))
}

// collectEqualities walks an AND-chain, folding constant equalities and
// collecting every retained atomic equality into *pack for later
// substitution. Disjunctions are folded (so their constants still
// collapse) but their equalities are never added to *pack.
func collectEqualities(e expr.Expr, pack *[]equalityAtom) expr.Expr {
	bin, ok := e.(*expr.Binary)
	if !ok {
		return e
	}
	switch bin.K {
	case expr.KAnd:
		l := collectEqualities(bin.LHS, pack)
		if expr.IsFalse(l) {
			return expr.False()
		}
		r := collectEqualities(bin.RHS, pack)
		if expr.IsFalse(r) {
			return expr.False()
		}
		switch {
		case expr.IsTrue(l):
			return r
		case expr.IsTrue(r):
			return l
		default:
			return expr.And(l, r)
		}
	case expr.KOr:
		var throwaway []equalityAtom
		l := collectEqualities(bin.LHS, &throwaway)
		r := collectEqualities(bin.RHS, &throwaway)
		if expr.IsTrue(l) || expr.IsTrue(r) {
			return expr.True()
		}
		if expr.IsFalse(l) {
			return r
		}
		if expr.IsFalse(r) {
			return l
		}
		return expr.Or(l, r)
	case expr.KEq:
		lc, lok := expr.AsConst(bin.LHS)
		rc, rok := expr.AsConst(bin.RHS)
		if lok && rok {
			if lc.Value == rc.Value {
				return expr.True()
			}
			return expr.False()
		}
		*pack = append(*pack, equalityAtom{Node: bin, LHS: bin.LHS, RHS: bin.RHS})
		return bin
	}
	panicUsage("simplifyEqualityExpr: unsupported expression shape %v", e)
	panic("unreachable")
}

var comparisonKinds = map[expr.Kind]bool{
	expr.KEq: true, expr.KNe: true,
	expr.KSlt: true, expr.KSle: true, expr.KSgt: true, expr.KSge: true,
	expr.KUlt: true, expr.KUle: true,
}

// collectInterpolant mirrors collectEqualities for the interpolant side,
// additionally normalizing Eq(false, cmp) into the negation of cmp.
func collectInterpolant(e expr.Expr, pack *[]interpolantAtom) expr.Expr {
	bin, ok := e.(*expr.Binary)
	if !ok {
		return e
	}
	switch bin.K {
	case expr.KAnd:
		l := collectInterpolant(bin.LHS, pack)
		if expr.IsFalse(l) {
			return expr.False()
		}
		r := collectInterpolant(bin.RHS, pack)
		if expr.IsFalse(r) {
			return expr.False()
		}
		switch {
		case expr.IsTrue(l):
			return r
		case expr.IsTrue(r):
			return l
		default:
			return expr.And(l, r)
		}
	case expr.KEq:
		if negated, ok := normalizeFalseEq(bin, pack); ok {
			return negated
		}
		fallthrough
	default:
		if !comparisonKinds[bin.K] {
			return e
		}
		lc, lok := expr.AsConst(bin.LHS)
		rc, rok := expr.AsConst(bin.RHS)
		if lok && rok {
			return constCompare(bin.K, lc, rc)
		}
		*pack = append(*pack, interpolantAtom{Kind: bin.K, LHS: bin.LHS, RHS: bin.RHS})
		return bin
	}
}

// normalizeFalseEq rewrites Eq(false, cmp) / Eq(cmp, false) into the
// logical negation of cmp, by swapping its comparison kind.
func normalizeFalseEq(bin *expr.Binary, pack *[]interpolantAtom) (expr.Expr, bool) {
	tryside := func(constSide, otherSide expr.Expr) (expr.Expr, bool) {
		c, ok := expr.AsConst(constSide)
		if !ok || !c.IsFalse() {
			return nil, false
		}
		cmp, ok := otherSide.(*expr.Binary)
		if !ok {
			return nil, false
		}
		swapped, ok := expr.SwapComparison(cmp.K)
		if !ok {
			return nil, false
		}
		rebuilt := expr.NewBinary(swapped, cmp.LHS, cmp.RHS)
		*pack = append(*pack, interpolantAtom{Kind: swapped, LHS: cmp.LHS, RHS: cmp.RHS})
		return rebuilt, true
	}
	if out, ok := tryside(bin.LHS, bin.RHS); ok {
		return out, true
	}
	return tryside(bin.RHS, bin.LHS)
}

func constCompare(k expr.Kind, l, r *expr.Const) expr.Expr {
	signed := func(c *expr.Const) int64 {
		if c.W == 0 || c.W >= 64 {
			return int64(c.Value)
		}
		shift := 64 - c.W
		return int64(c.Value<<shift) >> shift
	}
	var b bool
	switch k {
	case expr.KEq:
		b = l.Value == r.Value
	case expr.KNe:
		b = l.Value != r.Value
	case expr.KSlt:
		b = signed(l) < signed(r)
	case expr.KSle:
		b = signed(l) <= signed(r)
	case expr.KSgt:
		b = signed(l) > signed(r)
	case expr.KSge:
		b = signed(l) >= signed(r)
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

// containsShadow reports whether e references any shadow array.
func containsShadow(e expr.Expr) bool {
	switch x := e.(type) {
	case nil:
		return false
	case *expr.Read:
		return x.Arr.IsShadow || containsShadow(x.Index)
	case *expr.Write:
		return x.Arr.IsShadow || containsShadow(x.Index) || containsShadow(x.Value)
	}
	for i := 0; i < e.NumKids(); i++ {
		if containsShadow(e.Kid(i)) {
			return true
		}
	}
	return false
}

// containsSubexpr reports whether e structurally contains target anywhere
// within it (including e itself).
func containsSubexpr(e, target expr.Expr) bool {
	if expr.Equal(e, target) {
		return true
	}
	switch x := e.(type) {
	case nil:
		return false
	case *expr.Read:
		return containsSubexpr(x.Index, target)
	case *expr.Write:
		return containsSubexpr(x.Index, target) || containsSubexpr(x.Value, target)
	}
	for i := 0; i < e.NumKids(); i++ {
		if containsSubexpr(e.Kid(i), target) {
			return true
		}
	}
	return false
}

// replaceExpr returns a copy of e with every occurrence of from replaced
// by to.
func replaceExpr(e, from, to expr.Expr) expr.Expr {
	if expr.Equal(e, from) {
		return to
	}
	switch x := e.(type) {
	case *expr.Not:
		return expr.NewNot(replaceExpr(x.X, from, to))
	case *expr.Binary:
		return expr.NewBinary(x.K, replaceExpr(x.LHS, from, to), replaceExpr(x.RHS, from, to))
	}
	return e
}

// substituteFromEqualities rewrites an interpolant atom `C cmp D` using
// the first equality `A == B` (A being the shadow-bearing side) whose A
// structurally contains C, per spec.md §4.3.2 step 7. If no equality
// applies, the atom is rebuilt unchanged and ok is false.
func substituteFromEqualities(ia interpolantAtom, equalities []equalityAtom) (out expr.Expr, usedNode expr.Expr, ok bool) {
	c, d := ia.LHS, ia.RHS
	for _, eq := range equalities {
		var shadowSide, otherSide expr.Expr
		switch {
		case containsShadow(eq.LHS):
			shadowSide, otherSide = eq.LHS, eq.RHS
		case containsShadow(eq.RHS):
			shadowSide, otherSide = eq.RHS, eq.LHS
		default:
			continue
		}
		if !containsSubexpr(shadowSide, c) {
			continue
		}
		newRHS := replaceExpr(shadowSide, c, d)
		return expr.NewBinary(ia.Kind, otherSide, newRHS), eq.Node, true
	}
	return expr.NewBinary(ia.Kind, c, d), nil, false
}

// stripConsumed replaces every occurrence of a node in consumed, within
// the AND/OR structure of e, with the constant true, and re-folds the
// surrounding conjunctions/disjunctions. Equalities consumed by
// substitution no longer constrain anything once the existential they
// tied down has been eliminated.
func stripConsumed(e expr.Expr, consumed []expr.Expr) expr.Expr {
	for _, c := range consumed {
		if expr.Equal(e, c) {
			return expr.True()
		}
	}
	bin, ok := e.(*expr.Binary)
	if !ok || (bin.K != expr.KAnd && bin.K != expr.KOr) {
		return e
	}
	l := stripConsumed(bin.LHS, consumed)
	r := stripConsumed(bin.RHS, consumed)
	if bin.K == expr.KAnd {
		switch {
		case expr.IsFalse(l) || expr.IsFalse(r):
			return expr.False()
		case expr.IsTrue(l):
			return r
		case expr.IsTrue(r):
			return l
		default:
			return expr.And(l, r)
		}
	}
	switch {
	case expr.IsTrue(l) || expr.IsTrue(r):
		return expr.True()
	case expr.IsFalse(l):
		return r
	case expr.IsFalse(r):
		return l
	default:
		return expr.Or(l, r)
	}
}

// andFold ANDs parts together, dropping true operands and short-circuiting
// to false if any operand is false, so that a fully-constant rewrite
// collapses to a single constant rather than an unevaluated conjunction.
func andFold(parts ...expr.Expr) expr.Expr {
	var kept []expr.Expr
	for _, p := range parts {
		if p == nil || expr.IsTrue(p) {
			continue
		}
		if expr.IsFalse(p) {
			return expr.False()
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return expr.True()
	}
	return expr.AndAll(kept...)
}

// simplifyWithFourierMotzkin eliminates arithmetic existentials from e.
// The original never implemented this beyond the identity transform, and
// neither does this port: it is a pluggable extension point, not a gap in
// translation.
func simplifyWithFourierMotzkin(e expr.Expr) expr.Expr {
	return e
}
