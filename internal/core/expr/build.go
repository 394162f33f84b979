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

// Const is a concrete bitvector constant.
type Const struct {
	W     uint32
	Value uint64
}

func (c *Const) Kind() Kind    { return KConst }
func (c *Const) NumKids() int  { return 0 }
func (c *Const) Width() uint32 { return c.W }
func (c *Const) Kid(int) Expr  { panic("expr: Const has no kids") }
func (c *Const) String() string {
	if c.W == BoolWidth {
		if c.Value != 0 {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%d", c.Value)
}

// IsTrue reports whether c is the boolean constant true.
func (c *Const) IsTrue() bool { return c.W == BoolWidth && c.Value != 0 }

// IsFalse reports whether c is the boolean constant false.
func (c *Const) IsFalse() bool { return c.W == BoolWidth && c.Value == 0 }

// True and False are the two boolean constants.
func True() *Const  { return &Const{W: BoolWidth, Value: 1} }
func False() *Const { return &Const{W: BoolWidth, Value: 0} }

// BV builds a width-w bitvector constant.
func BV(width uint32, value uint64) *Const { return &Const{W: width, Value: value} }

// AsConst reports whether e is a constant, returning it if so.
func AsConst(e Expr) (*Const, bool) {
	c, ok := e.(*Const)
	return c, ok
}

// IsTrue reports whether e is the constant true.
func IsTrue(e Expr) bool {
	c, ok := AsConst(e)
	return ok && c.IsTrue()
}

// IsFalse reports whether e is the constant false.
func IsFalse(e Expr) bool {
	c, ok := AsConst(e)
	return ok && c.IsFalse()
}

// boolKinds are the binary kinds whose result is always one bit wide.
var boolKinds = map[Kind]bool{
	KEq: true, KNe: true, KAnd: true, KOr: true,
	KSlt: true, KSle: true, KSgt: true, KSge: true,
	KUlt: true, KUle: true,
}

// Binary is every two-operand term kind: equality/inequality, logical
// conjunction/disjunction, signed/unsigned comparison, and arithmetic.
// Keeping a single representation for all of these lets the subsumption
// simplifier rebuild "the same kind of binary expression with new
// operands" (klee's createBinaryOfSameKind) with a single code path.
type Binary struct {
	K        Kind
	LHS, RHS Expr
}

func (b *Binary) Kind() Kind   { return b.K }
func (b *Binary) NumKids() int { return 2 }
func (b *Binary) Width() uint32 {
	if boolKinds[b.K] {
		return BoolWidth
	}
	return b.LHS.Width()
}
func (b *Binary) Kid(i int) Expr {
	switch i {
	case 0:
		return b.LHS
	case 1:
		return b.RHS
	}
	panic("expr: Binary has two kids")
}
func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.LHS, binarySym[b.K], b.RHS)
}

var binarySym = map[Kind]string{
	KEq: "==", KNe: "!=", KAnd: "&&", KOr: "||",
	KSlt: "<s", KSle: "<=s", KSgt: ">s", KSge: ">=s",
	KUlt: "<u", KUle: "<=u",
	KAdd: "+", KSub: "-", KMul: "*",
}

func newBinary(k Kind, lhs, rhs Expr) *Binary { return &Binary{K: k, LHS: lhs, RHS: rhs} }

func Eq(lhs, rhs Expr) Expr  { return newBinary(KEq, lhs, rhs) }
func Ne(lhs, rhs Expr) Expr  { return newBinary(KNe, lhs, rhs) }
func And(lhs, rhs Expr) Expr { return newBinary(KAnd, lhs, rhs) }
func Or(lhs, rhs Expr) Expr  { return newBinary(KOr, lhs, rhs) }
func Slt(lhs, rhs Expr) Expr { return newBinary(KSlt, lhs, rhs) }
func Sle(lhs, rhs Expr) Expr { return newBinary(KSle, lhs, rhs) }
func Sgt(lhs, rhs Expr) Expr { return newBinary(KSgt, lhs, rhs) }
func Sge(lhs, rhs Expr) Expr { return newBinary(KSge, lhs, rhs) }
func Ult(lhs, rhs Expr) Expr { return newBinary(KUlt, lhs, rhs) }
func Ule(lhs, rhs Expr) Expr { return newBinary(KUle, lhs, rhs) }
func Add(lhs, rhs Expr) Expr { return newBinary(KAdd, lhs, rhs) }
func Sub(lhs, rhs Expr) Expr { return newBinary(KSub, lhs, rhs) }
func Mul(lhs, rhs Expr) Expr { return newBinary(KMul, lhs, rhs) }

// AndAll folds a conjunction over es in order, left to right, returning nil
// for an empty list. This is the Go equivalent of the "AND-combine in
// traversal order" PathCondition.packInterpolant performs.
func AndAll(es ...Expr) Expr {
	var acc Expr
	for _, e := range es {
		if acc == nil {
			acc = e
			continue
		}
		acc = And(acc, e)
	}
	return acc
}

// OrAll folds a disjunction over es in order, returning nil for an empty
// list.
func OrAll(es ...Expr) Expr {
	var acc Expr
	for _, e := range es {
		if acc == nil {
			acc = e
			continue
		}
		acc = Or(acc, e)
	}
	return acc
}

// NewBinary rebuilds a binary expression of the same kind as the original
// with new operands. It is the Go counterpart of
// SubsumptionTableEntry::createBinaryOfSameKind: substitution during
// existential simplification needs to preserve the comparison kind of an
// interpolant atom while replacing its operands.
func NewBinary(k Kind, lhs, rhs Expr) Expr {
	if _, ok := binarySym[k]; !ok {
		panic(fmt.Sprintf("expr: %v is not a binary kind", k))
	}
	return newBinary(k, lhs, rhs)
}

// Not is logical negation.
type Not struct {
	X Expr
}

func NewNot(x Expr) *Not { return &Not{X: x} }

func (n *Not) Kind() Kind    { return KNot }
func (n *Not) NumKids() int  { return 1 }
func (n *Not) Width() uint32 { return BoolWidth }
func (n *Not) Kid(i int) Expr {
	if i == 0 {
		return n.X
	}
	panic("expr: Not has one kid")
}
func (n *Not) String() string { return fmt.Sprintf("!%s", n.X) }

// Exists is an existentially quantified formula over a set of shadow
// arrays.
type Exists struct {
	Vars []*Array
	Body Expr
}

func NewExists(vars []*Array, body Expr) *Exists {
	return &Exists{Vars: vars, Body: body}
}

func (e *Exists) Kind() Kind    { return KExists }
func (e *Exists) NumKids() int  { return 1 }
func (e *Exists) Width() uint32 { return BoolWidth }
func (e *Exists) Kid(i int) Expr {
	if i == 0 {
		return e.Body
	}
	panic("expr: Exists has one kid")
}
func (e *Exists) String() string {
	return fmt.Sprintf("exists %v. %s", e.Vars, e.Body)
}

// SwapComparison returns the kind of the logical negation of a signed
// comparison: !(a < b) == (a >= b), and so on. This is the four-way
// rewrite spec.md's existential simplifier applies to normalize
// `Eq(false, cmp)` into `neg(cmp)`.
func SwapComparison(k Kind) (Kind, bool) {
	switch k {
	case KSlt:
		return KSge, true
	case KSge:
		return KSlt, true
	case KSle:
		return KSgt, true
	case KSgt:
		return KSle, true
	}
	return k, false
}
