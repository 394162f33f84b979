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

// Package subsume implements the subsumption table: an entry captures an
// interpolant and its supporting memory stores at the point a node was
// removed from the interpolation tree, and Subsumed decides whether a
// later state is entailed by that entry. It is the Go counterpart of
// klee's SubsumptionTableEntry.
package subsume

import (
	"time"

	"github.com/kr/pretty"

	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/solver"
)

// NodeID identifies an interpolation-tree node for the lifetime of the
// tree that created it — one value per Node object, never shared between
// two different splits even if they land on the same program point. It
// exists purely so the search-tree observer (internal/searchtree) can key
// its display nodes one-to-one with live tree nodes; it plays no part in
// subsumption matching, which uses ProgramPoint instead.
type NodeID uint64

// ProgramPoint identifies a node by the program location it was created
// at, per spec.md's definition of nodeId as program-point identity. Two
// different Node objects — a loop back-edge, two branches rejoining —
// can and do share a ProgramPoint; Subsumed relies on exactly that to
// compare a live state against a table entry built from a different node
// that reached the same point earlier.
type ProgramPoint string

// Node is the subset of an interpolation-tree node a TableEntry needs in
// order to build itself at removal time.
type Node interface {
	Point() ProgramPoint
	PathConditionHead() *pathcond.Atom
	// ParentDependency is the dependency instance getLatestCoreExpressions
	// and getCompositeCoreExpressions delegate to: the program-point a
	// removed node's interpolant describes is the first instruction of
	// the node, whose live state is its parent's.
	ParentDependency() *dependency.Dependency
}

// State is the subset of a live execution state Subsumed needs: which
// program point it currently occupies, its dependency graph (for
// state-equality construction and for committing proof-derived marks),
// and the markers over its own path condition that a successful proof
// should raise.
type State interface {
	Point() ProgramPoint
	Dependency() *dependency.Dependency
	Markers() []*pathcond.Marker
	ComputeInterpolantAllocations(g *dependency.AllocationGraph)
}

// TableEntry is a single row of the subsumption table.
type TableEntry struct {
	ProgramPoint   ProgramPoint
	Interpolant    expr.Expr
	SingletonStore map[dependency.ProgramValue]expr.Expr
	CompositeStore map[dependency.ProgramValue][]expr.Expr
	Existentials   []*expr.Array
}

// NewTableEntry builds a TableEntry from node, per SubsumptionTableEntry's
// constructor: pack the interpolant from the path condition, then pull
// the singleton and composite stores from the parent's dependency using
// the same shadow-array renaming so that shadow arrays are shared between
// the interpolant and the stores.
func NewTableEntry(node Node, namer expr.ShadowNamer) *TableEntry {
	r := expr.NewRenaming(namer)
	interpolant := pathcond.PackInterpolant(node.PathConditionHead(), r)

	singleton := map[dependency.ProgramValue]expr.Expr{}
	composite := map[dependency.ProgramValue][]expr.Expr{}
	if dep := node.ParentDependency(); dep != nil {
		singleton = dep.GetLatestCoreExpressions(r)
		composite = dep.GetCompositeCoreExpressions(r)
	}

	return &TableEntry{
		ProgramPoint:   node.Point(),
		Interpolant:    interpolant,
		SingletonStore: singleton,
		CompositeStore: composite,
		Existentials:   r.Replacements,
	}
}

// Dump renders e's fields with kr/pretty, for a CLI or test to print
// when a subsumption check needs inspecting by hand.
func (e *TableEntry) Dump() string {
	return pretty.Sprint(e)
}

// IsEmpty reports whether the entry carries no interpolant and no stores,
// in which case it trivially subsumes every state at its program point.
func (e *TableEntry) IsEmpty() bool {
	return e.Interpolant == nil && len(e.SingletonStore) == 0 && len(e.CompositeStore) == 0
}

func stateCandidates(dep *dependency.Dependency, pv dependency.ProgramValue) []expr.Expr {
	if list, ok := dep.GetCompositeCoreExpressions(nil)[pv]; ok {
		return list
	}
	if single, ok := dep.GetLatestCoreExpressions(nil)[pv]; ok {
		return []expr.Expr{single}
	}
	return nil
}

// buildStateEquality connects every shadowed store value to the current
// state's value of the same program value. It reports ok=false if state
// is missing a value this entry needs.
func (e *TableEntry) buildStateEquality(dep *dependency.Dependency) (expr.Expr, bool) {
	var parts []expr.Expr

	for pv, shadowed := range e.SingletonStore {
		current, ok := dep.GetLatestCoreExpressions(nil)[pv]
		if !ok {
			return nil, false
		}
		parts = append(parts, expr.Eq(shadowed, current))
	}

	for pv, shadowCandidates := range e.CompositeStore {
		stateVals := stateCandidates(dep, pv)
		if len(stateVals) == 0 {
			return nil, false
		}
		var pairs []expr.Expr
		for _, sc := range shadowCandidates {
			for _, sv := range stateVals {
				pairs = append(pairs, expr.Eq(sc, sv))
			}
		}
		parts = append(parts, expr.OrAll(pairs...))
	}

	return expr.AndAll(parts...), true
}

// Subsumed decides whether state is entailed by e, per
// SubsumptionTableEntry::subsumed.
func (e *TableEntry) Subsumed(gw solver.Gateway, state State, timeout time.Duration) bool {
	if state.Point() != e.ProgramPoint {
		return false
	}
	if e.IsEmpty() {
		return true
	}

	stateEq, ok := e.buildStateEquality(state.Dependency())
	if !ok {
		return false
	}

	var query expr.Expr
	switch {
	case e.Interpolant != nil && stateEq != nil:
		query = expr.And(e.Interpolant, stateEq)
	case e.Interpolant != nil:
		query = expr.And(e.Interpolant, expr.True())
	case stateEq != nil:
		query = expr.And(expr.True(), stateEq)
	default:
		return true
	}

	if len(e.Existentials) > 0 {
		query = expr.NewExists(append([]*expr.Array(nil), e.Existentials...), query)
	}
	query = simplifyExistsExpr(query)

	if c, ok := expr.AsConst(query); ok {
		return c.IsTrue()
	}

	gw.SetTimeout(timeout)
	defer gw.SetTimeout(0)

	var res solver.Result
	if _, quantified := query.(*expr.Exists); quantified {
		res = gw.DirectComputeValidity(query)
	} else {
		res = gw.Evaluate(query)
	}

	if res.Validity != solver.Valid {
		return false
	}

	g := dependency.NewAllocationGraph()
	markers := state.Markers()
	for _, m := range markers {
		for _, core := range res.UnsatCore {
			if expr.Compare(m.Match, core) == 0 {
				m.MayIncludeInInterpolant()
				break
			}
		}
	}
	for _, m := range markers {
		m.IncludeInInterpolant(state.Dependency(), g)
	}
	state.ComputeInterpolantAllocations(g)

	return true
}
