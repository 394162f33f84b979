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

package dependency

import "github.com/symbexec/itree/internal/core/expr"

// cellRecord is the write history of a single memory cell as seen by one
// Dependency. Store never overwrites it: a cell that has received more
// than one distinct value along the same path (a weak update, because the
// points-to analysis could not resolve it to a single location) keeps all
// of them, and is exported as a composite store rather than a singleton
// one.
type cellRecord struct {
	history []expr.Expr
}

func (r *cellRecord) add(e expr.Expr) {
	for _, existing := range r.history {
		if expr.Equal(existing, e) {
			return
		}
	}
	r.history = append(r.history, e)
}

// Dependency is the per-node value-flow and memory-dependency tracker
// that backs ITreeNode: every executed instruction registers the
// VersionedValue it produced and the operands it was computed from, every
// store registers a candidate value for a memory cell, and
// GetLatestCoreExpressions / GetCompositeCoreExpressions later recover,
// from that bookkeeping, the subset relevant to a subsumption check. It
// plays the role of klee's Dependency class; see ITree.cpp's
// ITreeNode::getLatestCoreExpressions and friends, which all delegate to
// parent->dependency.
//
// A child node's Dependency is "derived from" its parent's: values, flow
// edges, and cell histories are looked up through the parent chain so
// that bindings introduced higher in the tree stay visible without being
// copied, mirroring the original's "new Dependency(parent ?
// parent->dependency : 0)". The points-to state and the set of allocations
// marked as belonging to an accepted interpolant are tree-wide facts
// rather than per-node ones, so they are shared (by reference) with every
// descendant instead of being looked up through the chain.
type Dependency struct {
	parent *Dependency

	values   map[ProgramValue]*VersionedValue
	flow     map[ProgramValue][]ProgramValue
	memReads map[ProgramValue]ProgramValue
	cells    map[ProgramValue]*cellRecord

	points *PointsToState
	marked map[ProgramValue]bool
}

// NewDependency creates a Dependency. parent may be nil for the root node.
func NewDependency(parent *Dependency) *Dependency {
	d := &Dependency{
		parent:   parent,
		values:   map[ProgramValue]*VersionedValue{},
		flow:     map[ProgramValue][]ProgramValue{},
		memReads: map[ProgramValue]ProgramValue{},
		cells:    map[ProgramValue]*cellRecord{},
	}
	if parent != nil {
		d.points = parent.points
		d.marked = parent.marked
	} else {
		d.points = NewPointsToState()
		d.marked = map[ProgramValue]bool{}
	}
	return d
}

// GetLatestValue returns the most recent VersionedValue bound to v,
// searching this node and then its ancestors.
func (d *Dependency) GetLatestValue(v ProgramValue) (*VersionedValue, bool) {
	for dd := d; dd != nil; dd = dd.parent {
		if vv, ok := dd.values[v]; ok {
			return vv, true
		}
	}
	return nil, false
}

func (d *Dependency) bind(result ProgramValue, e expr.Expr, operands ...ProgramValue) *VersionedValue {
	vv := &VersionedValue{Value: result, Expr: e}
	d.values[result] = vv
	if len(operands) > 0 {
		d.flow[result] = append([]ProgramValue(nil), operands...)
	}
	return vv
}

// Execute registers instr as producing e, flowing from operands. It
// covers register-to-register instructions that are neither binary
// operators nor memory accesses (casts, selects, phi nodes).
func (d *Dependency) Execute(instr ProgramValue, e expr.Expr, operands ...ProgramValue) *VersionedValue {
	return d.bind(instr, e, operands...)
}

// ExecuteBinary registers instr as the binary combination of lhs and rhs.
func (d *Dependency) ExecuteBinary(instr ProgramValue, result expr.Expr, lhs, rhs ProgramValue) *VersionedValue {
	return d.bind(instr, result, lhs, rhs)
}

// ExecuteMemoryOperation registers instr as a load through address, and
// records that it reads the first cell address points to, so that a
// later MarkAllValues walk through instr also marks that cell. Further
// cells address may point to are not recorded.
func (d *Dependency) ExecuteMemoryOperation(instr ProgramValue, result expr.Expr, address ProgramValue) *VersionedValue {
	vv := d.bind(instr, result, address)
	for _, cell := range d.points.PointsTo(address) {
		d.memReads[instr] = cell.Value
		break
	}
	return vv
}

// BindCallArguments binds each parameter to the VersionedValue of the
// corresponding argument at the call site, so flow continues into the
// callee.
func (d *Dependency) BindCallArguments(params, args []ProgramValue) {
	n := len(params)
	if len(args) < n {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		if vv, ok := d.GetLatestValue(args[i]); ok {
			d.bind(params[i], vv.Expr, args[i])
		}
	}
}

// BindReturnValue binds the call site's result to the callee's returned
// value.
func (d *Dependency) BindReturnValue(site ProgramValue, result expr.Expr, returned ProgramValue) *VersionedValue {
	return d.bind(site, result, returned)
}

// Alloc registers a fresh memory cell, allocated locally unless global is
// true.
func (d *Dependency) Alloc(cell ProgramValue, global bool) Location {
	if global {
		return d.points.AllocGlobal(cell)
	}
	return d.points.AllocLocal(cell)
}

// Store appends e as a candidate value of cell. Repeated stores of an
// expression structurally equal to one already on record are no-ops, so a
// cell written the same way on every visit still reports as a singleton.
func (d *Dependency) Store(cell ProgramValue, e expr.Expr) {
	rec, ok := d.cells[cell]
	if !ok {
		rec = &cellRecord{}
		d.cells[cell] = rec
	}
	rec.add(e)
}

func (d *Dependency) lookupFlow(v ProgramValue) ([]ProgramValue, bool) {
	for dd := d; dd != nil; dd = dd.parent {
		if ops, ok := dd.flow[v]; ok {
			return ops, true
		}
	}
	return nil, false
}

func (d *Dependency) lookupMemRead(v ProgramValue) (ProgramValue, bool) {
	for dd := d; dd != nil; dd = dd.parent {
		if cell, ok := dd.memReads[v]; ok {
			return cell, true
		}
	}
	return "", false
}

// MarkAllValues marks v, and transitively every value and memory cell it
// flows from, in g. It is the Go counterpart of klee's
// Dependency::markAllValues, walked from ITreeNode::computeInterpolantAllocations.
func (d *Dependency) MarkAllValues(g *AllocationGraph, v ProgramValue) {
	visited := map[ProgramValue]bool{}
	var walk func(ProgramValue)
	walk = func(pv ProgramValue) {
		if visited[pv] {
			return
		}
		visited[pv] = true
		g.MarkValue(pv)
		if cell, ok := d.lookupMemRead(pv); ok {
			g.MarkCell(cell)
			walk(cell)
		}
		if ops, ok := d.lookupFlow(pv); ok {
			for _, op := range ops {
				walk(op)
			}
		}
	}
	walk(v)
}

// ComputeInterpolantAllocations commits every cell marked in g into the
// tree-wide set of cells whose stores belong in every future interpolant,
// per ITreeNode::computeInterpolantAllocations.
func (d *Dependency) ComputeInterpolantAllocations(g *AllocationGraph) {
	for cell := range g.Cells() {
		d.marked[cell] = true
	}
}

// GetLatestCoreExpressions returns, for every cell with exactly one
// distinct recorded value, that value. If r is non-nil the export is
// restricted to cells previously committed via ComputeInterpolantAllocations
// and every returned expression has its arrays shadow-renamed through r;
// if r is nil every tracked cell is exported unchanged, which is what
// subsumption checking needs when comparing a table entry against the
// live state. It is the Go counterpart of
// ITreeNode::getLatestCoreExpressions / getLatestInterpolantCoreExpressions.
func (d *Dependency) GetLatestCoreExpressions(r *expr.Renaming) map[ProgramValue]expr.Expr {
	out := map[ProgramValue]expr.Expr{}
	seen := map[ProgramValue]bool{}
	for dd := d; dd != nil; dd = dd.parent {
		for cell, rec := range dd.cells {
			if seen[cell] {
				continue
			}
			seen[cell] = true
			if r != nil && !dd.marked[cell] {
				continue
			}
			if len(rec.history) != 1 {
				continue
			}
			e := rec.history[0]
			if r != nil {
				e = r.Rename(e)
			}
			out[cell] = e
		}
	}
	return out
}

// GetCompositeCoreExpressions is GetLatestCoreExpressions' counterpart for
// cells that carry more than one distinct recorded value. It is the Go
// counterpart of ITreeNode::getCompositeCoreExpressions /
// getCompositeInterpolantCoreExpressions.
func (d *Dependency) GetCompositeCoreExpressions(r *expr.Renaming) map[ProgramValue][]expr.Expr {
	out := map[ProgramValue][]expr.Expr{}
	seen := map[ProgramValue]bool{}
	for dd := d; dd != nil; dd = dd.parent {
		for cell, rec := range dd.cells {
			if seen[cell] {
				continue
			}
			seen[cell] = true
			if r != nil && !dd.marked[cell] {
				continue
			}
			if len(rec.history) <= 1 {
				continue
			}
			candidates := make([]expr.Expr, len(rec.history))
			for i, e := range rec.history {
				if r != nil {
					e = r.Rename(e)
				}
				candidates[i] = e
			}
			out[cell] = candidates
		}
	}
	return out
}
