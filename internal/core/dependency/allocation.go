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

// AllocationGraph records which memory allocations (program-value backed
// cells) and which VersionedValues participated in a single proof, so
// later queries can limit attention to them. It is built fresh for every
// markPathCondition / subsumed call and discarded afterward; only the
// cells it marks are retained, via ComputeInterpolantAllocations, in the
// owning Dependency's persistent marks.
type AllocationGraph struct {
	values map[ProgramValue]bool
	cells  map[ProgramValue]bool
}

// NewAllocationGraph returns an empty graph.
func NewAllocationGraph() *AllocationGraph {
	return &AllocationGraph{values: map[ProgramValue]bool{}, cells: map[ProgramValue]bool{}}
}

// MarkValue records that v participated in the proof.
func (g *AllocationGraph) MarkValue(v ProgramValue) { g.values[v] = true }

// MarkCell records that the memory cell identified by v participated in
// the proof.
func (g *AllocationGraph) MarkCell(v ProgramValue) { g.cells[v] = true }

// HasValue reports whether v was marked.
func (g *AllocationGraph) HasValue(v ProgramValue) bool { return g.values[v] }

// HasCell reports whether the cell v was marked.
func (g *AllocationGraph) HasCell(v ProgramValue) bool { return g.cells[v] }

// Cells returns the set of marked cells.
func (g *AllocationGraph) Cells() map[ProgramValue]bool { return g.cells }
