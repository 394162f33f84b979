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

// MemCell names a single memory cell: a local, global, or argument
// program value, exactly as klee's MemCell wraps an llvm::Value*.
type MemCell struct {
	Value ProgramValue
}

// Location is an abstract memory location created at an allocation site,
// carrying the cell it currently holds.
type Location struct {
	Content MemCell
	AllocID uint64
}

// PointsToFrame is the points-to map for a single function activation:
// which locations each local pointer-valued cell may refer to.
type PointsToFrame struct {
	Function  string
	pointsTo  map[MemCell][]Location
}

func newPointsToFrame(function string) *PointsToFrame {
	return &PointsToFrame{Function: function, pointsTo: map[MemCell][]Location{}}
}

// AllocLocal records that cell was just allocated at location.
func (f *PointsToFrame) AllocLocal(cell MemCell, location Location) {
	f.pointsTo[cell] = []Location{location}
}

// AddressOfToLocal makes target point at source's cell.
func (f *PointsToFrame) AddressOfToLocal(target, source MemCell) {
	f.pointsTo[target] = []Location{{Content: source}}
}

// AssignToLocal copies source's points-to set into target (pointer
// assignment).
func (f *PointsToFrame) AssignToLocal(target, source MemCell) {
	f.pointsTo[target] = append([]Location(nil), f.pointsTo[source]...)
}

// LoadToLocal dereferences address, unioning the points-to sets of every
// location address may refer to into target.
func (f *PointsToFrame) LoadToLocal(target, address MemCell) {
	var out []Location
	for _, loc := range f.pointsTo[address] {
		out = append(out, f.pointsTo[loc.Content]...)
	}
	f.pointsTo[target] = out
}

// StoreFromLocal records that source's points-to set may now be held by
// whatever address refers to.
func (f *PointsToFrame) StoreFromLocal(source, address MemCell) {
	for _, loc := range f.pointsTo[address] {
		f.pointsTo[loc.Content] = append(f.pointsTo[loc.Content], f.pointsTo[source]...)
	}
}

func (f *PointsToFrame) isMainFrame() bool { return f.Function == "" }

// PointsToState is a stack of PointsToFrame plus a global frame, recovered
// from the original's PointsTo.h. It backs Dependency's notion of "which
// memory cells underlie an expression": cells always resolve through the
// frame on top of the stack, falling back to the global frame.
type PointsToState struct {
	stack      []*PointsToFrame
	global     *PointsToFrame
	nextAllocID uint64
}

// NewPointsToState creates an empty points-to state with just the global
// frame active.
func NewPointsToState() *PointsToState {
	return &PointsToState{global: newPointsToFrame("")}
}

func (s *PointsToState) top() *PointsToFrame {
	if len(s.stack) == 0 {
		return s.global
	}
	return s.stack[len(s.stack)-1]
}

// PushFrame enters a new function activation.
func (s *PointsToState) PushFrame(function string) {
	s.stack = append(s.stack, newPointsToFrame(function))
}

// PopFrame leaves the current function activation, returning its name.
// It panics if called with an empty stack (there is always at least the
// global frame, which is never popped).
func (s *PointsToState) PopFrame() string {
	if len(s.stack) == 0 {
		panic("dependency: PopFrame called with no active frame")
	}
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f.Function
}

// NextAllocID mints a fresh allocation identifier.
func (s *PointsToState) NextAllocID() uint64 {
	s.nextAllocID++
	return s.nextAllocID
}

func (s *PointsToState) AllocLocal(cell ProgramValue) Location {
	loc := Location{Content: MemCell{Value: cell}, AllocID: s.NextAllocID()}
	s.top().AllocLocal(MemCell{Value: cell}, loc)
	return loc
}

func (s *PointsToState) AllocGlobal(cell ProgramValue) Location {
	loc := Location{Content: MemCell{Value: cell}, AllocID: s.NextAllocID()}
	s.global.AllocLocal(MemCell{Value: cell}, loc)
	return loc
}

func (s *PointsToState) AddressOf(target, source ProgramValue) {
	s.top().AddressOfToLocal(MemCell{Value: target}, MemCell{Value: source})
}

func (s *PointsToState) Assign(target, source ProgramValue) {
	s.top().AssignToLocal(MemCell{Value: target}, MemCell{Value: source})
}

func (s *PointsToState) Load(target, address ProgramValue) {
	s.top().LoadToLocal(MemCell{Value: target}, MemCell{Value: address})
}

func (s *PointsToState) Store(source, address ProgramValue) {
	s.top().StoreFromLocal(MemCell{Value: source}, MemCell{Value: address})
}

// PointsTo returns the set of cells that value may refer to, per the
// frame on top of the stack, falling back to the global frame.
func (s *PointsToState) PointsTo(value ProgramValue) []MemCell {
	locs, ok := s.top().pointsTo[MemCell{Value: value}]
	if !ok {
		locs = s.global.pointsTo[MemCell{Value: value}]
	}
	var out []MemCell
	for _, loc := range locs {
		out = append(out, loc.Content)
	}
	return out
}
