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

package itree

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/solver"
	"github.com/symbexec/itree/internal/core/subsume"
)

type counter struct{ n int }

func (c *counter) NextSuffix() string {
	c.n++
	return fmt.Sprintf("%d", c.n)
}

type fakeObserver struct {
	children  [][3]NodeID
	current   NodeID
	subsumed  map[NodeID]*subsume.TableEntry
	included  map[*pathcond.Atom]bool
	lines     map[NodeID][]string
	entryNode map[*subsume.TableEntry]NodeID
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		subsumed:  map[NodeID]*subsume.TableEntry{},
		included:  map[*pathcond.Atom]bool{},
		lines:     map[NodeID][]string{},
		entryNode: map[*subsume.TableEntry]NodeID{},
	}
}

func (o *fakeObserver) AddChildren(parent, falseChild, trueChild NodeID) {
	o.children = append(o.children, [3]NodeID{parent, falseChild, trueChild})
}
func (o *fakeObserver) SetCurrentNode(id NodeID, programPoint string) { o.current = id }
func (o *fakeObserver) AddPathCondition(id NodeID, atom *pathcond.Atom, line string) {
	o.lines[id] = append(o.lines[id], line)
}
func (o *fakeObserver) IncludeInInterpolant(atom *pathcond.Atom) { o.included[atom] = true }
func (o *fakeObserver) AddTableEntryMapping(id NodeID, entry *subsume.TableEntry) {
	o.entryNode[entry] = id
}
func (o *fakeObserver) MarkAsSubsumed(id NodeID, entry *subsume.TableEntry) { o.subsumed[id] = entry }

func TestSplitCreatesTwoChildrenSharingPathCondition(t *testing.T) {
	obs := newFakeObserver()
	tr := NewTree("entry", obs, &counter{})

	tr.root.AddConstraint(expr.Slt(expr.BV(32, 1), expr.BV(32, 2)), nil)
	left, right := tr.Split(tr.root, "then", "else")

	qt.Assert(t, qt.Equals(left.Parent, tr.root))
	qt.Assert(t, qt.Equals(right.Parent, tr.root))
	qt.Assert(t, qt.Equals(left.head, tr.root.head))
	qt.Assert(t, qt.Equals(right.head, tr.root.head))
	qt.Assert(t, qt.Equals(len(obs.children), 1))
	qt.Assert(t, qt.Equals(obs.children[0], [3]NodeID{tr.root.id, left.id, right.id}))
}

func TestSplitOfAlreadySplitNodePanics(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	tr.Split(tr.root, "then", "else")

	defer func() {
		r := recover()
		qt.Assert(t, qt.IsNotNil(r))
	}()
	tr.Split(tr.root, "then2", "else2")
}

func TestRemoveOfInternalNodePanics(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	tr.Split(tr.root, "then", "else")

	defer func() {
		r := recover()
		qt.Assert(t, qt.IsNotNil(r))
	}()
	tr.Remove(tr.root)
}

func TestRemoveWalksUpWhileLeaf(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	left, right := tr.Split(tr.root, "then", "else")

	tr.Remove(left)
	qt.Assert(t, qt.Equals(len(tr.table), 1))
	qt.Assert(t, qt.IsNil(tr.root.Left))
	qt.Assert(t, qt.IsNotNil(tr.root.Right))

	tr.Remove(right)
	qt.Assert(t, qt.Equals(len(tr.table), 3))
	// root itself became a leaf once both children were detached, so it
	// was tabled and removed too, leaving the tree empty.
	qt.Assert(t, qt.IsNil(tr.root))
}

func TestRemoveSkipsTablingAlreadySubsumedNode(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	left, right := tr.Split(tr.root, "then", "else")
	left.IsSubsumed = true

	tr.Remove(left)
	qt.Assert(t, qt.Equals(len(tr.table), 0))

	tr.Remove(right)
	// right was not subsumed; root became a leaf afterward and also was
	// not subsumed, so both get tabled.
	qt.Assert(t, qt.Equals(len(tr.table), 2))
}

func TestCheckCurrentStateSubsumptionMismatchPanics(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	left, _ := tr.Split(tr.root, "then", "else")
	state := &ExecutionState{Node: left}

	defer func() {
		r := recover()
		qt.Assert(t, qt.IsNotNil(r))
	}()
	tr.CheckCurrentStateSubsumption(solver.NewReference(), state, time.Second)
}

func TestCheckCurrentStateSubsumptionMarksAndNotifies(t *testing.T) {
	obs := newFakeObserver()
	tr := NewTree("entry", obs, &counter{})

	// left and right are two distinct Node objects that both land on
	// "loop.head" — a loop back edge or two branches rejoining. Removing
	// right tables an entry under that program point; left must then be
	// found subsumed by it even though it is a different node with a
	// different (and earlier) NodeID.
	left, right := tr.Split(tr.root, "loop.head", "loop.head")
	tr.Remove(right)
	qt.Assert(t, qt.Equals(len(tr.table), 1))
	qt.Assert(t, qt.IsFalse(left.id == right.id))

	tr.SetCurrentNode(left)
	state := &ExecutionState{Node: left}
	ok := tr.CheckCurrentStateSubsumption(solver.NewReference(), state, time.Second)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(left.IsSubsumed))
	qt.Assert(t, qt.Equals(len(obs.subsumed), 1))
	qt.Assert(t, qt.Equals(obs.subsumed[left.id], tr.table[0]))
}

func TestMakeMarkerMapProducesDisjunctMarkersForOr(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	p := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	q := expr.Slt(expr.BV(32, 3), expr.BV(32, 4))
	tr.root.AddConstraint(expr.Or(p, q), nil)

	markers := tr.root.MakeMarkerMap()
	qt.Assert(t, qt.Equals(len(markers), 3))
}

func TestMarkPathConditionFlagsMatchingAtomsOnly(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	c1 := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	c2 := expr.Slt(expr.BV(32, 3), expr.BV(32, 4))
	tr.root.AddConstraint(c1, nil)
	tr.root.AddConstraint(c2, nil)

	// root.head is the c2 atom (most recently prepended), with c1's atom
	// as its tail. Only c1 appears in the unsat core.
	tr.MarkPathCondition(tr.root, nil, []expr.Expr{c1})

	qt.Assert(t, qt.IsFalse(tr.root.head.InInterpolant))
	qt.Assert(t, qt.IsTrue(tr.root.head.Tail.InInterpolant))
}

func TestGetInterpolantDelegatesToPackInterpolant(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	c1 := expr.Slt(expr.BV(32, 1), expr.BV(32, 2))
	tr.root.AddConstraint(c1, nil)
	tr.root.head.InInterpolant = true

	got := tr.root.GetInterpolant(expr.NewRenaming(&counter{}))
	qt.Assert(t, qt.IsTrue(expr.Equal(got, c1)))
}

func TestExecuteAbstractDependencyVariantsRegisterValues(t *testing.T) {
	tr := NewTree("entry", nil, &counter{})
	tr.ExecuteAbstractDependency(tr.root, "v1", expr.BV(32, 1))
	tr.ExecuteAbstractBinaryDependency(tr.root, "v2", expr.BV(32, 2), "v1", "v1")
	tr.ExecuteAbstractMemoryDependency(tr.root, "v3", expr.BV(32, 3), "addr")

	vv, ok := tr.root.Dependency().GetLatestValue("v2")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(expr.Equal(vv.Expr, expr.BV(32, 2))))

	vv, ok = tr.root.Dependency().GetLatestValue("v3")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(expr.Equal(vv.Expr, expr.BV(32, 3))))
}
