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
	"io"
	"time"

	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/solver"
	"github.com/symbexec/itree/internal/core/subsume"
)

// Observer mirrors ITree mutations into a separately owned display tree
// (see the searchtree package). It is a one-way relationship — the tree
// sends events, the observer never calls back into it — so Node and Tree
// depend only on this interface rather than on searchtree's concrete
// types, and searchtree in turn never imports itree. Atoms and table
// entries are used as map keys by implementations, exactly as klee's
// SearchTree keys its bookkeeping off PathCondition* and
// SubsumptionTableEntry* pointer identity.
type Observer interface {
	// AddChildren records that parent split into a false-branch and a
	// true-branch child.
	AddChildren(parent, falseChild, trueChild NodeID)
	// SetCurrentNode records that the interpreter is now positioned at
	// id, reached at programPoint.
	SetCurrentNode(id NodeID, programPoint string)
	// AddPathCondition records a single rendered path-condition line,
	// keyed by the atom it renders, for node id.
	AddPathCondition(id NodeID, atom *pathcond.Atom, line string)
	// IncludeInInterpolant flags atom's rendered line as belonging to the
	// interpolant.
	IncludeInInterpolant(atom *pathcond.Atom)
	// AddTableEntryMapping records that entry was built from node id, so
	// a later MarkAsSubsumed can draw a dashed edge back to it.
	AddTableEntryMapping(id NodeID, entry *subsume.TableEntry)
	// MarkAsSubsumed records that id was proved subsumed by entry.
	MarkAsSubsumed(id NodeID, entry *subsume.TableEntry)
}

// Tree is the interpolation tree proper: the binary tree of Nodes plus
// the subsumption table accumulated from removed leaves. It is the Go
// counterpart of klee's ITree.
type Tree struct {
	root, current *Node
	table         []*subsume.TableEntry
	observer      Observer
	namer         expr.ShadowNamer
	nextID        NodeID
}

// NewTree creates a Tree with a single root node at programPoint and no
// accumulated dependency. observer and namer may be nil.
func NewTree(programPoint string, observer Observer, namer expr.ShadowNamer) *Tree {
	root := &Node{
		id:           1,
		ProgramPoint: programPoint,
		dep:          dependency.NewDependency(nil),
		observer:     observer,
	}
	t := &Tree{root: root, current: root, observer: observer, namer: namer, nextID: 2}
	if observer != nil {
		observer.SetCurrentNode(root.id, programPoint)
	}
	return t
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Current returns the node the interpreter currently occupies.
func (t *Tree) Current() *Node { return t.current }

// SetCurrentNode repositions the interpreter at n.
func (t *Tree) SetCurrentNode(n *Node) {
	t.current = n
	if t.observer != nil {
		t.observer.SetCurrentNode(n.id, n.ProgramPoint)
	}
}

// Split branches parent into two fresh children, each inheriting
// parent's path-condition head and a dependency derived from parent's.
// It panics if parent already has children: a node is split exactly
// once, at the conditional branch that ends it.
func (t *Tree) Split(parent *Node, leftPoint, rightPoint string) (left, right *Node) {
	if parent.Left != nil || parent.Right != nil {
		panic("itree: split of node that already has children")
	}

	left = &Node{
		id: t.nextID, ProgramPoint: leftPoint, Parent: parent,
		head: parent.head, dep: dependency.NewDependency(parent.dep),
		observer: t.observer,
	}
	t.nextID++
	right = &Node{
		id: t.nextID, ProgramPoint: rightPoint, Parent: parent,
		head: parent.head, dep: dependency.NewDependency(parent.dep),
		observer: t.observer,
	}
	t.nextID++

	parent.Left, parent.Right = left, right

	if t.observer != nil {
		t.observer.AddChildren(parent.id, left.id, right.id)
	}
	return left, right
}

// Remove detaches node from the tree. node must be a leaf: removing an
// internal node is a usage violation. Per ITree::remove, a node not
// already proved subsumed is first tabled as a SubsumptionTableEntry;
// the walk then continues upward through any ancestor that becomes a
// leaf as a result, tabling each of those in turn.
func (t *Tree) Remove(node *Node) {
	if node.Left != nil || node.Right != nil {
		panic("itree: remove of internal node")
	}

	for cur := node; cur != nil && cur.Left == nil && cur.Right == nil; {
		if !cur.IsSubsumed {
			entry := subsume.NewTableEntry(cur, t.namer)
			t.table = append(t.table, entry)
			if t.observer != nil {
				t.observer.AddTableEntryMapping(cur.id, entry)
			}
		}

		parent := cur.Parent
		if parent == nil {
			if cur == t.root {
				t.root, t.current = nil, nil
			}
			return
		}

		switch cur {
		case parent.Left:
			parent.Left = nil
		case parent.Right:
			parent.Right = nil
		default:
			panic("itree: node is not a child of its recorded parent")
		}
		cur = parent
	}
}

// CheckCurrentStateSubsumption iterates the subsumption table in
// insertion order, calling Subsumed against state. On the first success
// it marks the current node subsumed, notifies the observer, and
// returns true. state must occupy the tree's current node: a mismatch
// is a usage violation, since subsumption is always checked against the
// node the interpreter is actually at.
func (t *Tree) CheckCurrentStateSubsumption(gw solver.Gateway, state *ExecutionState, timeout time.Duration) bool {
	if state.Node != t.current {
		panic("itree: mismatched state itree node")
	}
	for _, entry := range t.table {
		if entry.Subsumed(gw, state, timeout) {
			t.current.IsSubsumed = true
			if t.observer != nil {
				t.observer.MarkAsSubsumed(t.current.id, entry)
				for _, m := range state.Markers() {
					if m.Atom.InInterpolant {
						t.observer.IncludeInInterpolant(m.Atom)
					}
				}
			}
			return true
		}
	}
	return false
}

// MarkPathCondition is called once a solver query has proved a branch at
// node infeasible. branchCondition, when the terminating instruction was
// a conditional branch, is marked as reachable in node's dependency in
// addition to whatever the unsat core implicates. unsatCore is then
// walked in reverse against node's path condition from head down: each
// atom whose constraint matches (by structural identity) the current
// core element is flagged InInterpolant and the core cursor advances;
// the walk stops once the path condition is exhausted. It finishes by
// committing the accumulated allocation marks into node's dependency.
func (t *Tree) MarkPathCondition(node *Node, branchCondition *dependency.VersionedValue, unsatCore []expr.Expr) {
	g := dependency.NewAllocationGraph()
	if branchCondition != nil {
		node.dep.MarkAllValues(g, branchCondition.Value)
	}

	i := len(unsatCore) - 1
	for a := node.head; a != nil && i >= 0; a = a.Tail {
		if expr.Compare(a.Constraint, unsatCore[i]) == 0 {
			a.IncludeInInterpolant(node.dep, g)
			if t.observer != nil {
				t.observer.IncludeInInterpolant(a)
			}
			i--
		}
	}

	node.dep.ComputeInterpolantAllocations(g)
}

// ExecuteAbstractBinaryDependency registers instr, executed at node, as
// the binary combination of lhs and rhs.
func (t *Tree) ExecuteAbstractBinaryDependency(node *Node, instr dependency.ProgramValue, result expr.Expr, lhs, rhs dependency.ProgramValue) {
	node.dep.ExecuteBinary(instr, result, lhs, rhs)
}

// ExecuteAbstractMemoryDependency registers instr, executed at node, as a
// load through address.
func (t *Tree) ExecuteAbstractMemoryDependency(node *Node, instr dependency.ProgramValue, result expr.Expr, address dependency.ProgramValue) {
	node.dep.ExecuteMemoryOperation(instr, result, address)
}

// ExecuteAbstractDependency registers instr, executed at node, as
// flowing from operands (casts, selects, phi nodes — anything neither
// binary nor a memory access).
func (t *Tree) ExecuteAbstractDependency(node *Node, instr dependency.ProgramValue, result expr.Expr, operands ...dependency.ProgramValue) {
	node.dep.Execute(instr, result, operands...)
}

// DumpTable writes every accumulated subsumption-table entry to w, one
// pretty-printed entry at a time, in insertion order.
func (t *Tree) DumpTable(w io.Writer) {
	for i, entry := range t.table {
		fmt.Fprintf(w, "entry %d: %s\n", i, entry.Dump())
	}
}

// Print writes a short textual dump of the tree to w: one line per node,
// indented by depth, showing its id, program point, and subsumed flag.
// The observer's Save produces the full graph-description artifact;
// Print exists only for quick inspection from the command line.
func (t *Tree) Print(w io.Writer) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		fmt.Fprintf(w, "%*s#%d %s subsumed=%v\n", depth*2, "", n.id, n.ProgramPoint, n.IsSubsumed)
		walk(n.Left, depth+1)
		walk(n.Right, depth+1)
	}
	walk(t.root, 0)
}
