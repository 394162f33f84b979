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

// Package itree implements the interpolation tree: the binary tree of
// symbolic-execution states, each carrying a path-condition chain and a
// dependency graph, whose leaves are checked for subsumption against a
// table of interpolants recovered from earlier, already-removed leaves.
// It is the Go counterpart of klee's ITree and ITreeNode.
package itree

import (
	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/subsume"
)

// NodeID identifies a node for the lifetime of the tree that created it,
// one value per Node object. It is shared with subsume.NodeID purely so
// the Observer interface below (and searchtree's implementation of it)
// can reference the same type without searchtree importing this package;
// it addresses the observer's display nodes, not subsumption, which is
// matched on ProgramPoint via subsume.Node.Point instead.
type NodeID = subsume.NodeID

// Node is a single interpolation-tree node: a program point reached
// along one path, the constraints accumulated to reach it, and the
// dependency bookkeeping that lets a later interpolant describe it
// precisely. It is the Go counterpart of klee's ITreeNode.
type Node struct {
	id           NodeID
	ProgramPoint string
	Parent       *Node
	// Left is the false-branch child, Right the true-branch child,
	// matching the F/T ports of the observer's rendered graph.
	Left, Right *Node

	head *pathcond.Atom
	dep  *dependency.Dependency

	IsSubsumed bool

	observer Observer
}

// ID returns n's object-unique identity, used only to address n's box in
// the search-tree observer and in diagnostic logging. It is unrelated to
// subsumption, which is keyed on Point instead.
func (n *Node) ID() NodeID { return n.id }

// Point implements subsume.Node: the program-point identity subsumption
// matches on. Two different Nodes reached at the same ProgramPoint
// return equal values here, exactly as spec.md's nodeId requires.
func (n *Node) Point() subsume.ProgramPoint { return subsume.ProgramPoint(n.ProgramPoint) }

// PathConditionHead implements subsume.Node.
func (n *Node) PathConditionHead() *pathcond.Atom { return n.head }

// ParentDependency implements subsume.Node: a node's core expressions are
// described in terms of the state live at the first instruction of the
// node, which is its parent's dependency.
func (n *Node) ParentDependency() *dependency.Dependency {
	if n.Parent == nil {
		return nil
	}
	return n.Parent.dep
}

// Dependency returns n's own dependency instance, the one instructions
// executed at or below n register against.
func (n *Node) Dependency() *dependency.Dependency { return n.dep }

// AddConstraint prepends constraint onto n's path condition. condition
// may be nil when the constraint did not arise from branching on a
// single tracked value.
func (n *Node) AddConstraint(constraint expr.Expr, condition *dependency.VersionedValue) {
	n.head = pathcond.New(constraint, condition, n.head)
	if n.observer != nil {
		n.observer.AddPathCondition(n.id, n.head, n.head.Constraint.String())
	}
}

// GetInterpolant packs n's path condition into an interpolant formula,
// shadow-renaming through r. It is the Go counterpart of
// ITreeNode::getInterpolant.
func (n *Node) GetInterpolant(r *expr.Renaming) expr.Expr {
	return pathcond.PackInterpolant(n.head, r)
}

// MakeMarkerMap produces a marker for every atom in n's path condition.
// An atom whose constraint is a top-level disjunction Or(p, q) gets two
// additional markers, one per disjunct, sharing the same underlying atom
// — each disjunct of an Or is proved independently by the solver, so an
// unsat core naming only one disjunct must still be able to flag the
// whole atom as belonging to the interpolant (see spec scenario S5).
func (n *Node) MakeMarkerMap() []*pathcond.Marker {
	var markers []*pathcond.Marker
	pathcond.Walk(n.head, func(a *pathcond.Atom) {
		markers = append(markers, pathcond.NewMarker(a))
		if bin, ok := a.Constraint.(*expr.Binary); ok && bin.K == expr.KOr {
			markers = append(markers, pathcond.NewDisjunctMarker(a, bin.LHS))
			markers = append(markers, pathcond.NewDisjunctMarker(a, bin.RHS))
		}
	})
	return markers
}

// ExecutionState adapts a live Node to subsume.State, giving
// subsume.TableEntry.Subsumed the program-point identity check, the
// dependency to query, and the markers a successful proof should raise.
type ExecutionState struct {
	Node *Node
}

func (s *ExecutionState) Point() subsume.ProgramPoint        { return s.Node.Point() }
func (s *ExecutionState) Dependency() *dependency.Dependency { return s.Node.dep }
func (s *ExecutionState) Markers() []*pathcond.Marker        { return s.Node.MakeMarkerMap() }
func (s *ExecutionState) ComputeInterpolantAllocations(g *dependency.AllocationGraph) {
	s.Node.dep.ComputeInterpolantAllocations(g)
}
