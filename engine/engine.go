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

// Package engine assembles the interpolation tree, its search-tree
// observer, the solver gateway, and a configuration into the single
// surface an interpreter (or, here, internal/scenario's replayer) drives.
// It is the Go counterpart of the interpreter-facing slice of klee's
// ITree/ITreeNode API listed in spec.md §6.
package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/symbexec/itree/internal/config"
	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/itree"
	"github.com/symbexec/itree/internal/core/solver"
	"github.com/symbexec/itree/internal/searchtree"
)

// uuidNamer mints shadow-array name suffixes from fresh UUIDs, so two
// subsumption-table entries built anywhere in a run never collide even
// if their shadowed arrays share a base name.
type uuidNamer struct{}

func (uuidNamer) NextSuffix() string { return uuid.NewString() }

// Engine owns one interpolation tree, its search-tree mirror, and the
// solver gateway and configuration every operation on the tree is
// performed under.
type Engine struct {
	cfg   config.Config
	tree  *itree.Tree
	graph *searchtree.Tree
	gw    solver.Gateway

	sessionID string
	logw      io.Writer
}

// New constructs an Engine rooted at programPoint, using gw as the
// solver gateway. gw is typically solver.NewReference() in tests and in
// the scenario CLI; a real deployment would substitute a binding to an
// actual SMT solver behind the same solver.Gateway interface.
func New(cfg config.Config, programPoint string, gw solver.Gateway) *Engine {
	sessionID := uuid.NewString()
	graph := searchtree.New(1)
	tree := itree.NewTree(programPoint, graph, uuidNamer{})
	return &Engine{
		cfg:       cfg,
		tree:      tree,
		graph:     graph,
		gw:        gw,
		sessionID: sessionID,
		logw:      io.Discard,
	}
}

// SessionID is the Engine's run identifier, e.g. for a CLI to name its
// output file after. It is not written into the rendered graph, whose
// session comment carries searchtree.Tree.Title, a UUID minted
// independently of this one.
func (e *Engine) SessionID() string { return e.sessionID }

// SetLogWriter redirects the engine's evaluation trace, which is only
// written when cfg.LogEval > 0. Defaults to io.Discard.
func (e *Engine) SetLogWriter(w io.Writer) { e.logw = w }

func (e *Engine) logf(format string, args ...any) {
	if e.cfg.LogEval > 0 {
		fmt.Fprintf(e.logw, format, args...)
	}
}

// Root returns the tree's root node.
func (e *Engine) Root() *itree.Node { return e.tree.Root() }

// Current returns the node the interpreter currently occupies.
func (e *Engine) Current() *itree.Node { return e.tree.Current() }

// SetCurrentNode repositions the interpreter at n. It is the Go
// counterpart of setCurrentINode.
func (e *Engine) SetCurrentNode(n *itree.Node) {
	e.tree.SetCurrentNode(n)
	e.logf("itree: current node -> #%d %s\n", n.ID(), n.ProgramPoint)
}

// AddConstraint prepends constraint onto node's path condition. The
// interpreter calls this directly on the node it is currently
// executing, per spec.md's data-flow note that new constraints notify
// the tree via addConstraint rather than through a tree-level method.
func (e *Engine) AddConstraint(node *itree.Node, constraint expr.Expr, condition *dependency.VersionedValue) {
	node.AddConstraint(constraint, condition)
}

// Split branches parent into two fresh children at leftPoint and
// rightPoint.
func (e *Engine) Split(parent *itree.Node, leftPoint, rightPoint string) (left, right *itree.Node) {
	left, right = e.tree.Split(parent, leftPoint, rightPoint)
	e.logf("itree: split #%d -> #%d (%s), #%d (%s)\n", parent.ID(), left.ID(), leftPoint, right.ID(), rightPoint)
	return left, right
}

// Remove detaches node (and any ancestor that becomes a leaf as a
// result) from the tree, tabling each as a subsumption-table entry
// unless already proved subsumed.
func (e *Engine) Remove(node *itree.Node) {
	e.tree.Remove(node)
	e.logf("itree: removed #%d\n", node.ID())
}

// CheckCurrentStateSubsumption decides whether state, which must
// occupy the tree's current node, is entailed by some existing
// subsumption-table entry. It is a no-op returning false when
// cfg.Interpolation is disabled, matching klee's
// InterpolationOption::interpolation gate.
func (e *Engine) CheckCurrentStateSubsumption(state *itree.ExecutionState) bool {
	if !e.cfg.Interpolation {
		return false
	}
	ok := e.tree.CheckCurrentStateSubsumption(e.gw, state, e.cfg.SolverTimeout)
	e.logf("itree: subsumption check at %s -> %v\n", state.Point(), ok)
	return ok
}

// MarkPathCondition flags, within node's path condition, the atoms an
// unsat core implicates as belonging to its interpolant. It is a no-op
// when cfg.Interpolation is disabled.
func (e *Engine) MarkPathCondition(node *itree.Node, branchCondition *dependency.VersionedValue, unsatCore []expr.Expr) {
	if !e.cfg.Interpolation {
		return
	}
	e.tree.MarkPathCondition(node, branchCondition, unsatCore)
	e.logf("itree: marked path condition at #%d from %d-element unsat core\n", node.ID(), len(unsatCore))
}

// ExecuteAbstractBinaryDependency registers instr, executed at node, as
// the binary combination of lhs and rhs.
func (e *Engine) ExecuteAbstractBinaryDependency(node *itree.Node, instr dependency.ProgramValue, result expr.Expr, lhs, rhs dependency.ProgramValue) {
	e.tree.ExecuteAbstractBinaryDependency(node, instr, result, lhs, rhs)
}

// ExecuteAbstractMemoryDependency registers instr, executed at node, as
// a load through address.
func (e *Engine) ExecuteAbstractMemoryDependency(node *itree.Node, instr dependency.ProgramValue, result expr.Expr, address dependency.ProgramValue) {
	e.tree.ExecuteAbstractMemoryDependency(node, instr, result, address)
}

// ExecuteAbstractDependency registers instr, executed at node, as
// flowing from operands.
func (e *Engine) ExecuteAbstractDependency(node *itree.Node, instr dependency.ProgramValue, result expr.Expr, operands ...dependency.ProgramValue) {
	e.tree.ExecuteAbstractDependency(node, instr, result, operands...)
}

// Print writes a short textual dump of the tree to w.
func (e *Engine) Print(w io.Writer) { e.tree.Print(w) }

// DumpTable writes a pretty-printed listing of the accumulated
// subsumption table to w, for debugging a run by hand.
func (e *Engine) DumpTable(w io.Writer) { e.tree.DumpTable(w) }

// Save writes the search-tree observer's rendered graph to filename.
func (e *Engine) Save(filename string) error { return e.graph.Save(filename) }

// Render returns the search-tree observer's rendered graph as a string,
// without writing it to disk.
func (e *Engine) Render() string { return e.graph.Render() }

// NewExecutionState adapts node into the itree.State subsumption
// checking needs.
func (e *Engine) NewExecutionState(node *itree.Node) *itree.ExecutionState {
	return &itree.ExecutionState{Node: node}
}

// SolverTimeout returns the configured per-query timeout, for callers
// that need to pass it elsewhere (e.g. a direct solver.Gateway call
// outside CheckCurrentStateSubsumption).
func (e *Engine) SolverTimeout() time.Duration { return e.cfg.SolverTimeout }
