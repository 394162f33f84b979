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

// Package searchtree renders an interpolation tree as a Graphviz dot
// graph, mirroring it one event at a time rather than walking the live
// tree at render time. It is the Go counterpart of klee's SearchTree,
// and implements itree.Observer without importing the itree package:
// every method below is expressed in terms of subsume.NodeID (which
// itree.NodeID is a plain alias of) and the pathcond/subsume pointer
// types itree already hands to its observer, so the mirror stays one
// way — itree knows about Observer, searchtree knows about nothing
// upstream of it.
package searchtree

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/subsume"
)

// line is a single rendered path-condition entry: the text klee would
// have gotten from ExprPPrinter, plus whether it was later flagged as
// belonging to an interpolant.
type line struct {
	text        string
	interpolant bool
}

// Node is the display counterpart of an itree.Node. Its orderID and
// programPoint are only meaningful once SetCurrentNode has visited it;
// a freshly split child sits with both zero until then, exactly as
// klee's SearchTree::Node does between createNode and setCurrentNode.
type Node struct {
	orderID      int
	programPoint string

	lines    []*pathcond.Atom
	lineText map[*pathcond.Atom]*line

	subsumed bool

	falseTarget, trueTarget *Node
}

func newNode() *Node {
	return &Node{lineText: map[*pathcond.Atom]*line{}}
}

// Tree is a rendered mirror of one interpolation tree. It is a plain
// value the caller holds alongside the itree.Tree it observes — there
// is no process-wide singleton the way klee's SearchTree::instance is.
type Tree struct {
	root *Node

	nodes         map[subsume.NodeID]*Node
	tableEntryMap map[*subsume.TableEntry]*Node
	atomOwner     map[*pathcond.Atom]*Node

	subsumptionEdges map[*Node]*Node
	edgeOrder        []*Node

	nextOrderID int
	title       string
}

// New creates a Tree observing the interpolation tree whose root node
// carries rootID.
func New(rootID subsume.NodeID) *Tree {
	root := newNode()
	return &Tree{
		root:             root,
		nodes:            map[subsume.NodeID]*Node{rootID: root},
		tableEntryMap:    map[*subsume.TableEntry]*Node{},
		atomOwner:        map[*pathcond.Atom]*Node{},
		subsumptionEdges: map[*Node]*Node{},
		nextOrderID:      1,
		title:            uuid.NewString(),
	}
}

// Title is the run identifier embedded in Render's output, fresh per
// Tree so graphs from different runs never collide in a shared
// directory of .dot files.
func (t *Tree) Title() string { return t.title }

// AddChildren implements itree.Observer.
func (t *Tree) AddChildren(parent, falseChild, trueChild subsume.NodeID) {
	p := t.nodes[parent]
	p.falseTarget = newNode()
	p.trueTarget = newNode()
	t.nodes[falseChild] = p.falseTarget
	t.nodes[trueChild] = p.trueTarget
}

// SetCurrentNode implements itree.Observer. The display order id is
// assigned here, at visit time, rather than at node creation — a node
// can sit split-but-unvisited for a while, and klee's nextNodeId counter
// only advances when the interpreter actually arrives.
func (t *Tree) SetCurrentNode(id subsume.NodeID, programPoint string) {
	n := t.nodes[id]
	n.programPoint = programPoint
	n.orderID = t.nextOrderID
	t.nextOrderID++
}

// AddPathCondition implements itree.Observer.
func (t *Tree) AddPathCondition(id subsume.NodeID, atom *pathcond.Atom, text string) {
	n := t.nodes[id]
	n.lines = append(n.lines, atom)
	n.lineText[atom] = &line{text: stripNewlines(text)}
	t.atomOwner[atom] = n
}

func stripNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}

// IncludeInInterpolant implements itree.Observer: it flags atom's
// rendered line wherever it was added, which may be an ancestor of any
// node currently being checked for subsumption, since path-condition
// atoms are shared by reference down the tree.
func (t *Tree) IncludeInInterpolant(atom *pathcond.Atom) {
	n, ok := t.atomOwner[atom]
	if !ok {
		return
	}
	n.lineText[atom].interpolant = true
}

// AddTableEntryMapping implements itree.Observer.
func (t *Tree) AddTableEntryMapping(id subsume.NodeID, entry *subsume.TableEntry) {
	t.tableEntryMap[entry] = t.nodes[id]
}

// MarkAsSubsumed implements itree.Observer.
func (t *Tree) MarkAsSubsumed(id subsume.NodeID, entry *subsume.TableEntry) {
	n := t.nodes[id]
	n.subsumed = true
	if subsuming, ok := t.tableEntryMap[entry]; ok {
		t.subsumptionEdges[n] = subsuming
		t.edgeOrder = append(t.edgeOrder, n)
	}
}

// Render produces the dot source for the tree, in the same
// shape="record" / port / dashed-edge grammar as klee's
// SearchTree::render. It returns the empty string if the tree has no
// root.
func (t *Tree) Render() string {
	if t.root == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph search_tree {\n")
	fmt.Fprintf(&b, "// session %s\n", t.title)
	b.WriteString(renderNode(t.root))
	for _, n := range t.edgeOrder {
		fmt.Fprintf(&b, "Node%d -> Node%d [style=dashed];\n", n.orderID, t.subsumptionEdges[n].orderID)
	}
	b.WriteString("}\n")
	return b.String()
}

func renderNode(n *Node) string {
	var b strings.Builder
	name := fmt.Sprintf("Node%d", n.orderID)

	fmt.Fprintf(&b, "%s [shape=record,label=\"{%d: %s\\l", name, n.orderID, n.programPoint)
	for _, atom := range n.lines {
		ln := n.lineText[atom]
		b.WriteString(ln.text)
		if ln.interpolant {
			b.WriteString(" (I)")
		}
		b.WriteString("\\l")
	}
	if n.subsumed {
		b.WriteString("(subsumed)\\l")
	}
	if n.falseTarget != nil || n.trueTarget != nil {
		b.WriteString("|{<s0>F|<s1>T}")
	}
	b.WriteString("}\"];\n")

	if n.falseTarget != nil {
		fmt.Fprintf(&b, "%s:s0 -> Node%d;\n", name, n.falseTarget.orderID)
	}
	if n.trueTarget != nil {
		fmt.Fprintf(&b, "%s:s1 -> Node%d;\n", name, n.trueTarget.orderID)
	}
	if n.falseTarget != nil {
		b.WriteString(renderNode(n.falseTarget))
	}
	if n.trueTarget != nil {
		b.WriteString(renderNode(n.trueTarget))
	}
	return b.String()
}

// Save writes Render's output to filename.
func (t *Tree) Save(filename string) error {
	return os.WriteFile(filename, []byte(t.Render()), 0o644)
}
