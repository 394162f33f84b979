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

package searchtree

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/symbexec/itree/internal/core/pathcond"
	"github.com/symbexec/itree/internal/core/subsume"
)

func TestNewCreatesTitledRootAtID(t *testing.T) {
	tr := New(1)
	qt.Assert(t, qt.Equals(tr.root, tr.nodes[1]))
	qt.Assert(t, qt.IsTrue(tr.Title() != ""))
}

func TestSetCurrentNodeAssignsOrderIDAtVisitTime(t *testing.T) {
	tr := New(1)
	tr.AddChildren(1, 2, 3)

	// Visit the true child before the root: its order id reflects visit
	// order, not tree structure or creation order.
	tr.SetCurrentNode(3, "true-branch")
	tr.SetCurrentNode(1, "entry")

	qt.Assert(t, qt.Equals(tr.nodes[3].orderID, 1))
	qt.Assert(t, qt.Equals(tr.nodes[1].orderID, 2))
	qt.Assert(t, qt.Equals(tr.nodes[1].programPoint, "entry"))
}

func TestAddPathConditionRecordsOwnerForCrossNodeLookup(t *testing.T) {
	tr := New(1)
	tr.SetCurrentNode(1, "entry")
	atom := pathcond.New(nil, nil, nil)
	tr.AddPathCondition(1, atom, "x < 2\n")

	ln := tr.nodes[1].lineText[atom]
	qt.Assert(t, qt.Equals(ln.text, "x < 2"))
	qt.Assert(t, qt.IsFalse(ln.interpolant))
	qt.Assert(t, qt.Equals(tr.atomOwner[atom], tr.nodes[1]))
}

func TestIncludeInInterpolantFlagsOwningNodesLine(t *testing.T) {
	tr := New(1)
	tr.AddChildren(1, 2, 3)
	tr.SetCurrentNode(1, "entry")
	tr.SetCurrentNode(2, "false-branch")

	// atom was added at the root, then inherited by the false child; a
	// later subsumption proof at the child must still flag the root's
	// rendered line, since that is where the atom actually lives.
	atom := pathcond.New(nil, nil, nil)
	tr.AddPathCondition(1, atom, "x < 2")

	tr.IncludeInInterpolant(atom)
	qt.Assert(t, qt.IsTrue(tr.nodes[1].lineText[atom].interpolant))
}

func TestIncludeInInterpolantOnUnknownAtomIsNoop(t *testing.T) {
	tr := New(1)
	tr.IncludeInInterpolant(pathcond.New(nil, nil, nil))
}

func TestMarkAsSubsumedDrawsEdgeOnlyAfterTableEntryMapping(t *testing.T) {
	tr := New(1)
	tr.AddChildren(1, 2, 3)
	tr.SetCurrentNode(1, "entry")
	tr.SetCurrentNode(2, "false-branch")
	tr.SetCurrentNode(3, "true-branch")

	entry := &subsume.TableEntry{}
	tr.AddTableEntryMapping(2, entry)
	tr.MarkAsSubsumed(3, entry)

	qt.Assert(t, qt.IsTrue(tr.nodes[3].subsumed))
	qt.Assert(t, qt.Equals(tr.subsumptionEdges[tr.nodes[3]], tr.nodes[2]))
	qt.Assert(t, qt.Equals(len(tr.edgeOrder), 1))
}

func TestMarkAsSubsumedWithoutTableEntryMappingSkipsEdge(t *testing.T) {
	tr := New(1)
	entry := &subsume.TableEntry{}
	tr.MarkAsSubsumed(1, entry)

	qt.Assert(t, qt.IsTrue(tr.nodes[1].subsumed))
	qt.Assert(t, qt.Equals(len(tr.edgeOrder), 0))
}

func TestRenderProducesRecordNodesPortsAndDashedEdges(t *testing.T) {
	tr := New(1)
	tr.AddChildren(1, 2, 3)
	tr.SetCurrentNode(1, "entry")
	tr.SetCurrentNode(2, "false-branch")
	tr.SetCurrentNode(3, "true-branch")

	atom := pathcond.New(nil, nil, nil)
	tr.AddPathCondition(1, atom, "x < 2")
	tr.IncludeInInterpolant(atom)

	entry := &subsume.TableEntry{}
	tr.AddTableEntryMapping(2, entry)
	tr.MarkAsSubsumed(3, entry)

	out := tr.Render()

	// node ids: 1=root (order 1, "entry"), 2=false child (order 2,
	// "false-branch", the subsumption table entry's origin), 3=true
	// child (order 3, "true-branch", the one proved subsumed).
	qt.Assert(t, qt.IsTrue(strings.HasPrefix(out, "digraph search_tree {\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "// session "+tr.Title())))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node1 [shape=record,label=\"{1: entry\\lx < 2 (I)\\l|{<s0>F|<s1>T}}\"];\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node1:s0 -> Node2;\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node1:s1 -> Node3;\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node2 [shape=record,label=\"{2: false-branch\\l}\"];\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node3 [shape=record,label=\"{3: true-branch\\l(subsumed)\\l}\"];\n")))
	qt.Assert(t, qt.IsTrue(strings.Contains(out, "Node3 -> Node2 [style=dashed];\n")))
	qt.Assert(t, qt.IsTrue(strings.HasSuffix(out, "}\n")))
}

func TestRenderOfUnsetRootReturnsEmpty(t *testing.T) {
	tr := &Tree{}
	qt.Assert(t, qt.Equals(tr.Render(), ""))
}
