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

// Package dependency tracks, for a single interpolation-tree node, which
// symbolic values flow into which instructions and which memory cells
// underlie an expression. It is the concrete body of the "external"
// Dependency contract spec.md §4.7 describes: value-flow between
// VersionedValues, a points-to layer recovered from the original klee
// source (see pointsto.go), and the allocation-graph marking that backs
// interpolant construction.
package dependency

import "github.com/symbexec/itree/internal/core/expr"

// ProgramValue identifies a program value — the instruction result, local
// variable, or argument a VersionedValue is bound to. It stands in for
// klee's llvm::Value*.
type ProgramValue string

// VersionedValue is a (program-value, expression) pair representing the
// symbolic value flowing through a given instruction at a given point.
type VersionedValue struct {
	Value ProgramValue
	Expr  expr.Expr
}
