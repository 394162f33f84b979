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

// Package scenario replaces the LLVM instruction stream klee's ITree is
// normally driven by with a small YAML-described trace: assignments,
// branches, straight-line assumptions and terminations. Run replays a
// Scenario against an engine.Engine, giving spec.md §6's
// interpreter-facing operations a concrete caller.
package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
)

// ExprSpec is a small recursive expression DSL, parsed from YAML and
// built into an expr.Expr by Build. Exactly one of Const, Var or Op
// should be set.
type ExprSpec struct {
	// Const, when set, builds a bitvector constant.
	Const *ConstSpec `yaml:"const,omitempty"`
	// Var, when set, looks up a previously assigned variable.
	Var string `yaml:"var,omitempty"`
	// Op, when set, builds a binary or unary expression from LHS
	// (and, for binary ops, RHS). Valid values: eq, ne, and, or, not,
	// slt, sle, sgt, sge, ult, ule, add, sub, mul.
	Op  string    `yaml:"op,omitempty"`
	LHS *ExprSpec `yaml:"lhs,omitempty"`
	RHS *ExprSpec `yaml:"rhs,omitempty"`
}

// ConstSpec is a bitvector constant literal.
type ConstSpec struct {
	Width uint32 `yaml:"width"`
	Value uint64 `yaml:"value"`
}

var binaryBuilders = map[string]func(lhs, rhs expr.Expr) expr.Expr{
	"eq":  expr.Eq,
	"ne":  expr.Ne,
	"and": expr.And,
	"or":  expr.Or,
	"slt": expr.Slt,
	"sle": expr.Sle,
	"sgt": expr.Sgt,
	"sge": expr.Sge,
	"ult": expr.Ult,
	"ule": expr.Ule,
	"add": expr.Add,
	"sub": expr.Sub,
	"mul": expr.Mul,
}

// Build constructs an expr.Expr from s, resolving Var references against
// env.
func (s *ExprSpec) Build(env map[string]expr.Expr) (expr.Expr, error) {
	if s == nil {
		return nil, fmt.Errorf("scenario: nil expression")
	}
	switch {
	case s.Const != nil:
		return expr.BV(s.Const.Width, s.Const.Value), nil
	case s.Var != "":
		e, ok := env[s.Var]
		if !ok {
			return nil, fmt.Errorf("scenario: undefined variable %q", s.Var)
		}
		return e, nil
	case s.Op == "not":
		x, err := s.LHS.Build(env)
		if err != nil {
			return nil, err
		}
		return expr.NewNot(x), nil
	case s.Op != "":
		build, ok := binaryBuilders[s.Op]
		if !ok {
			return nil, fmt.Errorf("scenario: unknown operator %q", s.Op)
		}
		lhs, err := s.LHS.Build(env)
		if err != nil {
			return nil, err
		}
		rhs, err := s.RHS.Build(env)
		if err != nil {
			return nil, err
		}
		return build(lhs, rhs), nil
	default:
		return nil, fmt.Errorf("scenario: expression has no const, var or op set")
	}
}

// AssignStep binds the result of evaluating Value to Var, registering it
// in the current node's dependency via ExecuteAbstractDependency so
// later steps can read it back as an operand.
type AssignStep struct {
	Var   string    `yaml:"var"`
	Value *ExprSpec `yaml:"value"`
}

// BranchStep splits the current node in two. Condition (negated when
// Take is "else") is added as a constraint on the taken side (the side
// named by Take); if Infeasible is set, the untaken side receives the
// opposite constraint, is immediately proved infeasible by
// markPathCondition and removed, modeling the solver having pruned it.
type BranchStep struct {
	Condition *ExprSpec `yaml:"condition"`
	// OnVar, if set, names the variable the branch predicate was read
	// from, so the engine can mark it reachable during interpolation
	// the way a real conditional branch instruction would.
	OnVar string `yaml:"onVar,omitempty"`
	Then  string `yaml:"then"`
	Else  string `yaml:"else"`
	// Take is "then" or "else": which child the trace continues on.
	Take       string          `yaml:"take"`
	Infeasible *InfeasibleSpec `yaml:"infeasible,omitempty"`
}

// InfeasibleSpec describes the unsat core the solver reports for the
// untaken branch of a BranchStep.
type InfeasibleSpec struct {
	UnsatCore []*ExprSpec `yaml:"unsatCore"`
}

// AssumeStep adds a constraint to the current node without splitting,
// modeling a straight-line assumption (e.g. a successful array bounds
// check) rather than a two-way branch.
type AssumeStep struct {
	Constraint *ExprSpec `yaml:"constraint"`
	OnVar      string    `yaml:"onVar,omitempty"`
}

// TerminateStep removes the current node, tabling it unless it was
// already proved subsumed.
type TerminateStep struct{}

// Step is a tagged union of the four step kinds; exactly one field
// should be set.
type Step struct {
	Assign    *AssignStep    `yaml:"assign,omitempty"`
	Branch    *BranchStep    `yaml:"branch,omitempty"`
	Assume    *AssumeStep    `yaml:"assume,omitempty"`
	Terminate *TerminateStep `yaml:"terminate,omitempty"`
}

// Scenario is a full replayable trace.
type Scenario struct {
	Root  string `yaml:"root"`
	Steps []Step `yaml:"steps"`
}

// Parse decodes a Scenario from YAML source.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	return &sc, nil
}

// programValue gives scenario a tiny, deterministic ProgramValue
// minting scheme: each variable name is its own ProgramValue, so no
// counter is needed.
func programValue(name string) dependency.ProgramValue {
	return dependency.ProgramValue(name)
}
