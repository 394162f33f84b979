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

package scenario

import (
	"fmt"

	"github.com/symbexec/itree/engine"
	"github.com/symbexec/itree/internal/core/dependency"
	"github.com/symbexec/itree/internal/core/expr"
	"github.com/symbexec/itree/internal/core/itree"
)

// Result summarizes a completed replay.
type Result struct {
	// Subsumed is true if the trace ended early because
	// CheckCurrentStateSubsumption succeeded at some node.
	Subsumed bool
	// SubsumedAt is the program point the trace was pruned at, when
	// Subsumed is true.
	SubsumedAt string
	// StepsRun is how many of Scenario.Steps actually executed.
	StepsRun int
}

// Run replays sc against e, starting at e.Root(). Before executing each
// step, it checks the current node for subsumption exactly as an
// interpreter entering a node would; a successful check stops the
// replay early.
func Run(e *engine.Engine, sc *Scenario) (Result, error) {
	current := e.Root()
	env := map[string]expr.Expr{}
	env["true"] = expr.True()
	env["false"] = expr.False()

	if ok := e.CheckCurrentStateSubsumption(e.NewExecutionState(current)); ok {
		return Result{Subsumed: true, SubsumedAt: current.ProgramPoint}, nil
	}

	for i, step := range sc.Steps {
		var err error
		current, err = runStep(e, current, env, step)
		if err != nil {
			return Result{StepsRun: i}, fmt.Errorf("scenario: step %d: %w", i, err)
		}
		if current == nil {
			// The node was removed (TerminateStep) and nothing
			// replaces it; the trace has nowhere left to run.
			return Result{StepsRun: i + 1}, nil
		}

		if ok := e.CheckCurrentStateSubsumption(e.NewExecutionState(current)); ok {
			return Result{Subsumed: true, SubsumedAt: current.ProgramPoint, StepsRun: i + 1}, nil
		}
	}
	return Result{StepsRun: len(sc.Steps)}, nil
}

func runStep(e *engine.Engine, current *itree.Node, env map[string]expr.Expr, step Step) (*itree.Node, error) {
	switch {
	case step.Assign != nil:
		return current, runAssign(e, current, env, step.Assign)
	case step.Branch != nil:
		return runBranch(e, current, env, step.Branch)
	case step.Assume != nil:
		return current, runAssume(e, current, env, step.Assume)
	case step.Terminate != nil:
		e.Remove(current)
		return nil, nil
	default:
		return current, fmt.Errorf("step has no assign, branch, assume or terminate set")
	}
}

func runAssign(e *engine.Engine, current *itree.Node, env map[string]expr.Expr, s *AssignStep) error {
	value, err := s.Value.Build(env)
	if err != nil {
		return err
	}
	env[s.Var] = value
	e.ExecuteAbstractDependency(current, programValue(s.Var), value)
	return nil
}

func runAssume(e *engine.Engine, current *itree.Node, env map[string]expr.Expr, s *AssumeStep) error {
	constraint, err := s.Constraint.Build(env)
	if err != nil {
		return err
	}
	e.AddConstraint(current, constraint, branchCondition(current, s.OnVar))
	return nil
}

func runBranch(e *engine.Engine, current *itree.Node, env map[string]expr.Expr, s *BranchStep) (*itree.Node, error) {
	cond, err := s.Condition.Build(env)
	if err != nil {
		return nil, err
	}

	falseNode, trueNode := e.Split(current, s.Else, s.Then)
	condition := branchCondition(current, s.OnVar)

	var taken, untaken *itree.Node
	var takenCond, untakenCond expr.Expr
	switch s.Take {
	case "then":
		taken, untaken = trueNode, falseNode
		takenCond, untakenCond = cond, expr.NewNot(cond)
	case "else":
		taken, untaken = falseNode, trueNode
		takenCond, untakenCond = expr.NewNot(cond), cond
	default:
		return nil, fmt.Errorf("branch.take must be \"then\" or \"else\", got %q", s.Take)
	}

	e.AddConstraint(taken, takenCond, condition)
	e.SetCurrentNode(taken)

	if s.Infeasible != nil {
		core := make([]expr.Expr, len(s.Infeasible.UnsatCore))
		for i, spec := range s.Infeasible.UnsatCore {
			core[i], err = spec.Build(env)
			if err != nil {
				return nil, err
			}
		}
		e.AddConstraint(untaken, untakenCond, condition)
		e.MarkPathCondition(untaken, condition, core)
		e.Remove(untaken)
	}

	return taken, nil
}

// branchCondition looks up onVar's current VersionedValue at node, for
// passing to AddConstraint/MarkPathCondition as the branch predicate's
// source value. Returns nil if onVar is empty or unbound.
func branchCondition(node *itree.Node, onVar string) *dependency.VersionedValue {
	if onVar == "" {
		return nil
	}
	vv, ok := node.Dependency().GetLatestValue(programValue(onVar))
	if !ok {
		return nil
	}
	return vv
}
