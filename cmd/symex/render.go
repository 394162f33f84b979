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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/symbexec/itree/engine"
	"github.com/symbexec/itree/internal/core/solver"
	"github.com/symbexec/itree/internal/scenario"
)

func newRenderCmd(flags *rootFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "render <scenario.yaml>",
		Short: "replay a scenario trace and write its search tree as a dot graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			sc, err := scenario.Parse(data)
			if err != nil {
				return err
			}

			e := engine.New(cfg, sc.Root, solver.NewReference())
			if cfg.LogEval > 0 {
				e.SetLogWriter(cmd.OutOrStderr())
			}

			if _, err := scenario.Run(e, sc); err != nil {
				return err
			}

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), e.Render())
				return nil
			}
			if err := e.Save(outPath); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "search tree written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the dot graph here instead of stdout")
	return cmd
}
