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

func newRunCmd(flags *rootFlags) *cobra.Command {
	var savePath string
	var dumpTable bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "replay a scenario trace against the interpolation-tree engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			sc, err := scenario.Parse(data)
			if err != nil {
				return err
			}

			e := engine.New(cfg, sc.Root, solver.NewReference())
			if cfg.LogEval > 0 {
				e.SetLogWriter(cmd.OutOrStderr())
			}

			res, err := scenario.Run(e, sc)
			if err != nil {
				return err
			}

			if res.Subsumed {
				fmt.Fprintf(cmd.OutOrStdout(), "subsumed at %s after %d step(s)\n", res.SubsumedAt, res.StepsRun)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "completed %d step(s), not subsumed\n", res.StepsRun)
			}

			if savePath != "" {
				if err := e.Save(savePath); err != nil {
					return fmt.Errorf("run: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "search tree written to %s\n", savePath)
			}
			if dumpTable {
				e.DumpTable(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "write the rendered search tree to this .dot file")
	cmd.Flags().BoolVar(&dumpTable, "dump-table", false, "print the accumulated subsumption table after replay")
	return cmd
}
