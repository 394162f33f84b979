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
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/symbexec/itree/internal/config"
)

// rootFlags holds the configuration flags common to every subcommand,
// layered over a YAML file (if given) and then over the command line,
// matching cuedebug/cueexperiment's flag-struct-plus-file idiom.
type rootFlags struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{cfg: config.Default()}

	root := &cobra.Command{
		Use:           "symex",
		Short:         "replay interpolation-tree scenarios",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	config.RegisterFlags(root.PersistentFlags(), &flags.cfg)

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newRenderCmd(flags))
	return root
}

// resolve layers the config file named by --config (if any) under
// flags.cfg: the file supplies defaults, but any flag the user set
// explicitly on the command line overrides it, field by field.
func (f *rootFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	if f.configPath == "" {
		return f.cfg, nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	cmd.Flags().Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "interpolation":
			cfg.Interpolation = f.cfg.Interpolation
		case "solver-timeout":
			cfg.SolverTimeout = f.cfg.SolverTimeout
		case "log-eval":
			cfg.LogEval = f.cfg.LogEval
		}
	})
	return cfg, nil
}
