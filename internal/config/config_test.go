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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"github.com/spf13/pflag"
)

func TestDefaultEnablesInterpolation(t *testing.T) {
	cfg := Default()
	qt.Assert(t, qt.IsTrue(cfg.Interpolation))
	qt.Assert(t, qt.Equals(cfg.SolverTimeout, 5*time.Second))
	qt.Assert(t, qt.Equals(cfg.LogEval, 0))
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symex.yaml")
	contents := "interpolation: false\nlogEval: 1\n"
	qt.Assert(t, qt.IsNil(writeFile(path, contents)))

	cfg, err := Load(path)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(cfg.Interpolation))
	qt.Assert(t, qt.Equals(cfg.LogEval, 1))
	// solverTimeout was absent from the file, so Default's value survives.
	qt.Assert(t, qt.Equals(cfg.SolverTimeout, 5*time.Second))
}

func TestLoadOfMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	qt.Assert(t, qt.IsNotNil(err))
}

func TestRegisterFlagsOverridesOnlyExplicitlySetFlags(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("symex", pflag.ContinueOnError)
	RegisterFlags(fs, &cfg)

	qt.Assert(t, qt.IsNil(fs.Parse([]string{"--interpolation=false"})))
	qt.Assert(t, qt.IsFalse(cfg.Interpolation))
	qt.Assert(t, qt.Equals(cfg.SolverTimeout, 5*time.Second))
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
