// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package env

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const toolkitConfigFile = "training-toolkit.yaml"

// DefaultMasterPollInterval is how often the shutdown coordinator probes
// the master host.
const DefaultMasterPollInterval = 10 * time.Second

// Config carries toolkit-level overrides read from an optional
// training-toolkit.yaml next to the platform configuration files. Every
// field has a working default; the file exists mainly so integration tests
// can shrink the liveness polling interval.
type Config struct {
	// MasterPollIntervalSeconds overrides the shutdown coordinator's
	// probing interval.
	MasterPollIntervalSeconds int `yaml:"master_poll_interval_seconds"`
	// PythonExecutable overrides the interpreter used for the entry point
	// and the parameter-server bootstrap (default "python").
	PythonExecutable string `yaml:"python_executable"`
	// MPIProcessesPerHost overrides the slot count per host for mpirun.
	MPIProcessesPerHost int `yaml:"mpi_processes_per_host"`
}

// LoadConfig reads training-toolkit.yaml if present and fills defaults.
func LoadConfig(fs afero.Fs) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(InputConfigDir, toolkitConfigFile)
	exists, err := afero.Exists(fs, path)
	if err == nil && exists {
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	}

	if cfg.PythonExecutable == "" {
		cfg.PythonExecutable = "python"
	}
	if cfg.MPIProcessesPerHost <= 0 {
		cfg.MPIProcessesPerHost = 1
	}
	return cfg, nil
}

// MasterPollInterval returns the configured probing interval.
func (c *Config) MasterPollInterval() time.Duration {
	if c.MasterPollIntervalSeconds > 0 {
		return time.Duration(c.MasterPollIntervalSeconds) * time.Second
	}
	return DefaultMasterPollInterval
}
