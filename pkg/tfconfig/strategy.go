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

package tfconfig

import "tf-training-toolkit/pkg/logging"

// Strategy is the distribution strategy selected for a training job. The
// orchestrator dispatches on it exactly once, so the mutual-exclusion rules
// between strategies live in SelectStrategy alone.
type Strategy int

const (
	// StrategyDefault runs the entry point as a plain single process.
	StrategyDefault Strategy = iota
	// StrategyParameterServer runs a parameter server next to each worker.
	StrategyParameterServer
	// StrategyMultiWorkerMirrored mirrors the model on every worker.
	StrategyMultiWorkerMirrored
	// StrategyMPI launches the entry point through mpirun.
	StrategyMPI
	// StrategyDataParallel launches through the vendor data-parallel runner.
	StrategyDataParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyParameterServer:
		return "parameter_server"
	case StrategyMultiWorkerMirrored:
		return "multi_worker_mirrored"
	case StrategyMPI:
		return "mpi"
	case StrategyDataParallel:
		return "dataparallel"
	default:
		return "default"
	}
}

// Flags are the strategy toggles read from the framework hyperparameters.
type Flags struct {
	ParameterServer     bool
	MultiWorkerMirrored bool
	MPI                 bool
	DataParallel        bool
}

// SelectStrategy resolves the flags to a single strategy. The parameter
// server strategy requires more than one host and, matching the behavior
// the training framework has always had, silently takes precedence over
// multi-worker-mirrored when both are requested. MPI wins over data
// parallel when both are set.
func SelectStrategy(f Flags, hostCount int) Strategy {
	switch {
	case f.ParameterServer && hostCount > 1:
		if f.MultiWorkerMirrored {
			logging.Debug("both parameter_server and multi_worker_mirrored requested; using parameter_server")
		}
		return StrategyParameterServer
	case f.MultiWorkerMirrored:
		return StrategyMultiWorkerMirrored
	case f.MPI:
		return StrategyMPI
	case f.DataParallel:
		return StrategyDataParallel
	default:
		return StrategyDefault
	}
}
