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

// Package training orchestrates a distributed TensorFlow training job:
// strategy selection, cluster-topology setup, process launching and the
// shutdown coordination between master and parameter servers.
package training

import (
	"context"

	"tf-training-toolkit/pkg/entrypoint"
	"tf-training-toolkit/pkg/env"
	"tf-training-toolkit/pkg/logging"
	"tf-training-toolkit/pkg/tfconfig"
)

// Orchestrator drives one training-job invocation. The collaborator
// functions are swappable so tests can run the control flow without
// launching real processes.
type Orchestrator struct {
	env *env.Environment

	runEntryPoint func(context.Context, entrypoint.RunOptions) error
	startServer   func(*env.Environment, *tfconfig.Config) (serverProcess, error)
	waitForMaster func(context.Context, string) error
}

// NewOrchestrator wires an orchestrator against the real process launcher
// and shutdown coordinator.
func NewOrchestrator(e *env.Environment) *Orchestrator {
	return &Orchestrator{
		env:           e,
		runEntryPoint: entrypoint.Run,
		startServer:   startParameterServer,
		waitForMaster: func(ctx context.Context, masterAddr string) error {
			c := &Coordinator{
				MasterAddr: masterAddr,
				Interval:   e.Config.MasterPollInterval(),
			}
			return c.WaitForMasterExit(ctx)
		},
	}
}

// Train runs the job to completion. Configuration inconsistencies fail
// before any process is launched; a worker failure is the job's failure. A
// parameter server that crashes while the worker is still running is not
// detected here - the shutdown coordinator's liveness signal is the only
// thing that ends a parameter server.
func (o *Orchestrator) Train(ctx context.Context, args []string) error {
	e := o.env

	flags := tfconfig.Flags{
		ParameterServer:     e.BoolFrameworkParam(env.ParameterServerEnabled),
		MultiWorkerMirrored: e.BoolFrameworkParam(env.MultiWorkerMirroredEnabled),
		MPI:                 e.BoolFrameworkParam(env.MPIEnabled),
		DataParallel:        e.BoolFrameworkParam(env.DataParallelEnabled),
	}

	strategy := tfconfig.SelectStrategy(flags, len(e.Hosts))
	if strategy != tfconfig.StrategyDefault && !e.IsDistributionMember() {
		logging.Debug("host %s is not in a distribution instance group; running the default strategy",
			e.CurrentHost)
		strategy = tfconfig.StrategyDefault
	}

	if strategy == tfconfig.StrategyParameterServer {
		return o.trainWithParameterServers(ctx, args)
	}

	envVars := e.ToEnvVars()
	runner := entrypoint.ProcessRunner
	switch strategy {
	case tfconfig.StrategyMultiWorkerMirrored:
		cfg, err := tfconfig.ForMirroredWorkers(e.DistributionHosts(), e.CurrentHost)
		if err != nil {
			return err
		}
		tfConfigJSON, err := cfg.JSON()
		if err != nil {
			return err
		}
		envVars["TF_CONFIG"] = tfConfigJSON
		logging.Info("running distributed training job with multi_worker_mirrored_strategy setup")
	case tfconfig.StrategyMPI:
		runner = entrypoint.MPIRunner
	case tfconfig.StrategyDataParallel:
		runner = entrypoint.SMDataParallelRunner
	}

	return o.runEntryPoint(ctx, o.runOptions(args, envVars, runner))
}

// trainWithParameterServers launches the host's parameter server in the
// background, runs the worker (or master) synchronously, and on non-master
// hosts hands off to the shutdown coordinator once the worker is done. The
// parameter server must be up before the worker starts so the worker finds
// its ps peers reachable.
func (o *Orchestrator) trainWithParameterServers(ctx context.Context, args []string) error {
	e := o.env
	hosts := e.DistributionHosts()

	// Both topologies are derived before anything is launched; a topology
	// error is a configuration error and aborts the job here.
	workerCfg, err := tfconfig.ForParameterServer(hosts, e.CurrentHost, false)
	if err != nil {
		return err
	}
	psCfg, err := tfconfig.ForParameterServer(hosts, e.CurrentHost, true)
	if err != nil {
		return err
	}

	logging.Info("running distributed training job with parameter servers")
	if _, err := o.startServer(e, psCfg); err != nil {
		return err
	}

	tfConfigJSON, err := workerCfg.JSON()
	if err != nil {
		return err
	}
	envVars := e.ToEnvVars()
	envVars["TF_CONFIG"] = tfConfigJSON

	logging.Info("launching worker process")
	if err := o.runEntryPoint(ctx, o.runOptions(args, envVars, entrypoint.ProcessRunner)); err != nil {
		return err
	}

	if !tfconfig.IsMaster(hosts, e.CurrentHost) {
		return o.waitForMaster(ctx, tfconfig.MasterAddress(hosts))
	}
	return nil
}

func (o *Orchestrator) runOptions(args []string, envVars map[string]string, runner entrypoint.RunnerType) entrypoint.RunOptions {
	e := o.env
	processesPerHost := e.IntFrameworkParam(env.MPIProcessesPerHost)
	if processesPerHost <= 0 {
		processesPerHost = e.Config.MPIProcessesPerHost
	}
	return entrypoint.RunOptions{
		ModuleDir:        e.ModuleDir,
		UserEntryPoint:   e.UserEntryPoint,
		Args:             args,
		EnvVars:          envVars,
		CaptureError:     true,
		Runner:           runner,
		CodeDir:          env.CodeDir,
		Python:           e.Config.PythonExecutable,
		Hosts:            e.DistributionHosts(),
		ProcessesPerHost: processesPerHost,
		CustomMPIOptions: e.StringFrameworkParam(env.MPICustomOptions),
	}
}
