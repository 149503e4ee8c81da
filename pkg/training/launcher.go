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

package training

import (
	"github.com/pkg/errors"

	"tf-training-toolkit/pkg/env"
	"tf-training-toolkit/pkg/logging"
	"tf-training-toolkit/pkg/shell"
	"tf-training-toolkit/pkg/tfconfig"
)

// psServerScript bootstraps a TensorFlow server for the ps task described
// by TF_CONFIG. GPU devices are masked out: a parameter server sharing a
// host with a worker must not contend for the GPU.
const psServerScript = `
import json
import os

import tensorflow as tf

tf_config = json.loads(os.environ["TF_CONFIG"])
config = tf.compat.v1.ConfigProto(device_count={"GPU": 0})
server = tf.distribute.Server(
    tf_config["cluster"],
    job_name=tf_config["task"]["type"],
    task_index=tf_config["task"]["index"],
    config=config,
)
server.join()
`

// serverProcess is the handle the orchestrator keeps for a launched
// parameter server. The process is never awaited; the shutdown coordinator
// governs its lifetime.
type serverProcess interface {
	Pid() int
}

// startParameterServer launches the parameter-server process for this host
// in the background, bound to its ps task in cfg. It must be running
// before the worker starts so the worker finds its ps peers reachable.
func startParameterServer(e *env.Environment, cfg *tfconfig.Config) (serverProcess, error) {
	tfConfigJSON, err := cfg.JSON()
	if err != nil {
		return nil, err
	}

	cmd := shell.NewCommand(e.Config.PythonExecutable, "-c", psServerScript)
	cmd.SetEnv(map[string]string{
		"TF_CONFIG": tfConfigJSON,
		// Hide GPUs from the server process entirely, in addition to the
		// device_count mask inside the script.
		"CUDA_VISIBLE_DEVICES": "-1",
	})

	proc, err := cmd.Start()
	if err != nil {
		return nil, errors.Wrap(err, "failed to launch parameter server")
	}
	logging.Info("launched parameter server process (pid %d)", proc.Pid())
	return proc, nil
}
