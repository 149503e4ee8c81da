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
	"testing"
	"time"

	"github.com/spf13/afero"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type EnvSuite struct {
	fs afero.Fs
}

var _ = Suite(&EnvSuite{})

func (s *EnvSuite) SetUpTest(c *C) {
	s.fs = afero.NewMemMapFs()
}

func (s *EnvSuite) writeConfig(c *C, name, content string) {
	err := afero.WriteFile(s.fs, InputConfigDir+"/"+name, []byte(content), 0644)
	c.Assert(err, IsNil)
}

func (s *EnvSuite) TestDefaultsWithoutConfigFiles(c *C) {
	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.CurrentHost, Equals, "algo-1")
	c.Check(e.Hosts, DeepEquals, []string{"algo-1"})
	c.Check(e.ModuleDir, Equals, CodeDir)
	c.Check(e.IsDistributionMember(), Equals, true)
	c.Check(e.Config.MasterPollInterval(), Equals, 10*time.Second)
}

func (s *EnvSuite) TestResourceConfig(c *C) {
	s.writeConfig(c, "resourceconfig.json", `{
		"current_host": "algo-2",
		"hosts": ["algo-1", "algo-2", "algo-3"],
		"current_group_name": "train",
		"instance_groups": [
			{"instance_group_name": "train", "instance_type": "ml.p3.8xlarge",
			 "hosts": ["algo-1", "algo-2"]},
			{"instance_group_name": "eval", "instance_type": "ml.m5.xlarge",
			 "hosts": ["algo-3"]}
		]
	}`)
	s.writeConfig(c, "hyperparameters.json",
		`{"sagemaker_distribution_instance_groups": "[\"train\"]"}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.CurrentHost, Equals, "algo-2")
	c.Check(e.Hosts, DeepEquals, []string{"algo-1", "algo-2", "algo-3"})
	c.Check(e.DistributionHosts(), DeepEquals, []string{"algo-1", "algo-2"})
	c.Check(e.IsDistributionMember(), Equals, true)
}

func (s *EnvSuite) TestNonMemberInstanceGroup(c *C) {
	s.writeConfig(c, "resourceconfig.json", `{
		"current_host": "algo-3",
		"hosts": ["algo-1", "algo-2", "algo-3"],
		"current_group_name": "eval",
		"instance_groups": [
			{"instance_group_name": "train", "hosts": ["algo-1", "algo-2"]},
			{"instance_group_name": "eval", "hosts": ["algo-3"]}
		]
	}`)
	s.writeConfig(c, "hyperparameters.json",
		`{"sagemaker_distribution_instance_groups": "[\"train\"]"}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.IsDistributionMember(), Equals, false)
}

func (s *EnvSuite) TestHyperparameterSplitAndDecoding(c *C) {
	s.writeConfig(c, "hyperparameters.json", `{
		"learning_rate": "0.1",
		"epochs": "10",
		"optimizer": "adam",
		"early_stopping": "true",
		"sagemaker_parameter_server_enabled": "true",
		"sagemaker_program": "train.py",
		"sagemaker_submit_directory": "s3://bucket/code/sourcedir.tar.gz",
		"sagemaker_job_name": "tf-job-2026-08-24"
	}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)

	c.Check(e.Hyperparameters["learning_rate"], Equals, 0.1)
	c.Check(e.Hyperparameters["epochs"], Equals, float64(10))
	c.Check(e.Hyperparameters["optimizer"], Equals, "adam")
	c.Check(e.Hyperparameters["early_stopping"], Equals, true)
	c.Check(e.Hyperparameters[ParameterServerEnabled], IsNil)

	c.Check(e.BoolFrameworkParam(ParameterServerEnabled), Equals, true)
	c.Check(e.BoolFrameworkParam(MPIEnabled), Equals, false)
	c.Check(e.UserEntryPoint, Equals, "train.py")
	c.Check(e.ModuleDir, Equals, "s3://bucket/code/sourcedir.tar.gz")
	c.Check(e.JobName, Equals, "tf-job-2026-08-24")
}

func (s *EnvSuite) TestToCmdArgs(c *C) {
	s.writeConfig(c, "hyperparameters.json", `{
		"learning_rate": "0.1",
		"batch_size": "64",
		"early_stopping": "true",
		"optimizer": "adam"
	}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.ToCmdArgs(), DeepEquals, []string{
		"--batch_size", "64",
		"--early_stopping", "true",
		"--learning_rate", "0.1",
		"--optimizer", "adam",
	})
}

func (s *EnvSuite) TestToEnvVars(c *C) {
	s.writeConfig(c, "resourceconfig.json",
		`{"current_host": "algo-1", "hosts": ["algo-1", "algo-2"]}`)
	s.writeConfig(c, "hyperparameters.json",
		`{"learning_rate": "0.1", "sagemaker_program": "train.py"}`)
	s.writeConfig(c, "inputdataconfig.json",
		`{"training": {}, "validation": {}}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)

	vars := e.ToEnvVars()
	c.Check(vars["SM_HOSTS"], Equals, `["algo-1","algo-2"]`)
	c.Check(vars["SM_CURRENT_HOST"], Equals, "algo-1")
	c.Check(vars["SM_USER_ENTRY_POINT"], Equals, "train.py")
	c.Check(vars["SM_MODEL_DIR"], Equals, "/opt/ml/model")
	c.Check(vars["SM_HP_LEARNING_RATE"], Equals, "0.1")
	c.Check(vars["SM_CHANNEL_TRAINING"], Equals, "/opt/ml/input/data/training")
	c.Check(vars["SM_CHANNELS"], Equals, `["training","validation"]`)
}

func (s *EnvSuite) TestTuningModelDirRewrite(c *C) {
	s.writeConfig(c, "hyperparameters.json", `{
		"_tuning_objective_metric": "validation:accuracy",
		"model_dir": "s3://bucket/prefix",
		"sagemaker_job_name": "tuning-job-007"
	}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.AdjustForTuning(), Equals, true)
	c.Check(e.Hyperparameters["model_dir"], Equals, "s3://bucket/prefix/tuning-job-007/model")
}

func (s *EnvSuite) TestTuningRewriteSkipsContainerPaths(c *C) {
	s.writeConfig(c, "hyperparameters.json", `{
		"_tuning_objective_metric": "loss",
		"model_dir": "/opt/ml/model",
		"sagemaker_job_name": "tuning-job-007"
	}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.AdjustForTuning(), Equals, false)
	c.Check(e.Hyperparameters["model_dir"], Equals, "/opt/ml/model")
}

func (s *EnvSuite) TestNoRewriteOutsideTuning(c *C) {
	s.writeConfig(c, "hyperparameters.json",
		`{"model_dir": "s3://bucket/prefix"}`)

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.AdjustForTuning(), Equals, false)
	c.Check(e.Hyperparameters["model_dir"], Equals, "s3://bucket/prefix")
}

func (s *EnvSuite) TestToolkitConfigOverrides(c *C) {
	s.writeConfig(c, "training-toolkit.yaml",
		"master_poll_interval_seconds: 1\npython_executable: python3\n")

	e, err := New(s.fs)
	c.Assert(err, IsNil)
	c.Check(e.Config.MasterPollInterval(), Equals, time.Second)
	c.Check(e.Config.PythonExecutable, Equals, "python3")
	c.Check(e.Config.MPIProcessesPerHost, Equals, 1)
}

func (s *EnvSuite) TestMalformedResourceConfig(c *C) {
	s.writeConfig(c, "resourceconfig.json", `{not json`)
	_, err := New(s.fs)
	c.Assert(err, NotNil)
}
