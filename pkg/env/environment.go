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

// Package env reads the training-container contract: hyperparameters,
// resource configuration (host list, current host, instance groups) and
// input data channels written by the platform under /opt/ml/input/config.
// All filesystem access goes through afero so tests run against an
// in-memory tree.
package env

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tf-training-toolkit/pkg/logging"
)

// Container filesystem layout.
const (
	BasePath       = "/opt/ml"
	InputConfigDir = BasePath + "/input/config"
	ModelDir       = BasePath + "/model"
	CodeDir        = BasePath + "/code"
	OutputDataDir  = BasePath + "/output/data"

	hyperparametersFile = "hyperparameters.json"
	resourceConfigFile  = "resourceconfig.json"
	inputDataConfigFile = "inputdataconfig.json"
)

// Framework parameter keys recognized in the hyperparameters document.
const (
	ParameterServerEnabled     = "sagemaker_parameter_server_enabled"
	MultiWorkerMirroredEnabled = "sagemaker_multi_worker_mirrored_strategy_enabled"
	DataParallelEnabled        = "sagemaker_distributed_dataparallel_enabled"
	MPIEnabled                 = "sagemaker_mpi_enabled"
	MPIProcessesPerHost        = "sagemaker_mpi_num_of_processes_per_host"
	MPICustomOptions           = "sagemaker_mpi_custom_mpi_options"

	jobNameParam            = "sagemaker_job_name"
	submitDirectoryParam    = "sagemaker_submit_directory"
	programParam            = "sagemaker_program"
	distributionGroupsParam = "sagemaker_distribution_instance_groups"
	tuningObjectiveParam    = "_tuning_objective_metric"
	modelDirParam           = "model_dir"

	frameworkPrefix = "sagemaker_"
)

// knownFrameworkParams backs the near-miss suggestions for misspelled
// sagemaker_* hyperparameters.
var knownFrameworkParams = []string{
	ParameterServerEnabled,
	MultiWorkerMirroredEnabled,
	DataParallelEnabled,
	MPIEnabled,
	jobNameParam,
	submitDirectoryParam,
	programParam,
	distributionGroupsParam,
	MPIProcessesPerHost,
	MPICustomOptions,
	"sagemaker_container_log_level",
	"sagemaker_region",
}

// InstanceGroup is one homogeneous group of hosts in the training cluster.
type InstanceGroup struct {
	Name         string   `json:"instance_group_name"`
	InstanceType string   `json:"instance_type"`
	Hosts        []string `json:"hosts"`
}

type resourceConfig struct {
	CurrentHost          string          `json:"current_host"`
	Hosts                []string        `json:"hosts"`
	CurrentInstanceGroup string          `json:"current_group_name"`
	InstanceGroups       []InstanceGroup `json:"instance_groups"`
}

// Environment is the read-only view of a training job's configuration.
type Environment struct {
	fs afero.Fs

	CurrentHost          string
	Hosts                []string
	CurrentInstanceGroup string
	InstanceGroups       []InstanceGroup

	JobName        string
	ModuleDir      string
	UserEntryPoint string

	// Hyperparameters holds the user hyperparameters; framework parameters
	// (sagemaker_* keys) are split out into FrameworkParams.
	Hyperparameters map[string]interface{}
	FrameworkParams map[string]interface{}

	// Channels are the input data channel names, sorted.
	Channels []string

	Config *Config

	distributionGroups []string
}

// New reads the container contract from fs. Missing configuration files
// fall back to single-host defaults so local runs outside the platform
// still work; a malformed file is an error.
func New(fs afero.Fs) (*Environment, error) {
	e := &Environment{
		fs:          fs,
		CurrentHost: "algo-1",
		Hosts:       []string{"algo-1"},
		ModuleDir:   CodeDir,
	}

	if err := e.readResourceConfig(); err != nil {
		return nil, err
	}
	if err := e.readHyperparameters(); err != nil {
		return nil, err
	}
	if err := e.readInputDataConfig(); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(fs)
	if err != nil {
		return nil, err
	}
	e.Config = cfg

	return e, nil
}

// Fs exposes the filesystem the environment was read from, for collaborators
// that inspect the same tree (the model artifact check).
func (e *Environment) Fs() afero.Fs {
	return e.fs
}

func (e *Environment) readResourceConfig() error {
	raw, ok, err := e.readConfigFile(resourceConfigFile)
	if err != nil || !ok {
		return err
	}

	var rc resourceConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return errors.Wrapf(err, "failed to parse %s", resourceConfigFile)
	}
	if rc.CurrentHost != "" {
		e.CurrentHost = rc.CurrentHost
	}
	if len(rc.Hosts) > 0 {
		e.Hosts = rc.Hosts
	}
	e.CurrentInstanceGroup = rc.CurrentInstanceGroup
	e.InstanceGroups = rc.InstanceGroups
	return nil
}

func (e *Environment) readHyperparameters() error {
	e.Hyperparameters = map[string]interface{}{}
	e.FrameworkParams = map[string]interface{}{}

	raw, ok, err := e.readConfigFile(hyperparametersFile)
	if err != nil || !ok {
		return err
	}

	// The platform writes every value as a JSON-encoded string; decode the
	// value when possible and keep the raw string otherwise.
	var encoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return errors.Wrapf(err, "failed to parse %s", hyperparametersFile)
	}
	for key, rawValue := range encoded {
		value := decodeValue(rawValue)
		if strings.HasPrefix(key, frameworkPrefix) {
			e.FrameworkParams[key] = value
			e.suggestIfUnknown(key)
		} else {
			e.Hyperparameters[key] = value
		}
	}

	if name, ok := e.FrameworkParams[jobNameParam].(string); ok {
		e.JobName = name
	}
	if dir, ok := e.FrameworkParams[submitDirectoryParam].(string); ok && dir != "" {
		e.ModuleDir = dir
	}
	if prog, ok := e.FrameworkParams[programParam].(string); ok {
		e.UserEntryPoint = prog
	}
	if groups, ok := e.FrameworkParams[distributionGroupsParam].([]interface{}); ok {
		for _, g := range groups {
			if name, ok := g.(string); ok {
				e.distributionGroups = append(e.distributionGroups, name)
			}
		}
	}
	return nil
}

func (e *Environment) readInputDataConfig() error {
	raw, ok, err := e.readConfigFile(inputDataConfigFile)
	if err != nil || !ok {
		return err
	}

	var channels map[string]json.RawMessage
	if err := json.Unmarshal(raw, &channels); err != nil {
		return errors.Wrapf(err, "failed to parse %s", inputDataConfigFile)
	}
	e.Channels = sortedKeys(channels)
	return nil
}

func (e *Environment) readConfigFile(name string) ([]byte, bool, error) {
	path := filepath.Join(InputConfigDir, name)
	exists, err := afero.Exists(e.fs, path)
	if err != nil || !exists {
		return nil, false, err
	}
	raw, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read %s", path)
	}
	return raw, true, nil
}

// decodeValue unwraps a JSON-encoded hyperparameter value. Values arrive
// double-encoded ("\"0.1\"" for 0.1); a value that does not decode stays a
// plain string.
func decodeValue(raw json.RawMessage) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		var inner interface{}
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			switch inner.(type) {
			case bool, float64, []interface{}, map[string]interface{}:
				return inner
			}
		}
		return s
	}
	return v
}

func (e *Environment) suggestIfUnknown(key string) {
	for _, known := range knownFrameworkParams {
		if key == known {
			return
		}
	}
	best, bestDist := "", 4
	for _, known := range knownFrameworkParams {
		if d := levenshtein.Distance(key, known, nil); d < bestDist {
			best, bestDist = known, d
		}
	}
	if best != "" {
		logging.Warn("unrecognized framework parameter %q; did you mean %q?", key, best)
	}
}

// BoolFrameworkParam reads a boolean framework parameter, treating the
// strings "true"/"false" the platform sometimes passes as booleans.
func (e *Environment) BoolFrameworkParam(key string) bool {
	switch v := e.FrameworkParams[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// StringFrameworkParam reads a string framework parameter, or "" when the
// key is absent or not a string.
func (e *Environment) StringFrameworkParam(key string) string {
	s, _ := e.FrameworkParams[key].(string)
	return s
}

// IntFrameworkParam reads an integer framework parameter, or 0 when the
// key is absent or not numeric.
func (e *Environment) IntFrameworkParam(key string) int {
	switch v := e.FrameworkParams[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// DistributionHosts returns the hosts participating in distributed
// training: the union of the distribution instance groups, or every host
// when no groups are configured.
func (e *Environment) DistributionHosts() []string {
	if len(e.distributionGroups) == 0 || len(e.InstanceGroups) == 0 {
		return e.Hosts
	}
	var hosts []string
	for _, g := range e.InstanceGroups {
		if e.groupDistributes(g.Name) {
			hosts = append(hosts, g.Hosts...)
		}
	}
	return hosts
}

// IsDistributionMember reports whether the current host belongs to an
// instance group participating in distributed training.
func (e *Environment) IsDistributionMember() bool {
	if len(e.distributionGroups) == 0 || e.CurrentInstanceGroup == "" {
		return true
	}
	return e.groupDistributes(e.CurrentInstanceGroup)
}

func (e *Environment) groupDistributes(name string) bool {
	for _, g := range e.distributionGroups {
		if g == name {
			return true
		}
	}
	return false
}

// ResolveModelDir rewrites modelDir for hyperparameter-tuning jobs so that
// parallel training jobs sharing one S3 prefix do not clobber each other.
// Paths already inside the container are kept as is.
func ResolveModelDir(modelDir, jobName string) string {
	if modelDir != "" && strings.HasPrefix(modelDir, BasePath) {
		return modelDir
	}
	return modelDir + "/" + jobName + "/model"
}

// AdjustForTuning applies the tuning-job model_dir rewrite to the user
// hyperparameters when the job is part of a tuning sweep. Returns true when
// a rewrite happened.
func (e *Environment) AdjustForTuning() bool {
	if _, tuning := e.FrameworkParams[tuningObjectiveParam]; !tuning {
		if _, tuning = e.Hyperparameters[tuningObjectiveParam]; !tuning {
			return false
		}
	}
	modelDir, _ := e.Hyperparameters[modelDirParam].(string)
	if modelDir == "" {
		return false
	}
	resolved := ResolveModelDir(modelDir, e.JobName)
	if resolved == modelDir {
		return false
	}
	e.Hyperparameters[modelDirParam] = resolved
	logging.Info("appending the training job name to model_dir: %s", resolved)
	return true
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}
