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

// Package tfconfig builds the TF_CONFIG cluster description consumed by the
// TensorFlow distributed runtime. The first host in the ordered host list is
// always the master; role assignment is a pure function of the host list,
// the current host and the selected strategy.
package tfconfig

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Ports are fixed per role across the cluster.
const (
	MasterPort         = "2222"
	ParameterPort      = "2223"
	MirroredWorkerPort = "8890"
)

// Role names as the TensorFlow runtime expects them.
const (
	RoleMaster = "master"
	RoleWorker = "worker"
	RolePS     = "ps"
)

// ErrNoParameterServers is returned when a ps task descriptor is requested
// for a cluster that has no parameter servers (a single-host cluster).
var ErrNoParameterServers = errors.New(
	"cannot have a ps task if there are no parameter servers in the cluster")

// Task identifies the current process's role and position in the cluster.
type Task struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// Config is the TF_CONFIG document. Cluster maps a role name to the ordered
// host:port addresses serving that role.
type Config struct {
	Cluster     map[string][]string `json:"cluster"`
	Environment string              `json:"environment"`
	Task        Task                `json:"task"`
}

// JSON serializes the config in the wire format consumed by TensorFlow.
// Output is deterministic for identical input: encoding/json orders map
// keys, and role address lists preserve host-list order.
func (c *Config) JSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize TF_CONFIG")
	}
	return string(b), nil
}

// ForParameterServer builds the topology for the parameter-server strategy.
// The first host is the master, the rest are workers, and every host also
// runs a parameter server when the cluster has more than one host. With
// psTask set the task descriptor addresses this host's parameter-server
// process instead of its worker/master process.
func ForParameterServer(hosts []string, currentHost string, psTask bool) (*Config, error) {
	if err := validateHosts(hosts, currentHost); err != nil {
		return nil, err
	}

	masters := hosts[:1]
	workers := hosts[1:]
	var ps []string
	if len(hosts) > 1 {
		ps = hosts
	}

	cluster := map[string][]string{
		RoleMaster: hostAddresses(masters, MasterPort),
	}
	if len(ps) > 0 {
		cluster[RolePS] = hostAddresses(ps, ParameterPort)
	}
	if len(workers) > 0 {
		cluster[RoleWorker] = hostAddresses(workers, MasterPort)
	}

	var task Task
	switch {
	case psTask:
		if ps == nil {
			return nil, ErrNoParameterServers
		}
		task = Task{Type: RolePS, Index: indexOf(ps, currentHost)}
	case currentHost == hosts[0]:
		task = Task{Type: RoleMaster, Index: 0}
	default:
		task = Task{Type: RoleWorker, Index: indexOf(workers, currentHost)}
	}

	return &Config{Cluster: cluster, Environment: "cloud", Task: task}, nil
}

// ForMirroredWorkers builds the topology for the multi-worker-mirrored
// strategy: every host is a worker, there is no master or ps role, and the
// task index is the host's position in the full host list.
func ForMirroredWorkers(hosts []string, currentHost string) (*Config, error) {
	if err := validateHosts(hosts, currentHost); err != nil {
		return nil, err
	}
	return &Config{
		Cluster:     map[string][]string{RoleWorker: hostAddresses(hosts, MirroredWorkerPort)},
		Environment: "cloud",
		Task:        Task{Type: RoleWorker, Index: indexOf(hosts, currentHost)},
	}, nil
}

// IsMaster reports whether currentHost is the first host, which always
// carries the master role.
func IsMaster(hosts []string, currentHost string) bool {
	return len(hosts) > 0 && hosts[0] == currentHost
}

// MasterAddress returns the master's worker-port address, the endpoint the
// shutdown coordinator probes for liveness.
func MasterAddress(hosts []string) string {
	return hosts[0] + ":" + MasterPort
}

func validateHosts(hosts []string, currentHost string) error {
	if len(hosts) == 0 {
		return errors.New("cannot build a cluster config from an empty host list")
	}
	if indexOf(hosts, currentHost) < 0 {
		return errors.Errorf("current host %q is not in the host list %v", currentHost, hosts)
	}
	return nil
}

func hostAddresses(hosts []string, port string) []string {
	addrs := make([]string, len(hosts))
	for i, h := range hosts {
		addrs[i] = fmt.Sprintf("%s:%s", h, port)
	}
	return addrs
}

func indexOf(hosts []string, host string) int {
	for i, h := range hosts {
		if h == host {
			return i
		}
	}
	return -1
}
