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

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func assertCluster(t *testing.T, cfg *Config, want map[string][]string) {
	t.Helper()
	if diff := cmp.Diff(want, cfg.Cluster); diff != "" {
		t.Errorf("cluster mismatch (-want +got):\n%s", diff)
	}
	if cfg.Environment != "cloud" {
		t.Errorf("Expected environment %q, got %q", "cloud", cfg.Environment)
	}
}

func assertTask(t *testing.T, cfg *Config, wantType string, wantIndex int) {
	t.Helper()
	if cfg.Task.Type != wantType || cfg.Task.Index != wantIndex {
		t.Errorf("Expected task {%s %d}, got {%s %d}",
			wantType, wantIndex, cfg.Task.Type, cfg.Task.Index)
	}
}

func TestParameterServerTopologyThreeHosts(t *testing.T) {
	hosts := []string{"a", "b", "c"}

	cfg, err := ForParameterServer(hosts, "b", false)
	if err != nil {
		t.Fatalf("ForParameterServer: %v", err)
	}
	assertCluster(t, cfg, map[string][]string{
		"master": {"a:2222"},
		"worker": {"b:2222", "c:2222"},
		"ps":     {"a:2223", "b:2223", "c:2223"},
	})
	assertTask(t, cfg, "worker", 0)
}

func TestParameterServerTopologyMasterTask(t *testing.T) {
	cfg, err := ForParameterServer([]string{"a", "b", "c"}, "a", false)
	if err != nil {
		t.Fatalf("ForParameterServer: %v", err)
	}
	assertTask(t, cfg, "master", 0)
}

func TestParameterServerIndicesCoverAllHosts(t *testing.T) {
	hosts := []string{"algo-1", "algo-2", "algo-3", "algo-4"}
	seen := map[int]bool{}
	for _, h := range hosts {
		cfg, err := ForParameterServer(hosts, h, true)
		if err != nil {
			t.Fatalf("ForParameterServer(%s): %v", h, err)
		}
		if cfg.Task.Type != "ps" {
			t.Errorf("Expected ps task for %s, got %s", h, cfg.Task.Type)
		}
		seen[cfg.Task.Index] = true
	}
	// ps indices must be a permutation of 0..len(hosts)-1 in list order.
	for i := range hosts {
		if !seen[i] {
			t.Errorf("ps index %d never assigned", i)
		}
	}
}

func TestParameterServerSingleHost(t *testing.T) {
	cfg, err := ForParameterServer([]string{"a"}, "a", false)
	if err != nil {
		t.Fatalf("ForParameterServer: %v", err)
	}
	assertCluster(t, cfg, map[string][]string{"master": {"a:2222"}})
	assertTask(t, cfg, "master", 0)
}

func TestParameterServerSingleHostPSTaskFails(t *testing.T) {
	_, err := ForParameterServer([]string{"a"}, "a", true)
	if !errors.Is(err, ErrNoParameterServers) {
		t.Fatalf("Expected ErrNoParameterServers, got %v", err)
	}
}

func TestParameterServerUnknownHostFails(t *testing.T) {
	if _, err := ForParameterServer([]string{"a", "b"}, "z", false); err == nil {
		t.Fatal("Expected error for host outside the cluster")
	}
	if _, err := ForParameterServer(nil, "a", false); err == nil {
		t.Fatal("Expected error for empty host list")
	}
}

func TestMirroredWorkersTopology(t *testing.T) {
	cfg, err := ForMirroredWorkers([]string{"a", "b"}, "b")
	if err != nil {
		t.Fatalf("ForMirroredWorkers: %v", err)
	}
	assertCluster(t, cfg, map[string][]string{"worker": {"a:8890", "b:8890"}})
	assertTask(t, cfg, "worker", 1)
}

func TestMirroredWorkersIndexTracksHostOrder(t *testing.T) {
	hosts := []string{"algo-1", "algo-2", "algo-3"}
	for i, h := range hosts {
		cfg, err := ForMirroredWorkers(hosts, h)
		if err != nil {
			t.Fatalf("ForMirroredWorkers(%s): %v", h, err)
		}
		assertTask(t, cfg, "worker", i)
		if len(cfg.Cluster) != 1 {
			t.Errorf("Expected only the worker role, got %v", cfg.Cluster)
		}
	}
}

func TestJSONIsDeterministic(t *testing.T) {
	build := func() string {
		cfg, err := ForParameterServer([]string{"a", "b", "c"}, "c", false)
		if err != nil {
			t.Fatalf("ForParameterServer: %v", err)
		}
		s, err := cfg.JSON()
		if err != nil {
			t.Fatalf("JSON: %v", err)
		}
		return s
	}
	first := build()
	for i := 0; i < 10; i++ {
		if got := build(); got != first {
			t.Fatalf("serialized output changed between identical builds:\n%s\n%s", first, got)
		}
	}
}

func TestJSONWireFormat(t *testing.T) {
	cfg, err := ForMirroredWorkers([]string{"a", "b"}, "a")
	if err != nil {
		t.Fatalf("ForMirroredWorkers: %v", err)
	}
	got, err := cfg.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := `{"cluster":{"worker":["a:8890","b:8890"]},"environment":"cloud","task":{"index":0,"type":"worker"}}`
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestMasterHelpers(t *testing.T) {
	hosts := []string{"a", "b"}
	if !IsMaster(hosts, "a") || IsMaster(hosts, "b") {
		t.Error("IsMaster must be true exactly for the first host")
	}
	if addr := MasterAddress(hosts); addr != "a:2222" {
		t.Errorf("Expected master address a:2222, got %s", addr)
	}
}

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		flags Flags
		hosts int
		want  Strategy
	}{
		{Flags{}, 1, StrategyDefault},
		{Flags{ParameterServer: true}, 1, StrategyDefault},
		{Flags{ParameterServer: true}, 2, StrategyParameterServer},
		{Flags{ParameterServer: true, MultiWorkerMirrored: true}, 2, StrategyParameterServer},
		{Flags{ParameterServer: true, MultiWorkerMirrored: true}, 1, StrategyMultiWorkerMirrored},
		{Flags{MultiWorkerMirrored: true}, 2, StrategyMultiWorkerMirrored},
		{Flags{MPI: true}, 2, StrategyMPI},
		{Flags{MPI: true, DataParallel: true}, 2, StrategyMPI},
		{Flags{DataParallel: true}, 2, StrategyDataParallel},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			if got := SelectStrategy(c.flags, c.hosts); got != c.want {
				t.Errorf("SelectStrategy(%+v, %d) = %s, want %s", c.flags, c.hosts, got, c.want)
			}
		})
	}
}
