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
	"context"
	"net"
	"time"

	"tf-training-toolkit/pkg/logging"
)

// DialFunc probes a TCP endpoint; tests inject a fake liveness source.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

const dialTimeout = 5 * time.Second

// Coordinator keeps a non-master host's parameter server from outliving
// the job. It polls the master's worker port; as long as the connection
// succeeds the master is still training, and the first refused connection
// means the master has exited and the local parameter server may be
// reaped with the container.
type Coordinator struct {
	// MasterAddr is the master's host:port worker endpoint.
	MasterAddr string
	// Interval between probes (default 10s).
	Interval time.Duration
	// Dial overrides the TCP probe (default net.Dialer).
	Dial DialFunc
}

// WaitForMasterExit blocks until a probe of the master fails, returning
// nil, or until ctx is cancelled, returning the context error. There is
// deliberately no timeout: master unreachability is the only shutdown
// signal a parameter server gets.
func (c *Coordinator) WaitForMasterExit(ctx context.Context) error {
	dial := c.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: dialTimeout}).DialContext
	}
	interval := c.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	for {
		conn, err := dial(ctx, "tcp", c.MasterAddr)
		if err != nil {
			logging.Info("master %s is down, stopping parameter server", c.MasterAddr)
			return nil
		}
		conn.Close()
		logging.Info("master %s is still up, waiting for it to exit", c.MasterAddr)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
