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

// Package entrypoint stages the user's training module into the container
// and runs its entry point through one of the runner variants (plain
// process, MPI, or data parallel).
package entrypoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	getter "github.com/hashicorp/go-getter"
	cp "github.com/otiai10/copy"
	"github.com/pkg/errors"

	"tf-training-toolkit/pkg/logging"
	"tf-training-toolkit/pkg/shell"
)

// RunnerType selects how the entry point is launched. Only one runner is
// active per job.
type RunnerType int

const (
	// ProcessRunner launches the entry point as a single OS process.
	ProcessRunner RunnerType = iota
	// MPIRunner launches the entry point through mpirun across all hosts.
	MPIRunner
	// SMDataParallelRunner launches through the vendor data-parallel
	// collective launcher.
	SMDataParallelRunner
)

func (r RunnerType) String() string {
	switch r {
	case MPIRunner:
		return "mpi"
	case SMDataParallelRunner:
		return "smdataparallel"
	default:
		return "process"
	}
}

// RunOptions describe one entry-point invocation.
type RunOptions struct {
	// ModuleDir is where the user module comes from: a local directory, an
	// archive, or a remote location (s3::, https) understood by go-getter.
	ModuleDir string
	// UserEntryPoint is the script or executable inside the module.
	UserEntryPoint string
	// Args are passed to the entry point verbatim.
	Args []string
	// EnvVars are injected into the child's environment on top of the
	// container environment. TF_CONFIG arrives here.
	EnvVars map[string]string
	// CaptureError preserves the child's stderr in the returned error.
	CaptureError bool
	Runner       RunnerType

	// CodeDir is where the module is staged (default /opt/ml/code).
	CodeDir string
	// Python is the interpreter for .py entry points (default "python").
	Python string

	// MPI runner inputs.
	Hosts            []string
	ProcessesPerHost int
	CustomMPIOptions string
}

// Run stages the module and executes the entry point synchronously,
// forwarding its output to the container log. A non-zero exit becomes the
// returned error; the caller decides whether that fails the job.
func Run(ctx context.Context, opts RunOptions) error {
	opts = withDefaults(opts)

	if err := stageModule(ctx, opts); err != nil {
		return err
	}
	if err := installRequirements(opts); err != nil {
		return err
	}

	argv, err := buildCommand(opts)
	if err != nil {
		return err
	}
	logging.Info("invoking entry point via %s runner: %s", opts.Runner, strings.Join(argv, " "))

	cmd := shell.NewCommand(argv[0], argv[1:]...)
	cmd.SetDir(opts.CodeDir)
	cmd.SetEnv(opts.EnvVars)
	cmd.ForwardOutput(os.Stdout, os.Stderr)

	res := cmd.ExecuteContext(ctx)
	if res.ExitCode != 0 {
		if opts.CaptureError && res.Stderr != "" {
			return errors.Errorf("entry point %q exited with code %d:\n%s",
				opts.UserEntryPoint, res.ExitCode, res.Stderr)
		}
		return errors.Errorf("entry point %q exited with code %d",
			opts.UserEntryPoint, res.ExitCode)
	}
	return nil
}

func withDefaults(opts RunOptions) RunOptions {
	if opts.CodeDir == "" {
		opts.CodeDir = "/opt/ml/code"
	}
	if opts.Python == "" {
		opts.Python = "python"
	}
	if opts.ProcessesPerHost <= 0 {
		opts.ProcessesPerHost = 1
	}
	return opts
}

// stageModule makes the user module available under CodeDir. Local
// directories are copied; anything else goes through go-getter, which
// understands archives and the s3/https schemes the platform hands out.
func stageModule(ctx context.Context, opts RunOptions) error {
	if opts.ModuleDir == "" || opts.ModuleDir == opts.CodeDir {
		return nil
	}

	if info, err := os.Stat(opts.ModuleDir); err == nil && info.IsDir() {
		logging.Info("copying user module from %s to %s", opts.ModuleDir, opts.CodeDir)
		if err := cp.Copy(opts.ModuleDir, opts.CodeDir); err != nil {
			return errors.Wrapf(err, "failed to copy user module from %s", opts.ModuleDir)
		}
		return nil
	}

	logging.Info("fetching user module from %s", opts.ModuleDir)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  opts.ModuleDir,
		Dst:  opts.CodeDir,
		Mode: getter.ClientModeAny,
	}
	if err := client.Get(); err != nil {
		return errors.Wrapf(err, "failed to fetch user module from %s", opts.ModuleDir)
	}
	return nil
}

func installRequirements(opts RunOptions) error {
	reqs := filepath.Join(opts.CodeDir, "requirements.txt")
	if _, err := os.Stat(reqs); err != nil {
		return nil
	}
	logging.Info("installing dependencies from %s", reqs)
	res := shell.ExecuteCommand(opts.Python, "-m", "pip", "install", "-r", reqs)
	if res.ExitCode != 0 {
		return errors.Errorf("pip install failed with code %d:\n%s", res.ExitCode, res.Stderr)
	}
	return nil
}

func buildCommand(opts RunOptions) ([]string, error) {
	if opts.UserEntryPoint == "" {
		return nil, errors.New("no user entry point configured")
	}

	base := entryCommand(opts)
	switch opts.Runner {
	case ProcessRunner:
		return append(base, opts.Args...), nil
	case MPIRunner:
		return append(mpiCommand(opts), append(base, opts.Args...)...), nil
	case SMDataParallelRunner:
		argv := append([]string{"smddprun"}, base...)
		return append(argv, opts.Args...), nil
	default:
		return nil, errors.Errorf("unknown runner type %d", int(opts.Runner))
	}
}

func entryCommand(opts RunOptions) []string {
	if strings.HasSuffix(opts.UserEntryPoint, ".py") {
		return []string{opts.Python, opts.UserEntryPoint}
	}
	return []string{"/bin/sh", "-c", "./" + opts.UserEntryPoint}
}

func mpiCommand(opts RunOptions) []string {
	hosts := make([]string, len(opts.Hosts))
	for i, h := range opts.Hosts {
		hosts[i] = fmt.Sprintf("%s:%d", h, opts.ProcessesPerHost)
	}
	argv := []string{
		"mpirun",
		"--allow-run-as-root",
		"--host", strings.Join(hosts, ","),
		"-np", fmt.Sprintf("%d", len(opts.Hosts)*opts.ProcessesPerHost),
	}
	for _, key := range envKeysToForward(opts.EnvVars) {
		argv = append(argv, "-x", key)
	}
	if opts.CustomMPIOptions != "" {
		argv = append(argv, strings.Fields(opts.CustomMPIOptions)...)
	}
	return argv
}

func envKeysToForward(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
