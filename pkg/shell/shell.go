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

// Package shell runs external commands for the toolkit: synchronous
// execution with captured output, and detached background processes that
// live in their own process group.
package shell

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Result holds the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command is an external command being prepared for execution.
type Command struct {
	Name string
	Args []string

	env    []string
	dir    string
	input  string
	stdout io.Writer
	stderr io.Writer
}

// NewCommand prepares a command without running it.
func NewCommand(name string, args ...string) *Command {
	return &Command{Name: name, Args: args}
}

// SetInput provides data for the command's stdin.
func (c *Command) SetInput(input string) {
	c.input = input
}

// SetDir sets the working directory for the command.
func (c *Command) SetDir(dir string) {
	c.dir = dir
}

// SetEnv replaces the command's environment. The map entries are appended
// to the current process environment, so later keys win.
func (c *Command) SetEnv(vars map[string]string) {
	env := os.Environ()
	for _, k := range sortedKeys(vars) {
		env = append(env, k+"="+vars[k])
	}
	c.env = env
}

// ForwardOutput tees the command's stdout and stderr to the given writers
// while still capturing them in the Result. Used for training processes
// whose output must reach the container log in real time.
func (c *Command) ForwardOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// Execute runs the command to completion and captures its output. A
// command that could not be started at all reports exit code -1 with the
// launch error in Stderr.
func (c *Command) Execute() Result {
	return c.ExecuteContext(context.Background())
}

// ExecuteContext is Execute with cancellation; the command receives SIGKILL
// when ctx is cancelled.
func (c *Command) ExecuteContext(ctx context.Context) Result {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.dir
	cmd.Env = c.env
	if c.input != "" {
		cmd.Stdin = strings.NewReader(c.input)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if c.stdout != nil {
		cmd.Stdout = io.MultiWriter(c.stdout, &outBuf)
	}
	if c.stderr != nil {
		cmd.Stderr = io.MultiWriter(c.stderr, &errBuf)
	}

	err := cmd.Run()
	res := Result{Stdout: outBuf.String(), Stderr: errBuf.String()}
	switch e := err.(type) {
	case nil:
		res.ExitCode = 0
	case *exec.ExitError:
		res.ExitCode = e.ExitCode()
	default:
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}
	return res
}

// Start launches the command in the background in its own process group
// and returns a handle without waiting for it. The new group lets the
// whole subtree be signalled at once when the container shuts down.
func (c *Command) Start() (*Process, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.dir
	cmd.Env = c.env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %q", c.Name)
	}
	return &Process{cmd: cmd}, nil
}

// ExecuteCommand runs a command with the inherited environment and returns
// its captured result.
func ExecuteCommand(name string, args ...string) Result {
	return NewCommand(name, args...).Execute()
}

// Process is a handle to a background process started by Command.Start.
type Process struct {
	cmd *exec.Cmd
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the process exits.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// TerminateGroup sends SIGTERM to the process group.
func (p *Process) TerminateGroup() error {
	return unix.Kill(-p.cmd.Process.Pid, unix.SIGTERM)
}

const randomChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomString returns n random lowercase alphanumeric characters.
func RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randomChars[rand.Intn(len(randomChars))]
	}
	return string(b)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
