// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package registry

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/samber/oops"
)

// maxOutputInError bounds how much command output is carried in an error.
const maxOutputInError = 4096

// OutputKey is the error context key holding a failed command's output.
const OutputKey = "output"

// maskedFlags are flags whose values never appear in logs or errors.
var maskedFlags = []string{"--otp="}

// Command describes one invocation of registry tooling.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
	// Stdin, when set, is piped to the process instead of the terminal.
	Stdin string
}

// String renders the command line for logs and errors. One-time codes are
// masked.
func (c Command) String() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = maskArg(arg)
	}
	return strings.TrimSpace(c.Name + " " + strings.Join(args, " "))
}

func maskArg(arg string) string {
	for _, flag := range maskedFlags {
		if strings.HasPrefix(arg, flag) {
			return flag + "***"
		}
	}
	return arg
}

// Executor runs registry tooling.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecExecutor runs commands as child processes. Output is streamed to the
// configured writers and also captured, so failures carry the registry's
// wording for classification.
type ExecExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecExecutor returns an executor attached to the process's terminal.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd and blocks until it exits.
func (e *ExecExecutor) Run(ctx context.Context, cmd Command) error {
	//nolint:gosec // command names come from configuration, not user input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	} else {
		c.Stdin = e.Stdin
	}

	var captured bytes.Buffer
	c.Stdout = teeWriter(e.Stdout, &captured)
	c.Stderr = teeWriter(e.Stderr, &captured)

	if err := c.Run(); err != nil {
		output := tail(captured.String(), maxOutputInError)
		return oops.Code("COMMAND_FAILED").
			With("command", cmd.String()).
			With("dir", cmd.Dir).
			With(OutputKey, output).
			Errorf("%s: %v: %s", cmd.String(), err, output)
	}
	return nil
}

// CommandOutput returns the output captured from the failed command in err's
// chain. ok is false when err did not come from a command.
func CommandOutput(err error) (output string, ok bool) {
	oopsErr, isOops := oops.AsOops(err)
	if !isOops {
		return "", false
	}
	output, ok = oopsErr.Context()[OutputKey].(string)
	return output, ok
}

func teeWriter(w io.Writer, captured *bytes.Buffer) io.Writer {
	if w == nil {
		return captured
	}
	return io.MultiWriter(w, captured)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
