// Package executor owns the OS process boundary and the SafeExecutor
// orchestration: classify, rate-limit, breaker-check, bounded execution,
// audit.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Runner is the spawn primitive the engine calls but does not own.
// exitCode is nil when the process was killed by the deadline or never
// started. err reports spawn-level failures only; a nonzero exit is not
// an error at this layer.
type Runner interface {
	Run(ctx context.Context, command string) (stdout, stderr string, exitCode *int, err error)
}

// LocalRunner executes commands on the host through the shell. The caller
// bounds the run with a context deadline; exceeding it kills the process.
type LocalRunner struct {
	Shell string // defaults to /bin/sh
}

func NewLocalRunner() *LocalRunner {
	return &LocalRunner{Shell: "/bin/sh"}
}

func (r *LocalRunner) Run(ctx context.Context, command string) (string, string, *int, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()

	if ctx.Err() != nil {
		// Deadline exceeded or cancelled: the process was killed,
		// there is no meaningful exit code.
		return outBuf.String(), errBuf.String(), nil, fmt.Errorf("executor.LocalRunner.Run: %w", ctx.Err())
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			return outBuf.String(), errBuf.String(), &code, nil
		}
		return outBuf.String(), errBuf.String(), nil, fmt.Errorf("executor.LocalRunner.Run: %w", runErr)
	}

	zero := 0
	return outBuf.String(), errBuf.String(), &zero, nil
}
