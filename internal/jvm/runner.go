// Package jvm discovers local Java processes and captures their thread dumps
// with the JDK's jps and jstack tools.
package jvm

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ExitCommandNotFound is the shell's exit status for a missing command.
const ExitCommandNotFound = 127

// CommandResult is the captured outcome of one command execution.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner executes external commands.
type CommandRunner interface {
	// Run executes name with args. A non-zero exit is reported through
	// ExitCode, not as an error; errors mean the command could not run.
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &CommandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			result.ExitCode = ExitCommandNotFound
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return result, nil
}
