package jvm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/utils"
)

// DefaultDumpTimeout bounds a single jstack invocation.
const DefaultDumpTimeout = 30 * time.Second

// DumpGenerator captures thread dumps from live JVMs with jstack.
type DumpGenerator struct {
	runner     CommandRunner
	lister     *ProcessLister
	jstackPath string
	timeout    time.Duration
	logger     utils.Logger
}

// NewDumpGenerator creates a generator that verifies PIDs through lister.
func NewDumpGenerator(runner CommandRunner, lister *ProcessLister, jstackPath string, timeout time.Duration, logger utils.Logger) *DumpGenerator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if jstackPath == "" {
		jstackPath = "jstack"
	}
	if timeout <= 0 {
		timeout = DefaultDumpTimeout
	}
	if lister == nil {
		lister = NewProcessLister(runner, "", logger)
	}
	return &DumpGenerator{
		runner:     runner,
		lister:     lister,
		jstackPath: jstackPath,
		timeout:    timeout,
		logger:     utils.OrNull(logger),
	}
}

// Generate returns the jstack output for pid.
func (g *DumpGenerator) Generate(ctx context.Context, pid int64) (string, error) {
	g.logger.Info("Generating thread dump for PID: %d", pid)

	if _, err := g.lister.Get(ctx, pid); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.runner.Run(runCtx, g.jstackPath, strconv.FormatInt(pid, 10))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.Wrap(apperrors.CodeDumpToolError,
				"jstack timed out after "+g.timeout.String(), err)
		}
		return "", apperrors.Wrap(apperrors.CodeDumpToolError, "failed to run jstack", err)
	}

	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "Unknown error"
		}
		g.logger.Error("jstack command failed with exit code: %d, error: %s", res.ExitCode, msg)
		return "", apperrors.Newf(apperrors.CodeDumpToolError,
			"Failed to generate thread dump for PID %d: %s", pid, msg)
	}

	dump := string(res.Stdout)
	if strings.TrimSpace(dump) == "" {
		return "", apperrors.Newf(apperrors.CodeDumpToolError,
			"Thread dump generation produced no output for PID %d", pid)
	}

	g.logger.Info("Successfully generated thread dump for PID: %d (%d characters)", pid, len(dump))
	return dump, nil
}

// Available reports whether jstack can be executed.
func (g *DumpGenerator) Available(ctx context.Context) bool {
	res, err := g.runner.Run(ctx, g.jstackPath, "-h")
	if err != nil {
		g.logger.Debug("Thread dump generation not available: %v", err)
		return false
	}
	available := res.ExitCode != ExitCommandNotFound
	g.logger.Debug("Thread dump generation availability check: jstack available = %t", available)
	return available
}
