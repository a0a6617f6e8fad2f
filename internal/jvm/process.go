package jvm

import (
	"bufio"
	"bytes"
	"context"
	"path"
	"strconv"
	"strings"

	apperrors "github.com/thread-dump-analysis/pkg/errors"
	"github.com/thread-dump-analysis/pkg/model"
	"github.com/thread-dump-analysis/pkg/utils"
)

// jvmArgPrefixes mark jps -v arguments that belong to the JVM rather than the application.
var jvmArgPrefixes = []string{"-D", "-X", "-XX", "-server", "-client", "-javaagent"}

// ProcessLister lists running Java processes via jps -v.
type ProcessLister struct {
	runner  CommandRunner
	jpsPath string
	logger  utils.Logger
}

// NewProcessLister creates a lister. An empty jpsPath means "jps" on PATH.
func NewProcessLister(runner CommandRunner, jpsPath string, logger utils.Logger) *ProcessLister {
	if runner == nil {
		runner = ExecRunner{}
	}
	if jpsPath == "" {
		jpsPath = "jps"
	}
	return &ProcessLister{runner: runner, jpsPath: jpsPath, logger: utils.OrNull(logger)}
}

// List returns the Java processes visible to jps, excluding jps itself.
func (l *ProcessLister) List(ctx context.Context) ([]model.JavaProcess, error) {
	l.logger.Info("Detecting running Java processes using jps")

	res, err := l.runner.Run(ctx, l.jpsPath, "-v")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDumpToolError, "failed to run jps", err)
	}
	if res.ExitCode == ExitCommandNotFound {
		return nil, apperrors.Newf(apperrors.CodeDumpToolError, "jps not found: %s", l.jpsPath)
	}
	if res.ExitCode != 0 {
		l.logger.Warn("jps command exited with code: %d", res.ExitCode)
	}

	processes := ParseJpsOutput(res.Stdout)
	l.logger.Info("Found %d Java processes", len(processes))
	return processes, nil
}

// Get returns the process with the given PID or a PROCESS_NOT_FOUND error.
func (l *ProcessLister) Get(ctx context.Context, pid int64) (*model.JavaProcess, error) {
	processes, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range processes {
		if processes[i].PID == pid {
			return &processes[i], nil
		}
	}
	return nil, apperrors.Newf(apperrors.CodeProcessNotFound,
		"PID %d is not a valid Java process or not found", pid)
}

// ParseJpsOutput parses every line of jps -v output, skipping lines that do not parse.
func ParseJpsOutput(out []byte) []model.JavaProcess {
	processes := []model.JavaProcess{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if p, ok := ParseJpsLine(scanner.Text()); ok {
			processes = append(processes, p)
		}
	}
	return processes
}

// ParseJpsLine parses "PID MainClass args..." and rejects jps's own entry.
func ParseJpsLine(line string) (model.JavaProcess, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, "Jps") {
		return model.JavaProcess{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return model.JavaProcess{}, false
	}
	pid, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return model.JavaProcess{}, false
	}

	mainClass := fields[1]
	var jvmArgs, appArgs []string
	for _, arg := range fields[2:] {
		if isJVMArg(arg) {
			jvmArgs = append(jvmArgs, arg)
		} else {
			appArgs = append(appArgs, arg)
		}
	}

	displayName := mainClass
	if strings.HasSuffix(mainClass, ".jar") {
		displayName = path.Base(mainClass)
	}

	return model.JavaProcess{
		PID:                  pid,
		MainClass:            mainClass,
		DisplayName:          displayName,
		JVMArguments:         strings.Join(jvmArgs, " "),
		ApplicationArguments: strings.Join(appArgs, " "),
	}, true
}

func isJVMArg(arg string) bool {
	for _, prefix := range jvmArgPrefixes {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}
