package jvm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thread-dump-analysis/pkg/errors"
)

type fakeCall struct {
	name string
	args []string
}

// fakeRunner answers commands by name from a fixed table.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]*CommandResult
	errs    map[string]error
	calls   []fakeCall
	block   bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]*CommandResult{}, errs: map[string]error{}}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	block := f.block && name == "jstack"
	res, err := f.results[name], f.errs[name]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &CommandResult{ExitCode: ExitCommandNotFound}, nil
	}
	return res, nil
}

const jpsOutput = `12345 com.example.MyApp -Xmx1g -Dfile.encoding=UTF-8 --port=8080
23456 /opt/apps/orders-service.jar -XX:+UseG1GC -javaagent:/opt/agent.jar -server prod
34567 Jps -Dapplication.home=/usr/lib/jvm -Xms8m
not-a-pid Something

45678 org.apache.catalina.startup.Bootstrap
`

func TestParseJpsLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		pid     int64
		main    string
		display string
		jvmArgs string
		appArgs string
	}{
		{
			name: "MainClassWithArgs", line: "12345 com.example.MyApp -Xmx1g -Dfile.encoding=UTF-8 --port=8080", ok: true,
			pid: 12345, main: "com.example.MyApp", display: "com.example.MyApp",
			jvmArgs: "-Xmx1g -Dfile.encoding=UTF-8", appArgs: "--port=8080",
		},
		{
			name: "JarUsesBaseName", line: "  23456 /opt/apps/orders-service.jar -server -client -javaagent:x.jar ", ok: true,
			pid: 23456, main: "/opt/apps/orders-service.jar", display: "orders-service.jar",
			jvmArgs: "-server -client -javaagent:x.jar",
		},
		{
			name: "NoArgs", line: "45678 org.apache.catalina.startup.Bootstrap", ok: true,
			pid: 45678, main: "org.apache.catalina.startup.Bootstrap", display: "org.apache.catalina.startup.Bootstrap",
		},
		{name: "JpsItself", line: "34567 Jps -Xms8m"},
		{name: "JpsQualified", line: "34567 sun.tools.jps.Jps"},
		{name: "Blank", line: "   "},
		{name: "PIDOnly", line: "12345"},
		{name: "BadPID", line: "abc com.example.App"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParseJpsLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.pid, p.PID)
			assert.Equal(t, tt.main, p.MainClass)
			assert.Equal(t, tt.display, p.DisplayName)
			assert.Equal(t, tt.jvmArgs, p.JVMArguments)
			assert.Equal(t, tt.appArgs, p.ApplicationArguments)
		})
	}
}

func TestParseJpsOutput(t *testing.T) {
	processes := ParseJpsOutput([]byte(jpsOutput))
	require.Len(t, processes, 3)
	assert.Equal(t, int64(12345), processes[0].PID)
	assert.Equal(t, int64(23456), processes[1].PID)
	assert.Equal(t, "orders-service.jar", processes[1].DisplayName)
	assert.Equal(t, "-XX:+UseG1GC -javaagent:/opt/agent.jar -server", processes[1].JVMArguments)
	assert.Equal(t, "prod", processes[1].ApplicationArguments)
	assert.Equal(t, int64(45678), processes[2].PID)

	assert.NotNil(t, ParseJpsOutput(nil))
	assert.Empty(t, ParseJpsOutput(nil))
}

func TestProcessLister_List(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}

		lister := NewProcessLister(runner, "", nil)
		processes, err := lister.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, processes, 3)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "jps", runner.calls[0].name)
		assert.Equal(t, []string{"-v"}, runner.calls[0].args)
	})

	t.Run("NonZeroExitStillParses", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["/opt/jdk/bin/jps"] = &CommandResult{Stdout: []byte("1 App"), ExitCode: 1}

		processes, err := NewProcessLister(runner, "/opt/jdk/bin/jps", nil).List(context.Background())
		require.NoError(t, err)
		assert.Len(t, processes, 1)
	})

	t.Run("ToolMissing", func(t *testing.T) {
		_, err := NewProcessLister(newFakeRunner(), "", nil).List(context.Background())
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeDumpToolError, apperrors.GetErrorCode(err))
	})

	t.Run("RunError", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errs["jps"] = errors.New("permission denied")

		_, err := NewProcessLister(runner, "", nil).List(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDumpTool))
	})
}

func TestProcessLister_Get(t *testing.T) {
	runner := newFakeRunner()
	runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
	lister := NewProcessLister(runner, "", nil)

	p, err := lister.Get(context.Background(), 23456)
	require.NoError(t, err)
	assert.Equal(t, "orders-service.jar", p.DisplayName)

	_, err = lister.Get(context.Background(), 34567)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrProcessNotFound))
	assert.Contains(t, err.Error(), "PID 34567 is not a valid Java process or not found")
}

func newGenerator(runner *fakeRunner, timeout time.Duration) *DumpGenerator {
	lister := NewProcessLister(runner, "", nil)
	return NewDumpGenerator(runner, lister, "", timeout, nil)
}

func TestDumpGenerator_Generate(t *testing.T) {
	const dump = "Full thread dump OpenJDK 64-Bit Server VM:\n\n\"main\" #1 prio=5\n   java.lang.Thread.State: RUNNABLE\n"

	t.Run("Success", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.results["jstack"] = &CommandResult{Stdout: []byte(dump)}

		out, err := newGenerator(runner, time.Second).Generate(context.Background(), 12345)
		require.NoError(t, err)
		assert.Equal(t, dump, out)

		last := runner.calls[len(runner.calls)-1]
		assert.Equal(t, "jstack", last.name)
		assert.Equal(t, []string{"12345"}, last.args)
	})

	t.Run("UnknownPID", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.results["jstack"] = &CommandResult{Stdout: []byte(dump)}

		_, err := newGenerator(runner, time.Second).Generate(context.Background(), 99)
		assert.True(t, errors.Is(err, apperrors.ErrProcessNotFound))
		for _, c := range runner.calls {
			assert.NotEqual(t, "jstack", c.name)
		}
	})

	t.Run("NonZeroExit", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.results["jstack"] = &CommandResult{Stderr: []byte("12345: Unable to open socket file\n"), ExitCode: 1}

		_, err := newGenerator(runner, time.Second).Generate(context.Background(), 12345)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeDumpToolError, apperrors.GetErrorCode(err))
		assert.Contains(t, err.Error(), "Unable to open socket file")
	})

	t.Run("NonZeroExitWithoutStderr", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.results["jstack"] = &CommandResult{ExitCode: 2}

		_, err := newGenerator(runner, time.Second).Generate(context.Background(), 12345)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown error")
	})

	t.Run("EmptyOutput", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.results["jstack"] = &CommandResult{Stdout: []byte("  \n")}

		_, err := newGenerator(runner, time.Second).Generate(context.Background(), 12345)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "produced no output for PID 12345")
	})

	t.Run("Timeout", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jps"] = &CommandResult{Stdout: []byte(jpsOutput)}
		runner.block = true

		_, err := newGenerator(runner, 20*time.Millisecond).Generate(context.Background(), 12345)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeDumpToolError, apperrors.GetErrorCode(err))
		assert.True(t, strings.Contains(err.Error(), "timed out"))
	})
}

func TestDumpGenerator_Available(t *testing.T) {
	t.Run("HelpExitsNonZero", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results["jstack"] = &CommandResult{ExitCode: 1}
		assert.True(t, newGenerator(runner, 0).Available(context.Background()))
	})

	t.Run("NotFound", func(t *testing.T) {
		assert.False(t, newGenerator(newFakeRunner(), 0).Available(context.Background()))
	})

	t.Run("RunError", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errs["jstack"] = errors.New("boom")
		assert.False(t, newGenerator(runner, 0).Available(context.Background()))
	})
}

func TestExecRunner_MissingBinary(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-jdk-tool-xyz")
	require.NoError(t, err)
	assert.Equal(t, ExitCommandNotFound, res.ExitCode)
}

func TestNewDumpGenerator_Defaults(t *testing.T) {
	g := NewDumpGenerator(nil, nil, "", 0, nil)
	assert.Equal(t, "jstack", g.jstackPath)
	assert.Equal(t, DefaultDumpTimeout, g.timeout)
	assert.NotNil(t, g.lister)
}
