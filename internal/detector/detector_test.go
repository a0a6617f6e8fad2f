package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-dump-analysis/internal/testutil"
	"github.com/thread-dump-analysis/pkg/model"
)

func findingsOfType(findings []model.Finding, typ model.FindingType) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine()

	rules := engine.Rules()
	require.Len(t, rules, 9)
	assert.Equal(t, "potential_deadlock", rules[0].Name)
	assert.Equal(t, "identical_stack_traces", rules[8].Name)
}

func TestNewEngineWithRules(t *testing.T) {
	called := 0
	engine := NewEngineWithRules([]Rule{
		{Name: "custom", Check: func(in *Input) []model.Finding {
			called++
			require.NotNil(t, in.Statistics)
			assert.Equal(t, 1, in.Statistics.TotalThreads)
			return []model.Finding{{Type: model.FindingHighThreadCount, Severity: model.SeverityLow}}
		}},
		{Name: "no_check"},
	})

	findings := engine.Detect([]model.ThreadRecord{testutil.Record("main", model.ThreadStateRunnable)}, nil)

	assert.Equal(t, 1, called)
	assert.Len(t, findings, 1)
}

func TestDetect_EmptyInput(t *testing.T) {
	findings := NewEngine().Detect(nil, nil)

	assert.NotNil(t, findings)
	assert.Empty(t, findings)
}

func TestDetect_HealthyDump(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(5, "worker-%d", model.ThreadStateRunnable),
		testutil.Records(3, "timer-%d", model.ThreadStateTimedWaiting),
	)

	assert.Empty(t, NewEngine().Detect(records, nil))
}

func TestPotentialDeadlock_SharedLock(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("t1", model.ThreadStateBlocked, testutil.WithLock("0x1", "t3")),
		testutil.Record("t2", model.ThreadStateBlocked, testutil.WithLock("0x1", "t3")),
		testutil.Record("t3", model.ThreadStateRunnable),
	}

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingPotentialDeadlock)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.ElementsMatch(t, []string{"t1", "t2"}, f.AffectedThreads)
	assert.Equal(t, "Multiple threads are blocked waiting for locks. 2 threads involved.", f.Description)

	details, ok := f.Details.(model.DeadlockDetails)
	require.True(t, ok)
	assert.Equal(t, 2, details.BlockedThreadCount)
	assert.Equal(t, []model.LockCount{{Lock: "0x1", Waiters: 2}}, details.LockContention)
}

func TestPotentialDeadlock_DistinctLocks(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("a", model.ThreadStateBlocked, testutil.WithLock("0x1", "b")),
		testutil.Record("b", model.ThreadStateBlocked, testutil.WithLock("0x2", "a")),
	}

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingPotentialDeadlock)

	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Equal(t, []string{"a", "b"}, findings[0].AffectedThreads)
}

func TestPotentialDeadlock_OnlyWaitersOfSharedLocksAffected(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("a", model.ThreadStateBlocked, testutil.WithLock("0x1", "")),
		testutil.Record("b", model.ThreadStateBlocked, testutil.WithLock("0x2", "")),
		testutil.Record("c", model.ThreadStateBlocked, testutil.WithLock("0x1", "")),
	}

	f := findingsOfType(NewEngine().Detect(records, nil), model.FindingPotentialDeadlock)

	require.Len(t, f, 1)
	assert.Equal(t, []string{"a", "c"}, f[0].AffectedThreads)
	assert.Contains(t, f[0].Description, "3 threads involved")
}

func TestPotentialDeadlock_NotEnoughCandidates(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("a", model.ThreadStateBlocked, testutil.WithLock("0x1", "")),
		testutil.Record("b", model.ThreadStateBlocked),
		testutil.Record("c", model.ThreadStateWaiting, testutil.WithLock("0x1", "")),
	}

	assert.Empty(t, findingsOfType(NewEngine().Detect(records, nil), model.FindingPotentialDeadlock))
}

func TestHighThreadCount(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"at threshold", 1000, 0},
		{"above threshold", 1001, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := testutil.Records(tt.count, "app-%d", model.ThreadStateRunnable)

			findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingHighThreadCount)

			require.Len(t, findings, tt.want)
			if tt.want == 1 {
				assert.Equal(t, model.SeverityMedium, findings[0].Severity)
				assert.Equal(t, "High number of threads detected: 1001", findings[0].Description)
				assert.Empty(t, findings[0].AffectedThreads)
				assert.Nil(t, findings[0].Details)
			}
		})
	}
}

func TestHighBlockedThreads(t *testing.T) {
	blocked := testutil.Concat(
		testutil.Records(8, "a-%d", model.ThreadStateBlocked, testutil.WithLock("lockA", "")),
		testutil.Records(3, "b-%d", model.ThreadStateBlocked, testutil.WithLock("lockB", "")),
	)
	records := testutil.Concat(blocked, testutil.Records(40, "run-%d", model.ThreadStateRunnable))

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingHighBlockedThreads)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.SeverityMedium, f.Severity)
	assert.Equal(t, "High number of blocked threads: 11. Top contended locks: lockA(8 threads), lockB(3 threads)", f.Description)
	assert.Equal(t, testutil.Names(blocked[:10]), f.AffectedThreads)

	details := f.DetailsMap()
	assert.Equal(t, 11, details["blockedCount"])
	assert.Equal(t, map[string]any{"lockA": 8, "lockB": 3}, details["lockContention"])
}

func TestHighBlockedThreads_Boundaries(t *testing.T) {
	ten := testutil.Records(10, "b-%d", model.ThreadStateBlocked)
	assert.Empty(t, findingsOfType(NewEngine().Detect(ten, nil), model.FindingHighBlockedThreads))

	many := testutil.Records(51, "b-%d", model.ThreadStateBlocked)
	findings := findingsOfType(NewEngine().Detect(many, nil), model.FindingHighBlockedThreads)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestHighWaitingThreads(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(30, "sleeper-%d", model.ThreadStateTimedWaiting,
			testutil.WithStack("at java.lang.Thread.sleep(Native Method)")),
		testutil.Records(21, "idle-%d", model.ThreadStateWaiting,
			testutil.WithStack("at sun.misc.Unsafe.park(Native Method)")),
	)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingHighWaitingThreads)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.SeverityLow, f.Severity)
	assert.Equal(t, "High number of waiting threads: 51. Common wait patterns: java.lang.Thread.sleep(Native Method)(30), Unknown wait(21)", f.Description)
	assert.Len(t, f.AffectedThreads, 10)
}

func TestHighWaitingThreads_Severity(t *testing.T) {
	assert.Empty(t, findingsOfType(
		NewEngine().Detect(testutil.Records(50, "w-%d", model.ThreadStateWaiting), nil),
		model.FindingHighWaitingThreads))

	findings := findingsOfType(
		NewEngine().Detect(testutil.Records(201, "w-%d", model.ThreadStateWaiting), nil),
		model.FindingHighWaitingThreads)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
}

func TestCPUHotspot(t *testing.T) {
	hot := testutil.WithStack("at com.acme.Hot.spin(Hot.java:10)", "at com.acme.Main.run(Main.java:5)")
	records := testutil.Concat(
		testutil.Records(4, "exec-%d", model.ThreadStateRunnable, hot),
		testutil.Records(3, "cold-%d", model.ThreadStateRunnable,
			testutil.WithStack("at com.acme.Cold.idle(Cold.java:1)")),
	)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingCPUHotspot)

	require.Len(t, findings, 2)
	assert.Equal(t, "Method frequently appears in runnable thread stack traces: com.acme.Hot.spin (4 occurrences)", findings[0].Description)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
	assert.Equal(t, []string{"exec-0", "exec-1", "exec-2", "exec-3"}, findings[0].AffectedThreads)
	assert.Equal(t, map[string]any{"method": "com.acme.Hot.spin", "occurrences": 4, "threadCount": 4}, findings[0].DetailsMap())
	assert.Contains(t, findings[1].Description, "com.acme.Main.run")
}

func TestCPUHotspot_LimitAndSeverity(t *testing.T) {
	var frames []string
	for i := 0; i < 7; i++ {
		frames = append(frames, fmt.Sprintf("at com.acme.M.m%d(M.java:%d)", i, i))
	}
	records := testutil.Records(11, "exec-%d", model.ThreadStateRunnable, testutil.WithStack(frames...))

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingCPUHotspot)

	require.Len(t, findings, 5)
	for _, f := range findings {
		assert.Equal(t, model.SeverityHigh, f.Severity)
	}
}

func TestLockContentionHotspot(t *testing.T) {
	records := testutil.Records(3, "blk-%d", model.ThreadStateBlocked,
		testutil.WithStack("at com.acme.Cache.put(Cache.java:42)"))
	records = append(records, testutil.Records(4, "run-%d", model.ThreadStateRunnable)...)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingLockContentionHotspot)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, "Method frequently causes thread blocking: com.acme.Cache.put (3 blocked threads)", f.Description)
	assert.Equal(t, 3, f.DetailsMap()["blockedCount"])
}

func TestExcessiveHTTPThreads(t *testing.T) {
	records := testutil.Records(201, "http-nio-8080-exec-%d", model.ThreadStateWaiting)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingExcessiveHTTPThreads)

	require.Len(t, findings, 1)
	assert.Equal(t, "High number of HTTP/Web threads: 201", findings[0].Description)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
	assert.Len(t, findings[0].AffectedThreads, 10)
	assert.Equal(t, map[string]any{"threadCount": 201, "category": model.CategoryHTTP}, findings[0].DetailsMap())

	assert.Empty(t, findingsOfType(
		NewEngine().Detect(records[:200], nil), model.FindingExcessiveHTTPThreads))
}

func TestDatabaseConnectionContention(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(6, "HikariPool-1 connection adder %d", model.ThreadStateBlocked),
		testutil.Records(4, "HikariPool-1 housekeeper %d", model.ThreadStateTimedWaiting),
		testutil.Records(10, "exec-%d", model.ThreadStateRunnable),
	)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingDatabaseConnectionContention)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "Multiple database threads are blocked: 6 out of 10", f.Description)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Len(t, f.AffectedThreads, 6)
	assert.Equal(t, map[string]any{"blockedThreads": 6, "totalDbThreads": 10}, f.DetailsMap())
}

func TestThreadStarvation(t *testing.T) {
	records := []model.ThreadRecord{testutil.Record("only", model.ThreadStateBlocked)}

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingThreadStarvation)

	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "Potential thread starvation: 1 blocked threads with only 0 runnable", findings[0].Description)
	assert.Equal(t, []string{"only"}, findings[0].AffectedThreads)
}

func TestThreadStarvation_NeverWithoutBlocked(t *testing.T) {
	records := testutil.Records(3, "w-%d", model.ThreadStateWaiting)

	assert.Empty(t, findingsOfType(NewEngine().Detect(records, nil), model.FindingThreadStarvation))
}

func TestThreadStarvation_EnoughRunnable(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(1, "b-%d", model.ThreadStateBlocked),
		testutil.Records(2, "r-%d", model.ThreadStateRunnable),
	)

	assert.Empty(t, findingsOfType(NewEngine().Detect(records, nil), model.FindingThreadStarvation))
}

func TestExcessiveBlocking(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(4, "b-%d", model.ThreadStateBlocked),
		testutil.Records(6, "r-%d", model.ThreadStateRunnable),
	)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingExcessiveBlocking)

	require.Len(t, findings, 1)
	assert.Equal(t, "High percentage of blocked threads: 40.0% (4 out of 10)", findings[0].Description)
	assert.InDelta(t, 40.0, findings[0].DetailsMap()["blockingPercentage"], 0.001)
}

func TestExcessiveBlocking_ExactlyThirtyPercent(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(3, "b-%d", model.ThreadStateBlocked),
		testutil.Records(7, "r-%d", model.ThreadStateRunnable),
	)

	assert.Empty(t, findingsOfType(NewEngine().Detect(records, nil), model.FindingExcessiveBlocking))
}

func TestIdenticalStackTraces(t *testing.T) {
	stack := testutil.WithStack(
		"at java.net.SocketInputStream.read(SocketInputStream.java:171)",
		"at java.io.BufferedInputStream.fill(BufferedInputStream.java:246)",
		"at java.io.BufferedInputStream.read(BufferedInputStream.java:265)",
		"at com.acme.Client.poll(Client.java:30)",
	)
	records := testutil.Concat(
		testutil.Records(3, "reader-%d", model.ThreadStateRunnable, stack),
		testutil.Records(2, "pair-%d", model.ThreadStateRunnable, testutil.WithStack("at a.B.c(B.java:1)")),
		testutil.Records(3, "empty-%d", model.ThreadStateRunnable),
	)

	findings := findingsOfType(NewEngine().Detect(records, nil), model.FindingIdenticalStackTraces)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "Multiple threads with identical stack traces: 3 threads", f.Description)
	assert.Equal(t, []string{"reader-0", "reader-1", "reader-2"}, f.AffectedThreads)

	details, ok := f.Details.(model.StackClusterDetails)
	require.True(t, ok)
	assert.Equal(t, 3, details.ThreadCount)
	assert.Len(t, details.StackTrace, 3)
}

func TestDetect_RuleOrder(t *testing.T) {
	records := testutil.Concat(
		testutil.Records(2, "b-%d", model.ThreadStateBlocked, testutil.WithLock("0xabc", "")),
	)

	findings := NewEngine().Detect(records, nil)

	require.Len(t, findings, 3)
	assert.Equal(t, model.FindingPotentialDeadlock, findings[0].Type)
	assert.Equal(t, model.FindingThreadStarvation, findings[1].Type)
	assert.Equal(t, model.FindingExcessiveBlocking, findings[2].Type)
}

func TestDetect_AffectedThreadsAreInputNames(t *testing.T) {
	mixed := testutil.Concat(
		testutil.Records(12, "http-nio-exec-%d", model.ThreadStateBlocked,
			testutil.WithLock("0x1", ""), testutil.WithStack("at com.acme.Svc.call(Svc.java:1)")),
		testutil.Records(60, "pool-1-thread-%d", model.ThreadStateWaiting,
			testutil.WithStack("at java.lang.Object.wait(Native Method)")),
		testutil.Records(5, "cpu-%d", model.ThreadStateRunnable,
			testutil.WithStack("at com.acme.Loop.run(Loop.java:9)")),
	)
	known := make(map[string]bool)
	for _, n := range testutil.Names(mixed) {
		known[n] = true
	}

	findings := NewEngine().Detect(mixed, nil)

	require.NotEmpty(t, findings)
	for _, f := range findings {
		for _, name := range f.AffectedThreads {
			assert.True(t, known[name], "%s: unknown thread %q", f.Type, name)
		}
	}
}
