package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-dump-analysis/internal/testutil"
	"github.com/thread-dump-analysis/pkg/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"http-nio-8080-exec-1", model.CategoryHTTP},
		{"gc-worker-pool-1", model.CategoryGC},
		{"G1 Young RemSet Sampling", model.CategoryGC},
		{"Concurrent Mark Thread", model.CategoryGC},
		{"reactor-netty-epoll-2", model.CategoryHTTP},
		{"HikariPool-1 housekeeper", model.CategoryDatabase},
		{"mysql-cj-abandoned-connection-cleanup", model.CategoryDatabase},
		{"ForkJoinPool.commonPool-worker-3", model.CategoryThreadPool},
		{"quartzScheduler_Worker-1", model.CategoryThreadPool},
		{"VM Thread", model.CategoryJVMInternal},
		{"C2 CompilerThread0", model.CategoryJVMInternal},
		{"Reference Handler", model.CategoryJVMInternal},
		{"Finalizer", model.CategoryJVMInternal},
		{"main", model.CategoryApplication},
		{"order-service-listener", model.CategoryApplication},
		{"Signal Dispatcher", model.CategoryOther},
		{"", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.name))
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)

	assert.Equal(t, 0, stats.TotalThreads)
	assert.Len(t, stats.ThreadsByState, len(model.AllThreadStates()))
	for _, s := range model.AllThreadStates() {
		assert.Equal(t, 0, stats.ThreadsByState[s], s.String())
	}
	assert.Empty(t, stats.ThreadGroups)
	assert.Zero(t, stats.BlockedThreads+stats.WaitingThreads+stats.RunnableThreads+stats.DaemonThreads)
}

func TestAggregate_Counts(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("main", model.ThreadStateRunnable),
		testutil.Record("http-nio-1", model.ThreadStateBlocked, testutil.Daemon()),
		testutil.Record("http-nio-2", model.ThreadStateWaiting, testutil.Daemon()),
		testutil.Record("pool-1-thread-1", model.ThreadStateTimedWaiting),
		testutil.Record("", model.ThreadStateUnknown),
		testutil.Record("odd", model.ThreadState("SPINNING")),
	}

	stats := Aggregate(records)

	assert.Equal(t, len(records), stats.TotalThreads)
	assert.Equal(t, 1, stats.RunnableThreads)
	assert.Equal(t, 1, stats.BlockedThreads)
	assert.Equal(t, 2, stats.WaitingThreads)
	assert.Equal(t, 2, stats.DaemonThreads)
	assert.Equal(t, 2, stats.ThreadsByState[model.ThreadStateUnknown])
	assert.Equal(t, 1, stats.ThreadsByState[model.ThreadStateTimedWaiting])
	assert.Len(t, stats.ThreadsByState, len(model.AllThreadStates()))
	assert.Equal(t, map[string]int{
		model.CategoryApplication: 1,
		model.CategoryHTTP:        2,
		model.CategoryThreadPool:  1,
		model.CategoryOther:       2,
	}, stats.ThreadGroups)
}

func TestAggregate_TotalMatchesInput(t *testing.T) {
	for _, n := range []int{0, 1, 17, 1001} {
		records := testutil.Records(n, "worker-%d", model.ThreadStateRunnable)
		assert.Equal(t, n, Aggregate(records).TotalThreads)
	}
}

func TestTopGroups(t *testing.T) {
	stats := model.NewStatistics()
	stats.ThreadGroups = map[string]int{
		model.CategoryOther:       4,
		model.CategoryHTTP:        4,
		model.CategoryGC:          1,
		model.CategoryThreadPool:  7,
		model.CategoryApplication: 0,
	}

	top := TopGroups(stats, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []GroupCount{
		{model.CategoryThreadPool, 7},
		{model.CategoryHTTP, 4},
		{model.CategoryOther, 4},
	}, top)

	assert.Len(t, TopGroups(stats, 0), 4)
	assert.Nil(t, TopGroups(nil, 3))
}

func TestGroupRecords(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("hikari-1", model.ThreadStateBlocked),
		testutil.Record("main", model.ThreadStateRunnable),
		testutil.Record("hikari-2", model.ThreadStateRunnable),
	}
	groups := GroupRecords(records)
	assert.Equal(t, []string{"hikari-1", "hikari-2"}, testutil.Names(groups[model.CategoryDatabase]))
	assert.Equal(t, []string{"main"}, testutil.Names(groups[model.CategoryApplication]))
}

func TestMethodToken(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"at com.example.Foo.bar(Foo.java:10)", "com.example.Foo.bar"},
		{"at java.lang.Object.wait(Native Method)", "java.lang.Object.wait"},
		{"at com.example.NoParens", "at com.example.NoParens"},
		{"(weird) at x", "(weird) at x"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, MethodToken(tt.line))
		})
	}
}

func TestCountMethods(t *testing.T) {
	records := []model.ThreadRecord{
		testutil.Record("a", model.ThreadStateRunnable, testutil.WithStack(
			"at x.Y.first(Y.java:1)", "at x.Y.loop(Y.java:2)", "at x.Y.loop(Y.java:2)")),
		testutil.Record("b", model.ThreadStateRunnable, testutil.WithStack(
			"at x.Y.first(Y.java:1)", "at x.Y.loop(Y.java:3)")),
		testutil.Record("c", model.ThreadStateBlocked, testutil.WithStack(
			"at x.Y.loop(Y.java:2)")),
		testutil.Record("d", model.ThreadStateRunnable, testutil.WithStack(
			"- locked <0x1>", "at x.Z.tail(Z.java:9)")),
	}

	counts := CountMethods(records, model.ThreadStateRunnable)
	require.Len(t, counts, 3)
	assert.Equal(t, MethodCount{Method: "x.Y.loop", Occurrences: 3, Threads: []string{"a", "b"}}, counts[0])
	assert.Equal(t, MethodCount{Method: "x.Y.first", Occurrences: 2, Threads: []string{"a", "b"}}, counts[1])
	assert.Equal(t, MethodCount{Method: "x.Z.tail", Occurrences: 1, Threads: []string{"d"}}, counts[2])

	blocked := CountMethods(records, model.ThreadStateBlocked)
	require.Len(t, blocked, 1)
	assert.Equal(t, []string{"c"}, blocked[0].Threads)
}
