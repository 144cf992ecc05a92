package runner

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/metrics"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/oneshot"
)

// =============================================================================
// Test Helpers
// =============================================================================

// stubOp is an Operation that counts invocations and blocks until released.
type stubOp struct {
	calls   atomic.Int32
	release chan struct{}
	err     error

	mu     sync.Mutex
	inputs [][2]string
}

func newStubOp(err error) *stubOp {
	return &stubOp{release: make(chan struct{}), err: err}
}

func (s *stubOp) run(inputDir, outputDir string) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.inputs = append(s.inputs, [2]string{inputDir, outputDir})
	s.mu.Unlock()
	<-s.release
	return s.err
}

// syncBuffer is a bytes.Buffer safe for the task goroutine to log into
// while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pollUntilFinished polls r until a terminal outcome arrives.
func pollUntilFinished(t *testing.T, r *Runner) Outcome {
	t.Helper()
	var out Outcome
	require.Eventually(t, func() bool {
		var status PollStatus
		out, status = r.Poll()
		return status == Finished
	}, 2*time.Second, time.Millisecond)
	return out
}

// =============================================================================
// Tests
// =============================================================================

func TestPoll_IdleIsIdempotent(t *testing.T) {
	r := New(newStubOp(nil).run, WithLogger(quietLogger()))

	for i := 0; i < 5; i++ {
		out, status := r.Poll()
		assert.Equal(t, Idle, status)
		assert.Equal(t, Outcome{}, out)
		assert.False(t, r.Running())
	}
}

func TestStart_SingleFlight(t *testing.T) {
	op := newStubOp(nil)
	r := New(op.run, WithLogger(quietLogger()))

	require.True(t, r.Start("/in", "/out"))
	for i := 0; i < 10; i++ {
		assert.False(t, r.Start("/other", "/other-out"), "start %d should be rejected", i)
	}
	assert.True(t, r.Running())

	close(op.release)
	out := pollUntilFinished(t, r)

	assert.True(t, out.Succeeded())
	assert.Equal(t, int32(1), op.calls.Load())
	assert.Equal(t, [][2]string{{"/in", "/out"}}, op.inputs)
	assert.False(t, r.Running())
}

func TestPoll_NonBlockingWhileRunning(t *testing.T) {
	op := newStubOp(nil)
	r := New(op.run, WithLogger(quietLogger()))
	require.True(t, r.Start("/in", "/out"))

	begin := time.Now()
	for i := 0; i < 1000; i++ {
		_, status := r.Poll()
		require.Equal(t, Pending, status)
	}
	assert.Less(t, time.Since(begin), time.Second)
	assert.True(t, r.Running())

	close(op.release)
	pollUntilFinished(t, r)
}

func TestPoll_FailureFidelity(t *testing.T) {
	diskFull := errors.New("disk full")
	op := newStubOp(diskFull)
	close(op.release)
	r := New(op.run, WithLogger(quietLogger()))

	require.True(t, r.Start("/in", "/out"))
	out := pollUntilFinished(t, r)

	assert.False(t, out.Succeeded())
	assert.Same(t, diskFull, out.Err)
	assert.False(t, out.Lost())
	assert.NotEmpty(t, out.TaskID)
}

func TestPoll_FinishedExactlyOnce(t *testing.T) {
	op := newStubOp(nil)
	close(op.release)
	r := New(op.run, WithLogger(quietLogger()))

	require.True(t, r.Start("/in", "/out"))
	pollUntilFinished(t, r)

	for i := 0; i < 3; i++ {
		_, status := r.Poll()
		assert.Equal(t, Idle, status)
	}
}

func TestPoll_PanicYieldsLostOutcome(t *testing.T) {
	r := New(func(string, string) error {
		panic("boom")
	}, WithLogger(quietLogger()))

	require.True(t, r.Start("/in", "/out"))
	out := pollUntilFinished(t, r)

	assert.True(t, out.Lost())
	assert.ErrorIs(t, out.Err, ErrTaskLost)
	assert.False(t, r.Running())

	// The runner recovers and accepts a new task.
	assert.True(t, r.Start("/in", "/out"))
	out = pollUntilFinished(t, r)
	assert.True(t, out.Lost())
}

func TestRunner_SendAfterReceiverClosed(t *testing.T) {
	logs := &syncBuffer{}
	op := newStubOp(nil)
	r := New(op.run, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	require.True(t, r.Start("/in", "/out"))
	require.Eventually(t, func() bool { return op.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

	r.current.rx.Close()
	close(op.release)

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "task_send_failed")
	}, 2*time.Second, time.Millisecond)
	assert.Contains(t, logs.String(), oneshot.ErrReceiverClosed.Error())
	assert.NotContains(t, logs.String(), "task_panicked")

	// The undelivered outcome surfaces as a lost task and the runner
	// accepts new work.
	out := pollUntilFinished(t, r)
	assert.True(t, out.Lost())
	assert.True(t, r.Start("/in", "/out"))
}

func TestStart_NewChannelPerTask(t *testing.T) {
	var calls atomic.Int32
	r := New(func(_, out string) error {
		if calls.Add(1) == 1 {
			return errors.New("first")
		}
		return nil
	}, WithLogger(quietLogger()))

	require.True(t, r.Start("/in", "/a"))
	first := pollUntilFinished(t, r)
	require.True(t, r.Start("/in", "/b"))
	second := pollUntilFinished(t, r)

	assert.EqualError(t, first.Err, "first")
	assert.NoError(t, second.Err)
	assert.NotEqual(t, first.TaskID, second.TaskID)
}

func TestRunner_Duration(t *testing.T) {
	var tick atomic.Int64
	clock := func() time.Time {
		return time.Unix(0, 0).Add(time.Duration(tick.Add(1)) * time.Second)
	}
	r := New(func(string, string) error { return nil }, WithLogger(quietLogger()), WithClock(clock))

	require.True(t, r.Start("/in", "/out"))
	out := pollUntilFinished(t, r)

	assert.Equal(t, time.Second, out.Duration)
}

func TestRunner_ObserverMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(registry)

	op := newStubOp(nil)
	r := New(op.run, WithLogger(quietLogger()), WithObserver(collector))

	require.True(t, r.Start("/in", "/out"))
	require.False(t, r.Start("/in", "/out"))
	close(op.release)
	pollUntilFinished(t, r)

	want := `
# HELP patchcfg_tasks_rejected_total Start requests dropped because a task was already running
# TYPE patchcfg_tasks_rejected_total counter
patchcfg_tasks_rejected_total 1
# HELP patchcfg_tasks_started_total Generation tasks started
# TYPE patchcfg_tasks_started_total counter
patchcfg_tasks_started_total 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(want),
		"patchcfg_tasks_started_total", "patchcfg_tasks_rejected_total")
	assert.NoError(t, err)
}

func TestPollStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "unknown", PollStatus(42).String())
}
