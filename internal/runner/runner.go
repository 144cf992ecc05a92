// Package runner runs at most one background generation task at a time and
// hands its outcome back to a polling caller.
//
// The caller is expected to be a cooperative loop (a UI event loop or a
// ticker) that must never block. Start returns immediately after spawning a
// goroutine, and Poll is a constant-time, non-blocking check.
package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/metrics"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/oneshot"
)

// ErrTaskLost is reported when a task's goroutine exited without sending an
// outcome, for example because the operation panicked.
var ErrTaskLost = errors.New("background task exited without reporting a result")

// Operation is the slow, synchronous work a task performs.
type Operation func(inputDir, outputDir string) error

// Outcome is the terminal result of one task.
type Outcome struct {
	TaskID   string
	Err      error // nil on success; the operation's error verbatim otherwise
	Duration time.Duration
}

// Succeeded reports whether the operation returned without error.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Lost reports whether the outcome was synthesized because the task never
// reported back.
func (o Outcome) Lost() bool {
	return errors.Is(o.Err, ErrTaskLost)
}

// Observer receives task lifecycle events. *metrics.Collector implements it.
type Observer interface {
	TaskStarted()
	TaskRejected()
	TaskFinished(result string, d time.Duration)
}

// handle is the in-flight task: the receiving end of its channel plus the
// id used to correlate logs.
type handle struct {
	id string
	rx *oneshot.Receiver[Outcome]
}

// Runner enforces single-flight execution of an Operation.
//
// Runner is not safe for concurrent use: Start and Poll must be called from
// the same goroutine. Only the spawned task goroutine runs concurrently,
// and it communicates solely through its oneshot channel.
type Runner struct {
	op       Operation
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	current *handle
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithObserver sets the lifecycle observer, typically a metrics collector.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithClock overrides time.Now for duration measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner for op.
func New(op Operation, opts ...Option) *Runner {
	r := &Runner{
		op:       op,
		logger:   slog.Default(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a task is outstanding (started, outcome not yet
// drained by Poll).
func (r *Runner) Running() bool {
	return r.current != nil
}

// Start launches op(inputDir, outputDir) in a new goroutine. If a task is
// already outstanding the request is dropped and Start returns false.
func (r *Runner) Start(inputDir, outputDir string) bool {
	if r.current != nil {
		r.logger.Debug("task_rejected", "task_id", r.current.id, "reason", "already_running")
		r.observer.TaskRejected()
		return false
	}

	tx, rx := oneshot.New[Outcome]()
	id := uuid.NewString()
	r.current = &handle{id: id, rx: rx}

	r.logger.Info("task_started", "task_id", id, "input_dir", inputDir, "output_dir", outputDir)
	r.observer.TaskStarted()

	// Strings are immutable, so the goroutine's copies cannot race with the
	// caller's later edits.
	go r.execute(id, tx, inputDir, outputDir)
	return true
}

// execute is the body of the task goroutine. It owns tx.
func (r *Runner) execute(id string, tx *oneshot.Sender[Outcome], inputDir, outputDir string) {
	// Closing after a successful Send is a no-op; after a panic it tells the
	// poller the task is gone.
	defer tx.Close()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("task_panicked", "task_id", id, "panic", fmt.Sprint(p))
		}
	}()

	start := r.now()
	err := r.op(inputDir, outputDir)

	outcome := Outcome{TaskID: id, Err: err, Duration: r.now().Sub(start)}
	if sendErr := tx.Send(outcome); sendErr != nil {
		r.logger.Error("task_send_failed", "task_id", id, "error", sendErr)
	}
}

// PollStatus describes what Poll found.
type PollStatus int

const (
	// Idle means no task is outstanding; there is nothing to report.
	Idle PollStatus = iota

	// Pending means the task is still running.
	Pending

	// Finished means the returned Outcome is terminal and the runner is
	// idle again.
	Finished
)

// String returns a human-readable name for the status.
func (s PollStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Poll checks the outstanding task without blocking. A Finished result is
// returned exactly once per started task.
func (r *Runner) Poll() (Outcome, PollStatus) {
	if r.current == nil {
		return Outcome{}, Idle
	}

	outcome, status := r.current.rx.TryRecv()
	switch status {
	case oneshot.Empty:
		return Outcome{}, Pending
	case oneshot.Ready:
		r.current = nil
		r.logger.Info("task_finished",
			"task_id", outcome.TaskID,
			"success", outcome.Succeeded(),
			"duration", outcome.Duration,
			"error", outcome.Err,
		)
		if outcome.Succeeded() {
			r.observer.TaskFinished(metrics.ResultSuccess, outcome.Duration)
		} else {
			r.observer.TaskFinished(metrics.ResultFailure, outcome.Duration)
		}
		return outcome, Finished
	default:
		id := r.current.id
		r.current.rx.Close()
		r.current = nil
		r.logger.Error("task_lost", "task_id", id)
		r.observer.TaskFinished(metrics.ResultLost, 0)
		return Outcome{TaskID: id, Err: ErrTaskLost}, Finished
	}
}

type nopObserver struct{}

func (nopObserver) TaskStarted()                       {}
func (nopObserver) TaskRejected()                      {}
func (nopObserver) TaskFinished(string, time.Duration) {}
