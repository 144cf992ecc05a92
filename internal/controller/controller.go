package controller

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/runner"
)

// OutputSubdir is appended to the chosen output folder before generating.
const OutputSubdir = "aeco-patch"

// Status messages shown to the user.
const (
	StatusBlank      = ""
	StatusWorking    = "Working..."
	StatusFinished   = "Finished!"
	StatusInProgress = "Generation already in progress."

	// StatusFailedPrefix starts every failure status; the operation's error
	// follows it.
	StatusFailedPrefix = "Failed to generate output: "
)

// TaskRunner is the part of *runner.Runner the controller drives.
type TaskRunner interface {
	Start(inputDir, outputDir string) bool
	Poll() (runner.Outcome, runner.PollStatus)
}

// DurationRecorder receives the wall time of each finished task.
type DurationRecorder interface {
	Record(d time.Duration)
}

// Controller owns the single outstanding task and the status message.
// It must be used from one goroutine, the one running the event loop.
type Controller struct {
	runner   TaskRunner
	logger   *slog.Logger
	recorder DurationRecorder

	state  State
	status string
	last   *runner.Outcome
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRecorder sets where finished task durations are recorded.
func WithRecorder(r DurationRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// New creates an idle controller with a blank status.
func New(r TaskRunner, opts ...Option) *Controller {
	c := &Controller{
		runner: r,
		logger: slog.Default(),
		state:  StateIdle,
		status: StatusBlank,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger asks for a generation from patchDir into
// outputBase/OutputSubdir. It returns true if a task was started.
func (c *Controller) Trigger(patchDir, outputBase string) bool {
	if c.state == StateRunning {
		c.status = StatusInProgress
		return false
	}

	outputDir := filepath.Join(outputBase, OutputSubdir)
	if !c.runner.Start(patchDir, outputDir) {
		// The runner still holds a task we have not drained yet.
		c.logger.Warn("trigger_rejected", "state", c.state.String())
		c.status = StatusInProgress
		return false
	}

	c.state = StateRunning
	c.status = StatusWorking
	return true
}

// Tick polls the runner once. It must be called on every iteration of the
// event loop and never blocks. When a task finishes, the outcome is
// returned along with true.
func (c *Controller) Tick() (runner.Outcome, bool) {
	outcome, status := c.runner.Poll()
	if status != runner.Finished {
		return runner.Outcome{}, false
	}

	c.state = StateIdle
	c.last = &outcome

	if outcome.Succeeded() {
		c.status = StatusFinished
	} else {
		c.status = FailureMessage(outcome.Err)
	}

	if c.recorder != nil && !outcome.Lost() {
		c.recorder.Record(outcome.Duration)
	}
	return outcome, true
}

// FailureMessage formats an operation error for the status line.
func FailureMessage(err error) string {
	return fmt.Sprintf("%s%v", StatusFailedPrefix, err)
}

// SetStatus replaces the status message, e.g. with a view-level advisory.
func (c *Controller) SetStatus(msg string) {
	c.status = msg
}

// Status returns the current status message.
func (c *Controller) Status() string {
	return c.status
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// CanTrigger reports whether a trigger would currently start a task.
func (c *Controller) CanTrigger() bool {
	return c.state.AcceptsTrigger()
}

// LastOutcome returns the most recent terminal outcome, if any.
func (c *Controller) LastOutcome() (runner.Outcome, bool) {
	if c.last == nil {
		return runner.Outcome{}, false
	}
	return *c.last, true
}
