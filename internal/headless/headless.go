// Package headless drives the controller from a plain ticker loop, for
// scripted use without the terminal UI.
package headless

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/controller"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/runner"
)

// ErrNotStarted is returned when the trigger did not start a task.
var ErrNotStarted = errors.New("generation was not started")

// Driver runs one generation to completion by ticking a controller.
type Driver struct {
	ctrl     *controller.Controller
	interval time.Duration
	logger   *slog.Logger
}

// New returns a Driver that ticks ctrl every interval.
func New(ctrl *controller.Controller, interval time.Duration, logger *slog.Logger) *Driver {
	return &Driver{ctrl: ctrl, interval: interval, logger: logger}
}

// Run triggers a generation and ticks until it finishes or ctx is done.
// Cancelling ctx only stops waiting; the background task is not cancelled.
func (d *Driver) Run(ctx context.Context, patchDir, outputBase string) (runner.Outcome, error) {
	if !d.ctrl.Trigger(patchDir, outputBase) {
		return runner.Outcome{}, &StartError{Status: d.ctrl.Status()}
	}
	d.logger.Debug("headless_waiting", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			d.logger.Warn("headless_abandoned", "ticks", ticks, "status", d.ctrl.Status())
			return runner.Outcome{}, ctx.Err()
		case <-ticker.C:
			ticks++
			if out, done := d.ctrl.Tick(); done {
				d.logger.Debug("headless_done", "ticks", ticks, "status", d.ctrl.Status())
				return out, nil
			}
		}
	}
}

// StartError carries the controller's status when a trigger was refused.
type StartError struct {
	Status string
}

func (e *StartError) Error() string {
	return ErrNotStarted.Error() + ": " + e.Status
}

func (e *StartError) Unwrap() error {
	return ErrNotStarted
}
