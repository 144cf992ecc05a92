package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Tick bounds. Faster ticks waste CPU; slower ones make the UI feel stuck.
const (
	MinTickInterval = 10 * time.Millisecond
	MaxTickInterval = 5 * time.Second
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	// Headless mode has no way to ask for folders.
	if cfg.Headless {
		if strings.TrimSpace(cfg.PatchDir) == "" {
			errs = append(errs, ValidationError{
				Field:   "patch_dir",
				Message: "required in headless mode",
			})
		}
		if strings.TrimSpace(cfg.OutputDir) == "" {
			errs = append(errs, ValidationError{
				Field:   "output_dir",
				Message: "required in headless mode",
			})
		}
	}

	if cfg.TickInterval < MinTickInterval || cfg.TickInterval > MaxTickInterval {
		errs = append(errs, ValidationError{
			Field:   "tick_interval",
			Message: fmt.Sprintf("must be between %v and %v (got %v)", MinTickInterval, MaxTickInterval, cfg.TickInterval),
		})
	}

	if cfg.Delay < 0 {
		errs = append(errs, ValidationError{
			Field:   "delay",
			Message: "must not be negative",
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("must be host:port (%v)", err),
			})
		}
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
