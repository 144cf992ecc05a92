// Package config provides configuration management for aeco-patch-configurator.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration options.
type Config struct {
	// Folders
	PatchDir  string
	OutputDir string // base; the aeco-patch subfolder is appended

	// Event loop
	Headless     bool
	TickInterval time.Duration

	// Generator
	Delay time.Duration // artificial slowdown for demos

	// Observability
	MetricsAddr  string // empty = disabled
	PrintMetrics bool
	LogFormat    string // json, text
	LogLevel     string
	LogFile      string
	Verbose      bool

	// ConfigFile is the TOML file the other values were loaded from, if any.
	ConfigFile string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TickInterval: 100 * time.Millisecond,
		LogFormat:    "text",
		LogLevel:     "info",
	}
}

// fileConfig mirrors Config with string durations, which is how they are
// written in TOML files ("250ms", "2s").
type fileConfig struct {
	PatchDir     *string `toml:"patch_dir"`
	OutputDir    *string `toml:"output_dir"`
	Headless     *bool   `toml:"headless"`
	TickInterval *string `toml:"tick_interval"`
	Delay        *string `toml:"delay"`
	MetricsAddr  *string `toml:"metrics_addr"`
	PrintMetrics *bool   `toml:"print_metrics"`
	LogFormat    *string `toml:"log_format"`
	LogLevel     *string `toml:"log_level"`
	LogFile      *string `toml:"log_file"`
	Verbose      *bool   `toml:"verbose"`
}

// LoadFile applies the settings in a TOML file on top of cfg. Keys that are
// absent leave cfg untouched; unknown keys are an error.
func LoadFile(cfg *Config, path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("loading config file %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %q: unknown key %q", path, undecoded[0].String())
	}

	setString(&cfg.PatchDir, fc.PatchDir)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)
	setBool(&cfg.Headless, fc.Headless)
	setBool(&cfg.PrintMetrics, fc.PrintMetrics)
	setBool(&cfg.Verbose, fc.Verbose)

	if err := setDuration(&cfg.TickInterval, fc.TickInterval); err != nil {
		return fmt.Errorf("config file %q: tick_interval: %w", path, err)
	}
	if err := setDuration(&cfg.Delay, fc.Delay); err != nil {
		return fmt.Errorf("config file %q: delay: %w", path, err)
	}

	cfg.ConfigFile = path
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
