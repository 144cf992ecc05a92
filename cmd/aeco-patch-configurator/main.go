// Package main provides the aeco-patch-configurator entry point.
//
// aeco-patch-configurator copies an AECO patch folder into an output folder
// and writes a patch-config.toml manifest. The generation runs in the
// background while a terminal UI (or a headless tick loop) stays responsive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"github.com/randomizedcoder/aeco-patch-configurator/internal/config"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/controller"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/generator"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/headless"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/logging"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/metrics"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/preflight"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/runner"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/stats"
	"github.com/randomizedcoder/aeco-patch-configurator/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/aeco-patch-configurator
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("aeco-patch-configurator %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 2
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger, closer, err := logging.ForMode(!cfg.Headless, cfg.LogFile, logging.Options{
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		return 1
	}
	defer closer.Close()
	logging.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"headless", cfg.Headless,
		"tick", cfg.TickInterval,
		"metrics_addr", cfg.MetricsAddr,
		"config_file", cfg.ConfigFile,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollectorWithRegistry(registry)

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServerWithGatherer(cfg.MetricsAddr, registry, logger)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics_server_shutdown_failed", "error", err)
			}
		}()
	}

	gen := generator.NewOS(generator.WithDelay(cfg.Delay))
	durations := stats.NewDurationTracker()
	r := runner.New(gen.Generate, runner.WithLogger(logger), runner.WithObserver(collector))
	ctrl := controller.New(r, controller.WithLogger(logger), controller.WithRecorder(durations))

	var code int
	if cfg.Headless {
		code = runHeadless(cfg, ctrl, durations, logger)
	} else {
		code = runTUI(cfg, ctrl, durations, logger)
	}

	if cfg.PrintMetrics {
		if err := metrics.WriteText(os.Stdout, registry); err != nil {
			logger.Error("print_metrics_failed", "error", err)
		}
	}
	return code
}

// runTUI runs the interactive terminal UI until the user quits.
func runTUI(cfg *config.Config, ctrl *controller.Controller, durations *stats.DurationTracker, logger *slog.Logger) int {
	m := tui.New(tui.Config{
		Controller:   ctrl,
		Durations:    durations,
		TickInterval: cfg.TickInterval,
		PatchDir:     cfg.PatchDir,
		OutputDir:    cfg.OutputDir,
	})

	if err := tui.Run(m, tea.WithAltScreen()); err != nil {
		logger.Error("tui_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if ctrl.State() == controller.StateRunning {
		logger.Warn("exiting_with_task_running")
	}
	return 0
}

// runHeadless generates once and reports the outcome on stdout.
func runHeadless(cfg *config.Config, ctrl *controller.Controller, durations *stats.DurationTracker, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pre := preflight.RunAll(afero.NewOsFs(), cfg.PatchDir, cfg.OutputDir)
	preflight.PrintResults(os.Stdout, pre)
	if !pre.Passed {
		logger.Error("preflight_failed")
		return 1
	}

	d := headless.New(ctrl, cfg.TickInterval, logger)
	out, err := d.Run(ctx, cfg.PatchDir, cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(ctrl.Status())
	if !out.Succeeded() {
		return 1
	}

	manifestPath := filepath.Join(cfg.OutputDir, controller.OutputSubdir, generator.ManifestName)
	m, err := generator.LoadManifest(afero.NewOsFs(), manifestPath)
	if err != nil {
		logger.Warn("manifest_unreadable", "path", manifestPath, "error", err)
		return 0
	}
	fmt.Printf("  Manifest:  %s\n", manifestPath)
	fmt.Printf("  Files:     %d (%d bytes)\n", m.Patch.FileCount, m.Patch.TotalSize)
	fmt.Printf("  Took:      %s\n", durations.Last().Round(time.Millisecond))
	return 0
}
