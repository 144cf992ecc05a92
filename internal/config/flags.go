package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const usageHeader = `aeco-patch-configurator - build an AECO patch configuration without blocking the UI

Usage:
  aeco-patch-configurator [flags] [PATCH_DIR [OUTPUT_DIR]]

`

// ParseFlags parses the process command line and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:], os.Stderr)
}

// ParseArgs parses args (without the program name). Usage and errors are
// written to output. Values from -config are applied first, so explicit
// flags win over the file.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	// First pass only discovers -config.
	probe := DefaultConfig()
	if _, err := parseInto(probe, args, io.Discard); err != nil {
		// Rerun against the real output so the user sees the message.
		_, err = parseInto(DefaultConfig(), args, output)
		return nil, err
	}

	cfg := DefaultConfig()
	if probe.ConfigFile != "" {
		if err := LoadFile(cfg, probe.ConfigFile); err != nil {
			return nil, err
		}
	}

	fs, err := parseInto(cfg, args, output)
	if err != nil {
		return nil, err
	}

	// Positional arguments: PATCH_DIR [OUTPUT_DIR]
	rest := fs.Args()
	if len(rest) >= 1 {
		cfg.PatchDir = rest[0]
	}
	if len(rest) >= 2 {
		cfg.OutputDir = rest[1]
	}
	if len(rest) > 2 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[2:], " "))
	}

	return cfg, nil
}

// parseInto binds every flag to cfg and parses args.
func parseInto(cfg *Config, args []string, output io.Writer) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet("aeco-patch-configurator", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprint(output, usageHeader)
		fmt.Fprintf(output, "Folders:\n")
		printFlagCategory(fs, output, []string{"patch-dir", "output-dir"})

		fmt.Fprintf(output, "\nEvent Loop:\n")
		printFlagCategory(fs, output, []string{"headless", "tick", "delay"})

		fmt.Fprintf(output, "\nObservability:\n")
		printFlagCategory(fs, output, []string{"metrics", "print-metrics", "log-format", "log-level", "log-file", "v"})

		fmt.Fprintf(output, "\nConfiguration:\n")
		printFlagCategory(fs, output, []string{"config"})

		fmt.Fprintf(output, `
Examples:
  # Interactive terminal UI
  aeco-patch-configurator

  # One-shot generation from a script
  aeco-patch-configurator -headless ./patches/v2 ./dist

`)
	}

	// Folders
	fs.StringVar(&cfg.PatchDir, "patch-dir", cfg.PatchDir, "Patch folder to read from")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, `Output base folder ("aeco-patch" is appended)`)

	// Event loop
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Generate once without the terminal UI, then exit")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Event loop tick interval")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Artificial delay before each generation (demo)")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.PrintMetrics, "print-metrics", cfg.PrintMetrics, "Print metrics in Prometheus text format on exit")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file (UI mode discards logs otherwise)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")

	// Configuration
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML file with default settings")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, w io.Writer, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(w, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(w)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
