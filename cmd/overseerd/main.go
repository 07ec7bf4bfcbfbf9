// Package main is the entry point for the overseerd process supervisor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	overseer "github.com/gappylul/overseerd"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	exitOK        = 0
	exitUsage     = 1
	exitPreflight = 3
)

type options struct {
	configPath  string
	logFormat   string
	logLevel    string
	checkOnly   bool
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "overseerd %s (%s)\n", version, commit)
		return exitOK
	}

	cfg := overseer.DefaultConfig()
	if opts.configPath != "" {
		cfg, err = overseer.LoadConfig(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := overseer.NewLogger(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	supOpts, err := cfg.Options()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitUsage
	}

	if opts.checkOnly {
		specs, err := cfg.Specs()
		if err != nil {
			logger.Error("invalid configuration", "error", err)
			return exitUsage
		}
		if err := overseer.CheckCommands(specs); err != nil {
			logMissing(logger, err)
			return exitPreflight
		}
		logger.Info("all required worker commands found", "workers", len(specs))
		return exitOK
	}

	logger.Info("system controller starting", "version", version)
	sup := overseer.New(append(supOpts, overseer.WithLogger(logger))...)

	stop := sup.WatchSignals()
	defer stop()

	if err := sup.Start(); err != nil {
		var missing *overseer.MissingCommandsError
		if errors.As(err, &missing) {
			logMissing(logger, err)
			return exitPreflight
		}
		logger.Error("cannot start", "error", err)
		return exitUsage
	}

	sup.Wait()
	logger.Info("system controller terminated")
	return exitOK
}

func logMissing(logger *slog.Logger, err error) {
	var missing *overseer.MissingCommandsError
	if errors.As(err, &missing) {
		logger.Error("cannot start, missing required files", "missing", missing.Paths())
		return
	}
	logger.Error("cannot start", "error", err)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("overseerd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.configPath, "c", "", "Path to YAML configuration file (shorthand)")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error or critical")
	fs.BoolVar(&opts.checkOnly, "check", false, "Verify worker commands exist and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: overseerd [options]\n\n")
		fmt.Fprintf(stderr, "Runs the configured workers, restarting them when they exit.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return opts, errors.New("unexpected arguments")
	}
	return opts, nil
}
