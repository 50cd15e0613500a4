package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dooshek/laughmeter/internal/config"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/state"
	"github.com/dooshek/laughmeter/internal/types"
)

var version = "dev"

func init() {
	// Set custom usage message to show -- prefix
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(out, "  --%s", f.Name)
			name, usage := flag.UnquoteUsage(f)
			if len(name) > 0 {
				fmt.Fprintf(out, " %s", name)
			}
			fmt.Fprintf(out, "\n    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" {
				fmt.Fprintf(out, " (default %q)", f.DefValue)
			}
			fmt.Fprintf(out, "\n")
		})
	}
}

func main() {
	runWizard := flag.Bool("wizard", false, "Run the configuration wizard")
	logLevel := flag.String("log-level", "info", "Set log level (debug|info|warn|error)")
	logFilename := flag.String("log-filename", "", "Log to file instead of stdout")
	scorePath := flag.String("file", "", "Score an audio file through one session and exit")
	detectorKind := flag.String("detector", "", "Override the detector (heuristic|follower)")
	daemon := flag.Bool("daemon", false, "Run without desktop notifications (UI handled by D-Bus or WebSocket clients)")
	showStats := flag.Bool("stats", false, "Print session statistics and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("laughmeter", version)
		return
	}

	logger.SetLevel(*logLevel)
	if *logFilename != "" {
		if err := logger.SetOutputFile(*logFilename); err != nil {
			fmt.Printf("Error setting log file: %v\n", err)
			os.Exit(1)
		}
		defer logger.CloseLogFile()
	}

	if err := run(*runWizard, *scorePath, *detectorKind, *daemon, *showStats); err != nil {
		logger.Error("laughmeter failed", err)
		logger.CloseLogFile()
		os.Exit(1)
	}
}

func run(runWizard bool, scorePath, detectorKind string, daemon, showStats bool) error {
	if runWizard {
		return config.RunWizard()
	}
	if showStats {
		return printStats()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if scorePath != "" {
		if cfg == nil {
			cfg = config.Default()
		}
		if detectorKind != "" {
			cfg.Detector.Kind = types.DetectorKind(detectorKind)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return scoreFile(ctx, scorePath, cfg)
	}

	if cfg == nil {
		logger.Info("No configuration found. Running setup wizard...")
		if err := config.RunWizard(); err != nil {
			return fmt.Errorf("error running wizard: %w", err)
		}
		if cfg, err = config.LoadConfig(); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if cfg == nil {
			return errors.New("wizard did not save a configuration")
		}
	}
	if detectorKind != "" {
		cfg.Detector.Kind = types.DetectorKind(detectorKind)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	state.Init(cfg)
	return runDaemon(state.Get(), daemon)
}
