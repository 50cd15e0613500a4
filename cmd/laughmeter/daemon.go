package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dooshek/laughmeter/internal/audio"
	"github.com/dooshek/laughmeter/internal/config"
	"github.com/dooshek/laughmeter/internal/dbus"
	"github.com/dooshek/laughmeter/internal/detection"
	"github.com/dooshek/laughmeter/internal/fileops"
	"github.com/dooshek/laughmeter/internal/keyboard"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/notification"
	"github.com/dooshek/laughmeter/internal/observe"
	"github.com/dooshek/laughmeter/internal/recordings"
	"github.com/dooshek/laughmeter/internal/server"
	"github.com/dooshek/laughmeter/internal/session"
	"github.com/dooshek/laughmeter/internal/state"
	"github.com/dooshek/laughmeter/internal/stats"
	"github.com/dooshek/laughmeter/internal/types"
)

func newDetector(cfg *types.Config) (detection.Detector, error) {
	dc := cfg.GetDetectorConfig()
	return detection.New(dc.Kind, detection.ConfigFrom(dc))
}

func sessionOptions(cfg *types.Config) []session.Option {
	sc := cfg.GetSessionConfig()
	return []session.Option{
		session.WithDuration(time.Duration(sc.DurationMs) * time.Millisecond),
		session.WithInterval(time.Duration(sc.IntervalMs) * time.Millisecond),
	}
}

func runDaemon(app *state.AppState, daemon bool) error {
	cfg := app.Config

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create necessary directories: %w", err)
	}
	if err := fileOps.CheckPID(); err != nil {
		return err
	}
	if err := fileOps.SavePID(); err != nil {
		return fmt.Errorf("failed to save PID file: %w", err)
	}
	defer fileOps.HandleExit()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Error("Failed to shut down metrics", err)
		}
	}()

	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	statsManager, err := stats.NewStatsManager()
	if err != nil {
		return err
	}

	notifier := notification.NewSilent()
	if cfg.Notifications.Enabled && !daemon {
		notifier = notification.New()
	}

	capCfg := cfg.GetCaptureConfig()
	opts := append(sessionOptions(cfg),
		session.WithNotifier(notifier),
		session.WithMetrics(metrics),
		session.WithCompletionHook(func(r session.Result) {
			statsManager.AddSession(stats.SessionRecord{
				SessionID: r.SessionID,
				Score:     r.Score,
				Seconds:   r.Duration.Seconds(),
				At:        time.Now(),
			})
		}),
	)
	if capCfg.SaveClips {
		opts = append(opts, session.WithRecorder(recordings.NewSaver(fileOps, capCfg.SampleRate, 0)))
	}

	capturer := audio.NewMicCapturer(capCfg.SampleRate, capCfg.Device)
	controller := session.New(capturer, detector, opts...)
	defer controller.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	shortcut := config.FormatKeyCombination(cfg.RecordKey)
	if cfg.RecordKey.Key != "" {
		monitor, err := keyboard.NewMonitor(cfg.RecordKey, controller)
		if err != nil {
			return err
		}
		g.Go(func() error {
			// Without the hotkey the daemon is still reachable over D-Bus and HTTP.
			if err := monitor.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Keyboard monitor stopped", err)
			}
			return nil
		})
	}

	if cfg.DBus.Enabled {
		dbusServer := dbus.NewServer(controller, statsManager)
		g.Go(func() error {
			if err := dbusServer.Run(gctx); err != nil {
				logger.Error("D-Bus service unavailable", err)
			}
			return nil
		})
	}

	if srvCfg := cfg.GetServerConfig(); srvCfg.Enabled {
		srv := server.New(srvCfg.Listen, controller,
			server.WithStats(statsManager),
			server.WithMetrics(metrics),
			server.WithMetricsHandler(promhttp.Handler()),
		)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if err := notifier.Notify("Laugh Meter started", "Press "+shortcut+" to measure the room"); err != nil {
		logger.Warn("Could not send notification")
	}
	logger.Infof("Press %s to start a %ds session", shortcut, cfg.GetSessionConfig().DurationMs/1000)
	logger.Info("Note: You can run `laughmeter --wizard` to change the key combination")

	err = g.Wait()
	logger.Info("Shutting down...")
	return err
}
