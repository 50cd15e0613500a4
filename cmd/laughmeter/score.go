package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/dooshek/laughmeter/internal/audio"
	"github.com/dooshek/laughmeter/internal/notification"
	"github.com/dooshek/laughmeter/internal/session"
	"github.com/dooshek/laughmeter/internal/stats"
	"github.com/dooshek/laughmeter/internal/types"
)

const barWidth = 30

var errSessionFailed = errors.New("scoring session failed")

// scoreFile runs one session over an audio file, as fast as ffmpeg decodes,
// and prints the final score.
func scoreFile(ctx context.Context, path string, cfg *types.Config) error {
	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	capturer := audio.NewFileCapturer(path, cfg.GetCaptureConfig().SampleRate)
	capturer.Pace = false

	results := make(chan session.Result, 1)
	controller := session.New(capturer, detector, append(sessionOptions(cfg),
		session.WithCompletionHook(func(r session.Result) { results <- r }),
	)...)
	defer controller.Close()

	snapshots, unsubscribe := controller.Subscribe()
	defer unsubscribe()

	if err := controller.Press(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-results:
			printScore(path, r)
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return errSessionFailed
			}
			if snap.State == types.StateIdle && snap.Generation > 0 {
				return errSessionFailed
			}
		}
	}
}

func printScore(path string, r session.Result) {
	bold := color.New(color.Bold)
	bold.Printf("\n%s\n", path)
	fmt.Printf("  %s %s\n", meterBar(r.Score), notification.FormatScoreMessage(r.Score))
	fmt.Printf("  scored over %.1fs of audio\n", r.Duration.Seconds())
}

// meterBar renders a score as a coloured bar.
func meterBar(score float64) string {
	filled := int(score*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	c := color.New(color.FgRed)
	switch {
	case score > 0.75:
		c = color.New(color.FgGreen)
	case score > 0.5:
		c = color.New(color.FgYellow)
	}
	return "[" + c.Sprint(strings.Repeat("#", filled)) + strings.Repeat(".", barWidth-filled) + "]"
}

func printStats() error {
	sm, err := stats.NewStatsManager()
	if err != nil {
		return err
	}
	s := sm.GetStats()

	bold := color.New(color.Bold)
	bold.Println("Laugh Meter statistics")
	fmt.Printf("  sessions completed: %d\n", s.SessionsCompleted)
	fmt.Printf("  time listened:      %.0fs\n", s.TotalSeconds)
	if s.Best != nil {
		fmt.Printf("  best:  %s %s\n", meterBar(s.Best.Score), s.Best.At.Local().Format("2006-01-02 15:04"))
	}
	if s.Last != nil {
		fmt.Printf("  last:  %s %s\n", meterBar(s.Last.Score), s.Last.At.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
