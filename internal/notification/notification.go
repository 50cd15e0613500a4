package notification

import (
	"fmt"
	"runtime"

	"github.com/dooshek/laughmeter/internal/logger"
)

const appTitle = "Laugh Meter"

// Notifier defines the interface for system notifications
type Notifier interface {
	NotifySessionStarted() error
	NotifySessionCompleted(score float64) error
	NotifySessionFailed(err error) error
	Notify(title, message string) error
	PlayStartBeep() error
	PlayStopBeep() error
}

// SilentNotifier is a no-op implementation for daemon mode
type SilentNotifier struct{}

func NewSilent() Notifier {
	return &SilentNotifier{}
}

func (s *SilentNotifier) NotifySessionStarted() error                { return nil }
func (s *SilentNotifier) NotifySessionCompleted(score float64) error { return nil }
func (s *SilentNotifier) NotifySessionFailed(err error) error        { return nil }
func (s *SilentNotifier) Notify(title, message string) error         { return nil }
func (s *SilentNotifier) PlayStartBeep() error                       { return nil }
func (s *SilentNotifier) PlayStopBeep() error                        { return nil }

type baseNotifier struct {
	platform platformNotifier
}

type platformNotifier interface {
	send(title, message string) error
	playStartBeep() error
	playStopBeep() error
}

// New creates a new platform-specific notification service
func New() Notifier {
	logger.Debug("Initializing notification system")
	var platform platformNotifier
	switch runtime.GOOS {
	case "darwin":
		logger.Debug("Using Darwin (macOS) notifier")
		platform = newDarwinNotifier()
	default:
		logger.Debug("Using Linux notifier")
		platform = newLinuxNotifier(defaultSoundDir)
	}
	return &baseNotifier{platform: platform}
}

func (n *baseNotifier) NotifySessionStarted() error {
	logger.Debug("Sending session started notification")
	return n.Notify(appTitle, "Listening... make them laugh!")
}

func (n *baseNotifier) NotifySessionCompleted(score float64) error {
	return n.Notify(appTitle, FormatScoreMessage(score))
}

func (n *baseNotifier) NotifySessionFailed(err error) error {
	return n.Notify(appTitle, fmt.Sprintf("Recording failed: %v", err))
}

func (n *baseNotifier) Notify(title, message string) error {
	return n.platform.send(title, message)
}

func (n *baseNotifier) PlayStartBeep() error {
	return n.platform.playStartBeep()
}

func (n *baseNotifier) PlayStopBeep() error {
	return n.platform.playStopBeep()
}

// FormatScoreMessage renders a final score as a percentage with a verdict.
func FormatScoreMessage(score float64) string {
	pct := int(score*100 + 0.5)
	var verdict string
	switch {
	case score > 0.75:
		verdict = "Roaring laughter!"
	case score > 0.5:
		verdict = "Solid laugh."
	case score > 0.2:
		verdict = "A chuckle."
	default:
		verdict = "Crickets."
	}
	return fmt.Sprintf("Laugh score: %d%% - %s", pct, verdict)
}
