package session

import (
	"time"

	"github.com/dooshek/laughmeter/internal/notification"
	"github.com/dooshek/laughmeter/internal/observe"
)

const (
	DefaultDuration = 5 * time.Second
	DefaultInterval = 50 * time.Millisecond
)

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Clock creates stop timers and reads the time. Tests swap it for a manual
// clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ClipRecorder receives the raw PCM of a completed session.
type ClipRecorder interface {
	SaveClip(sessionID string, pcm []byte) error
}

// Result describes a completed session.
type Result struct {
	SessionID string
	Score     float64
	Duration  time.Duration
}

type Option func(*Controller)

// WithDuration sets the fixed recording length.
func WithDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithInterval sets the metering tick requested from the capturer.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRecorder buffers each session's PCM and hands it to r on completion.
func WithRecorder(r ClipRecorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithCompletionHook registers fn to run after every completed session.
func WithCompletionHook(fn func(Result)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}

func WithClock(clk Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}
