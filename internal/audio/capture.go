// Package audio provides the microphone and file capture backends that feed
// metering readings to a recording session.
package audio

import (
	"context"
	"errors"
	"time"

	"github.com/dooshek/laughmeter/internal/types"
)

var (
	// ErrNoCaptureDevice is returned when no input device is available.
	ErrNoCaptureDevice = errors.New("no capture device available")
	// ErrPermissionDenied is returned when the platform refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
)

const (
	DefaultInterval   = 50 * time.Millisecond
	DefaultSampleRate = 16000
	channels          = 1
)

// Reading is one metering tick. Metering is the RMS level in dBFS, or nil
// when the tick carried no audio.
type Reading struct {
	Metering *float64
}

// CaptureOptions configures a single capture run. Callbacks may be invoked
// from a backend goroutine, never concurrently with each other.
type CaptureOptions struct {
	// Duration is how long the caller intends to record. File capture stops
	// decoding there; stopping a live device is the caller's job.
	Duration time.Duration
	// Interval is the metering tick length.
	Interval time.Duration

	OnSample func(Reading)
	// OnStop fires when the backend ends on its own (file exhausted, device
	// lost), not when Handle.Stop is called.
	OnStop  func()
	OnError func(error)
	// OnPCM receives raw S16LE mono frames, if set.
	OnPCM func([]byte)
}

func (o CaptureOptions) interval() time.Duration {
	if o.Interval <= 0 {
		return DefaultInterval
	}
	return o.Interval
}

// Handle controls a running capture. Stop is idempotent and safe to call
// after the backend ended on its own.
type Handle interface {
	Stop() error
}

// Capturer is a source of metering readings.
type Capturer interface {
	// Permission reports the last known microphone authorization.
	Permission() types.PermissionStatus
	// RequestPermission asks the platform for access and returns the result.
	RequestPermission(ctx context.Context) (types.PermissionStatus, error)
	// Start begins capturing and returns once readings are flowing.
	Start(ctx context.Context, opts CaptureOptions) (Handle, error)
}
