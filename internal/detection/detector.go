// Package detection turns a stream of normalized microphone levels into a
// laughter score.
//
// A Detector is stateful and single-stream: ProcessLevel is called once per
// metering tick and Reset wipes everything accumulated so far. Detectors are
// not safe for concurrent use; the session controller serializes calls.
package detection

import (
	"errors"
	"fmt"

	"github.com/dooshek/laughmeter/internal/types"
)

// Detector is the contract every laughter detector implements, so the session
// code does not change when the heuristic is swapped for something smarter.
type Detector interface {
	// ProcessLevel consumes one normalized level (0..1) and returns the
	// current score (0..1).
	ProcessLevel(level float64) float64

	// Reset clears all state for a new recording session.
	Reset()
}

// ErrUnknownKind is returned by New for a detector kind that is not registered.
var ErrUnknownKind = errors.New("unknown detector kind")

// Config holds the tuning shared by the detectors. Use DefaultConfig and
// override fields rather than building one from scratch.
type Config struct {
	WindowSize        int     // recent samples used for variability (fewer = lower latency)
	SmoothingAlpha    float64 // EMA factor, higher = more responsive
	EnergyWeight      float64
	VariabilityWeight float64
	NoiseFloor        float64 // normalized level treated as silence
}

const (
	defaultWindowSize        = 4
	defaultSmoothingAlpha    = 0.85
	defaultEnergyWeight      = 0.7
	defaultVariabilityWeight = 0.3
	defaultNoiseFloor        = 0
)

// DefaultConfig returns the tuning the heuristic was calibrated with.
func DefaultConfig() Config {
	return Config{
		WindowSize:        defaultWindowSize,
		SmoothingAlpha:    defaultSmoothingAlpha,
		EnergyWeight:      defaultEnergyWeight,
		VariabilityWeight: defaultVariabilityWeight,
		NoiseFloor:        defaultNoiseFloor,
	}
}

// ConfigFrom converts the yaml detector section into a Config. Callers are
// expected to pass the result of types.Config.GetDetectorConfig.
func ConfigFrom(dc types.DetectorConfig) Config {
	return Config{
		WindowSize:        dc.WindowSize,
		SmoothingAlpha:    dc.SmoothingAlpha,
		EnergyWeight:      dc.EnergyWeight,
		VariabilityWeight: dc.VariabilityWeight,
		NoiseFloor:        dc.NoiseFloor,
	}
}

// sanitize replaces values that would break the arithmetic.
func (c Config) sanitize() Config {
	if c.WindowSize < 1 {
		c.WindowSize = defaultWindowSize
	}
	if c.SmoothingAlpha < 0 {
		c.SmoothingAlpha = 0
	} else if c.SmoothingAlpha > 1 {
		c.SmoothingAlpha = 1
	}
	// The noise gate divides by 1-NoiseFloor.
	if c.NoiseFloor < 0 || c.NoiseFloor >= 1 {
		c.NoiseFloor = defaultNoiseFloor
	}
	return c
}

// New builds the detector registered for kind. An empty kind selects the heuristic.
func New(kind types.DetectorKind, cfg Config) (Detector, error) {
	switch kind {
	case "", types.DetectorHeuristic:
		return NewHeuristic(cfg), nil
	case types.DetectorFollower:
		return NewFollower(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// applyNoiseGate maps a level through the noise gate: at or below the floor it
// is silence, above it is rescaled to 0..1.
func applyNoiseGate(level, floor float64) float64 {
	if level <= floor {
		return 0
	}
	return (level - floor) / (1 - floor)
}
