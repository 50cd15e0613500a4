package detection

import (
	"math"

	"github.com/dooshek/laughmeter/internal/level"
)

// Follower is a plain loudness follower: noise gate, EMA smoothing and a
// ratcheting peak, with none of the laughter heuristics. It is useful as a
// baseline when tuning the heuristic and for checking a microphone.
type Follower struct {
	cfg      Config
	smoothed float64
	peak     float64
}

// NewFollower creates a level follower detector.
func NewFollower(cfg Config) *Follower {
	return &Follower{cfg: cfg.sanitize()}
}

// ProcessLevel implements Detector.
func (f *Follower) ProcessLevel(lvl float64) float64 {
	gated := applyNoiseGate(level.Clamp01(lvl), f.cfg.NoiseFloor)
	f.smoothed = f.cfg.SmoothingAlpha*gated + (1-f.cfg.SmoothingAlpha)*f.smoothed
	f.peak = math.Max(f.peak, f.smoothed)
	return level.Clamp01(f.peak)
}

// Reset implements Detector.
func (f *Follower) Reset() {
	f.smoothed = 0
	f.peak = 0
}
