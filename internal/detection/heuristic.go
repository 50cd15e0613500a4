package detection

import (
	"math"

	"github.com/dooshek/laughmeter/internal/level"
)

const (
	// ConsecutiveAboveFloorRequired is how many samples in a row must be above
	// the noise floor before any sound is let through. Filters speech peaks
	// and isolated blips.
	ConsecutiveAboveFloorRequired = 3

	// ActiveThreshold is the gated level above which a sample counts toward
	// the sustained ratio.
	ActiveThreshold = 0.2

	// VeryLoudThreshold is the raw score that unlocks the upper half of the
	// meter without sustained sound.
	VeryLoudThreshold = 0.78

	// SustainedRatioRequired is the fraction of the session that must be
	// active to unlock the upper half when the current sample is not very loud.
	SustainedRatioRequired = 0.75

	// LockedCap is the highest score reported while the meter is locked.
	LockedCap = 0.5

	// energyInstantWeight weights the current gated level against the window
	// mean so the score reacts immediately to sound onset.
	energyInstantWeight = 0.7

	// variabilityGain scales the window standard deviation into 0..1.
	variabilityGain = 4
)

// Heuristic is the energy plus variability laughter detector. Laughter is
// loud and bursty, so the score blends short-term energy with short-term
// amplitude variability, then refuses to climb above LockedCap unless the
// sound is very loud or has been present for most of the session.
type Heuristic struct {
	cfg Config

	window   *window
	smoothed float64
	peak     float64
	total    int
	active   int
	streak   int
}

// NewHeuristic creates a heuristic detector. Out-of-range config values are
// replaced with defaults.
func NewHeuristic(cfg Config) *Heuristic {
	cfg = cfg.sanitize()
	return &Heuristic{
		cfg:    cfg,
		window: newWindow(cfg.WindowSize),
	}
}

// ProcessLevel implements Detector.
func (h *Heuristic) ProcessLevel(lvl float64) float64 {
	lvl = level.Clamp01(lvl)

	if lvl > h.cfg.NoiseFloor {
		h.streak++
	} else {
		h.streak = 0
	}

	gated := 0.0
	if h.streak >= ConsecutiveAboveFloorRequired {
		gated = applyNoiseGate(lvl, h.cfg.NoiseFloor)
	}

	h.window.push(gated)

	h.total++
	if gated > ActiveThreshold {
		h.active++
	}

	energy := energyInstantWeight*gated + (1-energyInstantWeight)*h.window.mean()

	// Spread is measured around energy rather than the window mean; the
	// thresholds above were tuned against this form.
	variability := 0.0
	if h.window.len() >= 2 {
		variability = math.Min(1, math.Sqrt(h.window.variance(energy))*variabilityGain)
	}

	raw := h.cfg.EnergyWeight*energy + h.cfg.VariabilityWeight*variability

	h.smoothed = h.cfg.SmoothingAlpha*raw + (1-h.cfg.SmoothingAlpha)*h.smoothed
	h.peak = math.Max(h.peak, h.smoothed)

	veryLoud := raw > VeryLoudThreshold
	sustainedRatio := float64(h.active) / float64(h.total)
	unlocked := veryLoud || sustainedRatio >= SustainedRatioRequired

	score := h.peak
	if !unlocked {
		score = math.Min(score, LockedCap)
	}
	return level.Clamp01(score)
}

// Reset implements Detector.
func (h *Heuristic) Reset() {
	h.window.clear()
	h.smoothed = 0
	h.peak = 0
	h.total = 0
	h.active = 0
	h.streak = 0
}
