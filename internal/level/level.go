// Package level maps microphone metering readings onto the 0..1 scale used
// by the laughter detectors.
package level

import "math"

const (
	// MinDB is the reading that maps to 0. Anything quieter is clamped.
	MinDB = -30.0
	// RangeDB is the span above MinDB that maps onto 0..1, so 0 dB maps to 1.
	RangeDB = 30.0
)

// Normalize converts a decibel reading to 0..1. A missing reading (nil) or a
// non-finite one normalizes to 0.
func Normalize(db *float64) float64 {
	if db == nil || math.IsNaN(*db) {
		return 0
	}
	return Clamp01((*db - MinDB) / RangeDB)
}

// Clamp01 limits v to [0, 1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
