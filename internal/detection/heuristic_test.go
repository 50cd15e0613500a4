package detection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed runs levels through d and returns every score.
func feed(d Detector, levels ...float64) []float64 {
	scores := make([]float64, len(levels))
	for i, l := range levels {
		scores[i] = d.ProcessLevel(l)
	}
	return scores
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestHeuristic_ScoresStayInRange(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		score := d.ProcessLevel(rng.Float64())
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestHeuristic_OutOfRangeInputIsClamped(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	for _, score := range feed(d, -3, 7, 12, 1e9, -1e9, 2) {
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestHeuristic_ResetClearsState(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	feed(d, 0.8, 0.9)
	d.Reset()

	score := d.ProcessLevel(0.1)
	assert.Less(t, score, 0.5)
}

func TestHeuristic_ResetAfterLoudSessionDoesNotLeak(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	feed(d, repeat(0.95, 40)...)
	require.Greater(t, d.ProcessLevel(0.95), 0.5)

	d.Reset()

	assert.Equal(t, 0, d.total)
	assert.Equal(t, 0, d.active)
	assert.Equal(t, 0, d.streak)
	assert.Equal(t, 0.0, d.peak)
	assert.Equal(t, 0.0, d.smoothed)
	assert.Equal(t, 0, d.window.len())
	assert.Less(t, d.ProcessLevel(0.1), 0.5)
}

func TestHeuristic_SustainedLoudInputGrows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.9
	d := NewHeuristic(cfg)

	prev := 0.0
	for i := 0; i < 30; i++ {
		score := d.ProcessLevel(0.6)
		assert.GreaterOrEqual(t, score, prev-0.05, "sample %d", i)
		prev = score
	}
	assert.Greater(t, prev, 0.3)
}

func TestHeuristic_SilenceStaysLow(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	feed(d, repeat(0, 50)...)

	assert.Less(t, d.ProcessLevel(0), 0.1)
}

func TestHeuristic_StreakGatesOnset(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	levels := append([]float64{0, 0, 0}, repeat(0.9, 20)...)
	scores := feed(d, levels...)

	assert.Equal(t, 0.0, scores[3], "first loud sample is gated")
	assert.Equal(t, 0.0, scores[4], "second loud sample is gated")
	assert.Greater(t, scores[5], 0.0, "third loud sample passes the gate")
	for i := 5; i < len(scores); i++ {
		assert.Greater(t, scores[i], 0.0, "sample %d", i)
	}
	assert.Greater(t, scores[len(scores)-1], LockedCap, "sustained loud sound unlocks")
}

func TestHeuristic_IsolatedBlipIsIgnored(t *testing.T) {
	d := NewHeuristic(DefaultConfig())
	levels := append(repeat(0, 10), 0.95)
	levels = append(levels, repeat(0, 10)...)

	for i, score := range feed(d, levels...) {
		assert.Equal(t, 0.0, score, "sample %d", i)
	}
}

func TestHeuristic_ShortBurstBelowVeryLoudStaysLocked(t *testing.T) {
	// The third burst sample is the first to pass the gate. With a window of
	// [0 0 0 L] its raw score is 0.5425*L + 0.3, which is 0.761 for L=0.85.
	d := NewHeuristic(DefaultConfig())
	levels := append(repeat(0, 10), repeat(0.85, 3)...)
	levels = append(levels, repeat(0, 10)...)

	scores := feed(d, levels...)
	assert.InDelta(t, LockedCap, scores[12], 1e-9, "capped at the burst peak")
	for i, score := range scores {
		assert.LessOrEqual(t, score, LockedCap, "sample %d", i)
	}
}

func TestHeuristic_ShortBurstAboveVeryLoudUnlocks(t *testing.T) {
	// Raw score for L=0.95 is 0.815, above VeryLoudThreshold.
	d := NewHeuristic(DefaultConfig())
	levels := append(repeat(0, 10), repeat(0.95, 3)...)
	levels = append(levels, repeat(0, 10)...)

	scores := feed(d, levels...)
	assert.InDelta(t, 0.85*0.815375, scores[12], 1e-6)
	assert.Greater(t, scores[12], LockedCap)
	for i := 13; i < len(scores); i++ {
		assert.LessOrEqual(t, scores[i], LockedCap, "quiet again, locked again (sample %d)", i)
	}
}

func TestHeuristic_WindowNeverExceedsCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 3
	d := NewHeuristic(cfg)

	for i := 0; i < 20; i++ {
		d.ProcessLevel(0.5)
		assert.LessOrEqual(t, d.window.len(), 3)
	}
}

func TestHeuristic_NoiseFloorRescalesGatedLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseFloor = 0.5
	d := NewHeuristic(cfg)

	feed(d, 0.75, 0.75, 0.75)
	vals := d.window.values()
	require.Len(t, vals, 3)
	assert.Equal(t, []float64{0, 0}, vals[:2])
	assert.InDelta(t, 0.5, vals[2], 1e-9)

	// At or below the floor breaks the streak.
	d.ProcessLevel(0.5)
	assert.Equal(t, 0, d.streak)
}

func TestHeuristic_SanitizesConfig(t *testing.T) {
	d := NewHeuristic(Config{WindowSize: 0, SmoothingAlpha: 3, NoiseFloor: 1, EnergyWeight: 0.7, VariabilityWeight: 0.3})

	assert.Equal(t, defaultWindowSize, d.cfg.WindowSize)
	assert.Equal(t, 1.0, d.cfg.SmoothingAlpha)
	assert.Equal(t, 0.0, d.cfg.NoiseFloor)
	assert.NotPanics(t, func() { feed(d, repeat(1, 10)...) })
}

func TestHeuristic_IndependentInstances(t *testing.T) {
	a := NewHeuristic(DefaultConfig())
	b := NewHeuristic(DefaultConfig())

	feed(a, repeat(0.9, 30)...)
	assert.Equal(t, 0.0, b.ProcessLevel(0.9))
}
