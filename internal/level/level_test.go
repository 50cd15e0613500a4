package level

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func db(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"missing reading", nil, 0},
		{"floor", db(-30), 0},
		{"full scale", db(0), 1},
		{"below floor is clamped", db(-45), 0},
		{"above full scale is clamped", db(6), 1},
		{"midpoint", db(-15), 0.5},
		{"nan", db(math.NaN()), 0},
		{"negative infinity", db(math.Inf(-1)), 0},
		{"positive infinity", db(math.Inf(1)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.in), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.1))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.3, Clamp01(0.3))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}
