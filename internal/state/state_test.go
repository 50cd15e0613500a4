package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dooshek/laughmeter/internal/types"
)

func TestInitReplacesConfig(t *testing.T) {
	Init(&types.Config{})
	assert.Equal(t, types.DetectorHeuristic, Get().GetDetectorKind())
	assert.Equal(t, types.DefaultSessionDurationMs, Get().GetSessionConfig().DurationMs)

	Init(&types.Config{
		Detector: types.DetectorConfig{Kind: types.DetectorFollower},
		Session:  types.SessionConfig{DurationMs: 3000},
	})
	assert.Equal(t, types.DetectorFollower, Get().GetDetectorKind())
	assert.Equal(t, 3000, Get().GetSessionConfig().DurationMs)
}
