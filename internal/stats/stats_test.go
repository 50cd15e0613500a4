package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSession_TracksBestAndLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	sm := NewStatsManagerAt(path)

	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	sm.AddSession(SessionRecord{SessionID: "a", Score: 0.4, Seconds: 5, At: at})
	sm.AddSession(SessionRecord{SessionID: "b", Score: 0.9, Seconds: 5, At: at})
	sm.AddSession(SessionRecord{SessionID: "c", Score: 0.6, Seconds: 2.5, At: at})

	s := sm.GetStats()
	assert.Equal(t, 3, s.SessionsCompleted)
	assert.InDelta(t, 12.5, s.TotalSeconds, 1e-9)
	require.NotNil(t, s.Best)
	assert.Equal(t, "b", s.Best.SessionID)
	require.NotNil(t, s.Last)
	assert.Equal(t, "c", s.Last.SessionID)

	// Reloading from disk restores everything.
	reloaded := NewStatsManagerAt(path).GetStats()
	assert.Equal(t, s.SessionsCompleted, reloaded.SessionsCompleted)
	assert.Equal(t, "b", reloaded.Best.SessionID)
	assert.True(t, at.Equal(reloaded.Last.At))
}

func TestGetStats_ReturnsCopy(t *testing.T) {
	sm := NewStatsManagerAt(filepath.Join(t.TempDir(), "stats.json"))
	sm.AddSession(SessionRecord{SessionID: "a", Score: 0.5})

	s := sm.GetStats()
	s.Best.Score = 0

	assert.Equal(t, 0.5, sm.GetStats().Best.Score)
}

func TestGetStatsJSON(t *testing.T) {
	sm := NewStatsManagerAt(filepath.Join(t.TempDir(), "stats.json"))
	sm.AddSession(SessionRecord{SessionID: "a", Score: 0.7, Seconds: 5})

	raw, err := sm.GetStatsJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.EqualValues(t, 1, decoded["sessions_completed"])
	assert.Contains(t, decoded, "best")
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	sm := NewStatsManagerAt(path)
	sm.AddSession(SessionRecord{SessionID: "a", Score: 0.7})

	require.NoError(t, sm.Reset())
	assert.Zero(t, sm.GetStats().SessionsCompleted)
	assert.Nil(t, NewStatsManagerAt(path).GetStats().Best)
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	sm := NewStatsManagerAt(path)
	assert.Zero(t, sm.GetStats().SessionsCompleted)
}
