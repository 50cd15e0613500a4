package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dooshek/laughmeter/internal/logger"
)

// SessionRecord describes one completed session.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	Score     float64   `json:"score"`
	Seconds   float64   `json:"seconds"`
	At        time.Time `json:"at"`
}

// Stats holds all session statistics
type Stats struct {
	SessionsCompleted int            `json:"sessions_completed"`
	TotalSeconds      float64        `json:"total_seconds"`
	Best              *SessionRecord `json:"best,omitempty"`
	Last              *SessionRecord `json:"last,omitempty"`
}

// StatsManager manages session statistics persistence
type StatsManager struct {
	stats    Stats
	filePath string
	mu       sync.Mutex
}

// NewStatsManager creates a stats manager backed by ~/.config/laughmeter/stats.json
func NewStatsManager() (*StatsManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStatsManagerAt(filepath.Join(homeDir, ".config", "laughmeter", "stats.json")), nil
}

// NewStatsManagerAt loads existing data from filePath, if any
func NewStatsManagerAt(filePath string) *StatsManager {
	sm := &StatsManager{filePath: filePath}
	if err := sm.load(); err != nil {
		logger.Debugf("Could not load stats (will start fresh): %v", err)
	}
	return sm
}

// AddSession records a completed session and persists immediately
func (sm *StatsManager) AddSession(rec SessionRecord) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats.SessionsCompleted++
	sm.stats.TotalSeconds += rec.Seconds
	last := rec
	sm.stats.Last = &last
	if sm.stats.Best == nil || rec.Score > sm.stats.Best.Score {
		best := rec
		sm.stats.Best = &best
	}

	if err := sm.save(); err != nil {
		logger.Error("Failed to save stats after adding session", err)
	}
}

// GetStats returns a deep copy of current statistics
func (sm *StatsManager) GetStats() Stats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := sm.stats
	if sm.stats.Best != nil {
		best := *sm.stats.Best
		out.Best = &best
	}
	if sm.stats.Last != nil {
		last := *sm.stats.Last
		out.Last = &last
	}
	return out
}

// GetStatsJSON returns statistics as a JSON string (for D-Bus and HTTP)
func (sm *StatsManager) GetStatsJSON() (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := json.Marshal(sm.stats)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats to JSON: %w", err)
	}
	return string(data), nil
}

// Reset clears all statistics and persists empty state
func (sm *StatsManager) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats = Stats{}
	if err := sm.save(); err != nil {
		return fmt.Errorf("failed to save reset stats: %w", err)
	}
	return nil
}

func (sm *StatsManager) load() error {
	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("Stats file not found, starting fresh: %s", sm.filePath)
			return nil
		}
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	if err := json.Unmarshal(data, &sm.stats); err != nil {
		sm.stats = Stats{}
		return fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	logger.Debugf("Loaded stats from %s", sm.filePath)
	return nil
}

func (sm *StatsManager) save() error {
	if err := os.MkdirAll(filepath.Dir(sm.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a file.
	tempFile := sm.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}
	if err := os.Rename(tempFile, sm.filePath); err != nil {
		return fmt.Errorf("failed to rename temp stats file: %w", err)
	}

	logger.Debugf("Saved stats to %s", sm.filePath)
	return nil
}
