package state

import (
	"sync"

	"github.com/dooshek/laughmeter/internal/types"
)

var (
	mu       sync.RWMutex
	instance *AppState
)

type AppState struct {
	Config *types.Config
}

// Init installs cfg as the process-wide configuration. Later calls replace
// it, which the wizard relies on after saving a new key binding.
func Init(cfg *types.Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = &AppState{Config: cfg}
}

func Get() *AppState {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("AppState not initialized")
	}
	return instance
}

func (s *AppState) GetDetectorKind() types.DetectorKind {
	return s.Config.GetDetectorConfig().Kind
}

func (s *AppState) GetSessionConfig() types.SessionConfig {
	return s.Config.GetSessionConfig()
}
