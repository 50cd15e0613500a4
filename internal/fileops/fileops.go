package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/dooshek/laughmeter/internal/logger"
)

// ErrConfigNotFound is returned when a configuration file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrProcessAlreadyRunning is returned when another laughmeter daemon is running
var ErrProcessAlreadyRunning = errors.New("laughmeter process is already running")

// FileOps defines operations on the laughmeter config directory
type FileOps interface {
	// GetConfigDir returns the full path to the laughmeter config directory
	GetConfigDir() string

	// GetRecordingsDir returns the full path to the saved clips directory
	GetRecordingsDir() string

	SaveConfig(filename string, data []byte) error

	// LoadConfig returns ErrConfigNotFound when the file is missing
	LoadConfig(filename string) ([]byte, error)

	SaveRecording(filename string, data []byte) error

	// ListRecordings returns recording file names in lexical order
	ListRecordings() ([]string, error)

	DeleteRecording(filename string) error

	// EnsureDirectories creates necessary directories if they don't exist
	EnsureDirectories() error

	// SavePID saves the current process ID to a file
	SavePID() error

	// CheckPID returns ErrProcessAlreadyRunning if another instance is running
	CheckPID() error

	CleanupPID() error

	// HandleExit removes the PID file, logging failures
	HandleExit()
}

// DefaultFileOps implements FileOps on the local filesystem
type DefaultFileOps struct {
	configDir string
}

// NewDefaultFileOps uses ~/.config/laughmeter
func NewDefaultFileOps() (*DefaultFileOps, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewFileOps(filepath.Join(homeDir, ".config", "laughmeter")), nil
}

// NewFileOps roots all files at configDir.
func NewFileOps(configDir string) *DefaultFileOps {
	return &DefaultFileOps{configDir: configDir}
}

func (f *DefaultFileOps) GetConfigDir() string {
	return f.configDir
}

func (f *DefaultFileOps) GetRecordingsDir() string {
	return filepath.Join(f.configDir, "recordings")
}

func (f *DefaultFileOps) SaveConfig(filename string, data []byte) error {
	if err := os.MkdirAll(f.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(filepath.Join(f.configDir, filename), data, 0o644)
}

func (f *DefaultFileOps) LoadConfig(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.configDir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	return data, err
}

func (f *DefaultFileOps) SaveRecording(filename string, data []byte) error {
	if err := os.MkdirAll(f.GetRecordingsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return os.WriteFile(filepath.Join(f.GetRecordingsDir(), filepath.Base(filename)), data, 0o644)
}

func (f *DefaultFileOps) ListRecordings() ([]string, error) {
	files, err := os.ReadDir(f.GetRecordingsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var recordings []string
	for _, file := range files {
		if !file.IsDir() {
			recordings = append(recordings, file.Name())
		}
	}
	sort.Strings(recordings)
	return recordings, nil
}

func (f *DefaultFileOps) DeleteRecording(filename string) error {
	return os.Remove(filepath.Join(f.GetRecordingsDir(), filepath.Base(filename)))
}

func (f *DefaultFileOps) EnsureDirectories() error {
	for _, dir := range []string{f.configDir, f.GetRecordingsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (f *DefaultFileOps) getPIDFilePath() string {
	return filepath.Join(f.configDir, "laughmeter.pid")
}

func (f *DefaultFileOps) SavePID() error {
	return os.WriteFile(f.getPIDFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (f *DefaultFileOps) CheckPID() error {
	data, err := os.ReadFile(f.getPIDFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid == os.Getpid() {
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	// Signal 0 probes for existence without delivering anything.
	if err := process.Signal(syscall.Signal(0)); err == nil {
		return ErrProcessAlreadyRunning
	}

	logger.Debug("Found stale PID file, will be overwritten")
	return nil
}

func (f *DefaultFileOps) CleanupPID() error {
	return os.Remove(f.getPIDFilePath())
}

func (f *DefaultFileOps) HandleExit() {
	if err := f.CleanupPID(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("Failed to cleanup PID file on exit", err)
	}
}
