package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dooshek/laughmeter/internal/fileops"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/types"
)

const (
	configFilename = "laughmeter.yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration written by the wizard before the user
// picks a shortcut.
func Default() *types.Config {
	return &types.Config{
		Session: types.SessionConfig{
			DurationMs: types.DefaultSessionDurationMs,
			IntervalMs: types.DefaultIntervalMs,
		},
		Detector: types.DetectorConfig{
			Kind:              types.DetectorHeuristic,
			WindowSize:        4,
			SmoothingAlpha:    0.85,
			EnergyWeight:      0.7,
			VariabilityWeight: 0.3,
		},
		Capture: types.CaptureConfig{
			SampleRate: types.DefaultSampleRate,
		},
		Server: types.ServerConfig{
			Enabled: true,
			Listen:  types.DefaultListen,
		},
		DBus:          types.DBusConfig{Enabled: true},
		Notifications: types.NotificationsConfig{Enabled: true},
	}
}

// LoadConfig reads ~/.config/laughmeter/laughmeter.yaml. It returns nil, nil
// when the file does not exist yet.
func LoadConfig() (*types.Config, error) {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file operations: %w", err)
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return Load(fileOps)
}

func Load(files fileops.FileOps) (*types.Config, error) {
	data, err := files.LoadConfig(configFilename)
	if err != nil {
		if errors.Is(err, fileops.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config types.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func SaveConfig(config *types.Config) error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return Save(fileOps, config)
}

// Save merges config into the existing file, if any, and writes it back.
func Save(files fileops.FileOps, config *types.Config) error {
	existingConfig, err := Load(files)
	if err != nil {
		logger.Warnf("Failed to load existing config: %v", err)
	} else if existingConfig != nil {
		mergeConfigs(existingConfig, config)
		config = existingConfig
	}

	if err := Validate(config); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := files.SaveConfig(configFilename, data); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks struct tags and returns ErrInvalidConfig listing every
// failing field.
func Validate(config *types.Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(e), formatValidationMessage(e)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// fieldPath turns "Config.Detector.WindowSize" into "Detector.WindowSize".
func fieldPath(e validator.FieldError) string {
	ns := e.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname_port":
		return "must be a host:port address"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// mergeConfigs merges sourceConfig into targetConfig. Zero values in
// sourceConfig leave the target untouched.
func mergeConfigs(targetConfig, sourceConfig *types.Config) {
	if sourceConfig.RecordKey.Key != "" {
		targetConfig.RecordKey = sourceConfig.RecordKey
	}

	if sourceConfig.Session.DurationMs != 0 {
		targetConfig.Session.DurationMs = sourceConfig.Session.DurationMs
	}
	if sourceConfig.Session.IntervalMs != 0 {
		targetConfig.Session.IntervalMs = sourceConfig.Session.IntervalMs
	}

	if sourceConfig.Detector.Kind != "" {
		targetConfig.Detector.Kind = sourceConfig.Detector.Kind
	}
	if sourceConfig.Detector.WindowSize != 0 {
		targetConfig.Detector.WindowSize = sourceConfig.Detector.WindowSize
	}
	if sourceConfig.Detector.SmoothingAlpha != 0 {
		targetConfig.Detector.SmoothingAlpha = sourceConfig.Detector.SmoothingAlpha
	}
	if sourceConfig.Detector.EnergyWeight != 0 || sourceConfig.Detector.VariabilityWeight != 0 {
		targetConfig.Detector.EnergyWeight = sourceConfig.Detector.EnergyWeight
		targetConfig.Detector.VariabilityWeight = sourceConfig.Detector.VariabilityWeight
	}
	if sourceConfig.Detector.NoiseFloor != 0 {
		targetConfig.Detector.NoiseFloor = sourceConfig.Detector.NoiseFloor
	}

	if sourceConfig.Capture.Device != "" {
		targetConfig.Capture.Device = sourceConfig.Capture.Device
	}
	if sourceConfig.Capture.SampleRate != 0 {
		targetConfig.Capture.SampleRate = sourceConfig.Capture.SampleRate
	}
	if sourceConfig.Server.Listen != "" {
		targetConfig.Server.Listen = sourceConfig.Server.Listen
	}
	// Booleans cannot tell "unset" from false, so the existing file wins.
}
