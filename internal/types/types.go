package types

// KeyCombo interface for types that can be printed as a key combination
type KeyCombo interface {
	HasCtrl() bool
	HasShift() bool
	HasAlt() bool
	HasSuper() bool
	GetKey() string
}

type KeyBinding struct {
	Key   string `yaml:"key" validate:"required"` // The actual key (e.g., "a", "b", "1", etc.)
	Ctrl  bool   `yaml:"ctrl"`                    // Control key modifier
	Shift bool   `yaml:"shift"`                   // Shift key modifier
	Alt   bool   `yaml:"alt"`                     // Alt key modifier
	Super bool   `yaml:"super"`                   // Super (Windows/Command) key modifier
}

// Implement KeyCombo for KeyBinding
func (kb KeyBinding) HasCtrl() bool  { return kb.Ctrl }
func (kb KeyBinding) HasShift() bool { return kb.Shift }
func (kb KeyBinding) HasAlt() bool   { return kb.Alt }
func (kb KeyBinding) HasSuper() bool { return kb.Super }
func (kb KeyBinding) GetKey() string { return kb.Key }

// RecordingState is the lifecycle of a recording session.
//   - idle: no session, the meter shows the previous value until the next press
//   - recording: a session is in progress and the meter fills
//   - completed: the session stopped on its own, the final fill stays until the next press
type RecordingState string

const (
	StateIdle      RecordingState = "idle"
	StateRecording RecordingState = "recording"
	StateCompleted RecordingState = "completed"
)

// PermissionStatus is the microphone authorization reported by the capture backend.
type PermissionStatus string

const (
	PermissionUndetermined PermissionStatus = "undetermined"
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
)

type DetectorKind string

const (
	DetectorHeuristic DetectorKind = "heuristic"
	DetectorFollower  DetectorKind = "follower"
)

// SessionConfig controls the length of a recording session and how often the
// microphone is metered.
type SessionConfig struct {
	DurationMs int `yaml:"duration_ms" validate:"omitempty,min=500,max=60000"`
	IntervalMs int `yaml:"interval_ms" validate:"omitempty,min=10,max=1000"`
}

// DetectorConfig holds the laughter detector tuning. Zero values fall back to
// the defaults, except NoiseFloor whose default is zero anyway.
type DetectorConfig struct {
	Kind              DetectorKind `yaml:"kind" validate:"omitempty,oneof=heuristic follower"`
	WindowSize        int          `yaml:"window_size" validate:"omitempty,min=1,max=256"`
	SmoothingAlpha    float64      `yaml:"smoothing_alpha" validate:"omitempty,gt=0,lte=1"`
	EnergyWeight      float64      `yaml:"energy_weight" validate:"omitempty,gte=0,lte=1"`
	VariabilityWeight float64      `yaml:"variability_weight" validate:"omitempty,gte=0,lte=1"`
	NoiseFloor        float64      `yaml:"noise_floor" validate:"gte=0,lt=1"`
}

// CaptureConfig selects the input device and format.
type CaptureConfig struct {
	Device     string `yaml:"device"` // device name substring, empty = system default
	SampleRate int    `yaml:"sample_rate" validate:"omitempty,oneof=8000 16000 22050 24000 44100 48000"`
	SaveClips  bool   `yaml:"save_clips"`
}

// ServerConfig controls the HTTP/WebSocket meter feed.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type DBusConfig struct {
	Enabled bool `yaml:"enabled"`
}

type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	RecordKey     KeyBinding          `yaml:"record_key"`
	Session       SessionConfig       `yaml:"session"`
	Detector      DetectorConfig      `yaml:"detector"`
	Capture       CaptureConfig       `yaml:"capture"`
	Server        ServerConfig        `yaml:"server"`
	DBus          DBusConfig          `yaml:"dbus"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

const (
	DefaultSessionDurationMs = 5000
	DefaultIntervalMs        = 50
	DefaultSampleRate        = 16000
	DefaultListen            = "127.0.0.1:8787"
)

// GetSessionConfig returns session configuration with defaults
func (c *Config) GetSessionConfig() SessionConfig {
	config := c.Session
	if config.DurationMs == 0 {
		config.DurationMs = DefaultSessionDurationMs
	}
	if config.IntervalMs == 0 {
		config.IntervalMs = DefaultIntervalMs
	}
	return config
}

// GetDetectorConfig returns detector configuration with defaults
func (c *Config) GetDetectorConfig() DetectorConfig {
	config := c.Detector
	if config.Kind == "" {
		config.Kind = DetectorHeuristic
	}
	if config.WindowSize == 0 {
		config.WindowSize = 4
	}
	if config.SmoothingAlpha == 0 {
		config.SmoothingAlpha = 0.85
	}
	// Both weights unset means defaults; a single explicit zero weight is honoured.
	if config.EnergyWeight == 0 && config.VariabilityWeight == 0 {
		config.EnergyWeight = 0.7
		config.VariabilityWeight = 0.3
	}
	return config
}

// GetCaptureConfig returns capture configuration with defaults
func (c *Config) GetCaptureConfig() CaptureConfig {
	config := c.Capture
	if config.SampleRate == 0 {
		config.SampleRate = DefaultSampleRate
	}
	return config
}

// GetServerConfig returns meter server configuration with defaults
func (c *Config) GetServerConfig() ServerConfig {
	config := c.Server
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	return config
}
