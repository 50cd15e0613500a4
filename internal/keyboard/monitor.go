package keyboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarinX/keylogger"

	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/types"
)

// DebounceThreshold drops repeats of the hotkey that arrive faster than this.
const DebounceThreshold = 500 * time.Millisecond

var (
	ErrNoKeyboard = errors.New("no keyboard devices found")
	ErrUnknownKey = errors.New("unsupported key")
)

// ModifierState tracks the state of modifier keys (Ctrl, Shift, Alt, Super)
type ModifierState struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
}

func (m *ModifierState) set(mod string, down bool) {
	switch mod {
	case "ctrl":
		m.Ctrl = down
	case "shift":
		m.Shift = down
	case "alt":
		m.Alt = down
	case "super":
		m.Super = down
	}
}

// Presser is what the hotkey triggers.
type Presser interface {
	Press(ctx context.Context) error
}

// Monitor watches an evdev keyboard for the configured hotkey and presses the
// session controller when it is hit. It works under both X11 and Wayland
// since it reads the input device directly.
type Monitor struct {
	presser   Presser
	keyConfig types.KeyBinding
	target    uint16
	debounce  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	modifiers ModifierState
	lastPress time.Time
	keyboard  *keylogger.KeyLogger
}

func NewMonitor(keyConfig types.KeyBinding, presser Presser) (*Monitor, error) {
	code, ok := KeyCodes[strings.ToLower(keyConfig.Key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, keyConfig.Key)
	}
	return &Monitor{
		presser:   presser,
		keyConfig: keyConfig,
		target:    code,
		debounce:  DebounceThreshold,
		now:       time.Now,
	}, nil
}

// Start blocks reading keyboard events until ctx is cancelled or the device
// goes away.
func (m *Monitor) Start(ctx context.Context) error {
	kbd, err := OpenKeyboard()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.keyboard = kbd
	m.mu.Unlock()
	defer m.Stop()

	logger.Debugf("Listening for shortcut: Ctrl=%v, Shift=%v, Alt=%v, Super=%v, Key=%s",
		m.keyConfig.Ctrl, m.keyConfig.Shift, m.keyConfig.Alt, m.keyConfig.Super, m.keyConfig.Key)

	events := kbd.Read()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			m.handleEvent(ctx, e)
		}
	}
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyboard != nil {
		_ = m.keyboard.Close()
		m.keyboard = nil
	}
}

func (m *Monitor) handleEvent(ctx context.Context, e keylogger.InputEvent) {
	if e.Type != keylogger.EvKey {
		return
	}

	m.mu.Lock()
	if mod, ok := modifierOf(e.Code); ok {
		if e.KeyPress() {
			m.modifiers.set(mod, true)
		} else if e.KeyRelease() {
			m.modifiers.set(mod, false)
		}
		m.mu.Unlock()
		return
	}
	if !e.KeyPress() || e.Code != m.target || !m.checkModifiers() {
		m.mu.Unlock()
		return
	}

	now := m.now()
	if !m.lastPress.IsZero() && now.Sub(m.lastPress) <= m.debounce {
		logger.Debugf("Ignoring shortcut - too soon after previous (%d ms < %d ms threshold)",
			now.Sub(m.lastPress).Milliseconds(), m.debounce.Milliseconds())
		m.mu.Unlock()
		return
	}
	m.lastPress = now
	m.mu.Unlock()

	logger.Debug("Detected key combination, starting session")
	if err := m.presser.Press(ctx); err != nil {
		logger.Error("Session did not start", err)
	}
}

// checkModifiers verifies if current modifier state matches the configuration
func (m *Monitor) checkModifiers() bool {
	return m.modifiers.Ctrl == m.keyConfig.Ctrl &&
		m.modifiers.Shift == m.keyConfig.Shift &&
		m.modifiers.Alt == m.keyConfig.Alt &&
		m.modifiers.Super == m.keyConfig.Super
}

// OpenKeyboard opens the first keyboard input device.
func OpenKeyboard() (*keylogger.KeyLogger, error) {
	keyboards := keylogger.FindAllKeyboardDevices()
	if len(keyboards) == 0 {
		return nil, ErrNoKeyboard
	}

	kbd, err := keylogger.New(keyboards[0])
	if err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			fmt.Printf("Cannot access keyboard device.\n" +
				"Solution: \n" +
				"1. Add yourself to the input group: sudo usermod -aG input $USER \n" +
				"2. Log out and log back in (or restart your system) \n" +
				"3. Run the program again \n\n")
		}
		return nil, fmt.Errorf("error initializing keylogger: %w", err)
	}
	logger.Debugf("Using keyboard device: %s", keyboards[0])
	return kbd, nil
}
