package keyboard

import (
	"context"
	"testing"
	"time"

	"github.com/MarinX/keylogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dooshek/laughmeter/internal/types"
)

type mockPresser struct {
	mock.Mock
}

func (m *mockPresser) Press(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func press(code uint16) keylogger.InputEvent {
	return keylogger.InputEvent{Type: keylogger.EvKey, Code: code, Value: 1}
}

func release(code uint16) keylogger.InputEvent {
	return keylogger.InputEvent{Type: keylogger.EvKey, Code: code, Value: 0}
}

func newTestMonitor(t *testing.T, binding types.KeyBinding) (*Monitor, *mockPresser, *time.Time) {
	t.Helper()
	p := &mockPresser{}
	m, err := NewMonitor(binding, p)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, p, &now
}

func TestNewMonitor_UnknownKey(t *testing.T) {
	_, err := NewMonitor(types.KeyBinding{Key: "hyper"}, &mockPresser{})
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestMonitor_PressesOnMatchingCombo(t *testing.T) {
	m, p, _ := newTestMonitor(t, types.KeyBinding{Key: "L", Ctrl: true, Shift: true})
	ctx := context.Background()
	p.On("Press", ctx).Return(nil).Once()

	m.handleEvent(ctx, press(KeyCodes["l"]))
	p.AssertNotCalled(t, "Press", ctx)

	m.handleEvent(ctx, press(LeftControl))
	m.handleEvent(ctx, press(RightShift))
	m.handleEvent(ctx, press(KeyCodes["l"]))
	m.handleEvent(ctx, release(KeyCodes["l"]))

	p.AssertExpectations(t)
}

func TestMonitor_ExtraModifierDoesNotMatch(t *testing.T) {
	m, p, _ := newTestMonitor(t, types.KeyBinding{Key: "l", Ctrl: true})
	ctx := context.Background()

	m.handleEvent(ctx, press(LeftControl))
	m.handleEvent(ctx, press(LeftAlt))
	m.handleEvent(ctx, press(KeyCodes["l"]))
	p.AssertNotCalled(t, "Press", ctx)

	p.On("Press", ctx).Return(nil).Once()
	m.handleEvent(ctx, release(LeftAlt))
	m.handleEvent(ctx, press(KeyCodes["l"]))
	p.AssertExpectations(t)
}

func TestMonitor_Debounce(t *testing.T) {
	m, p, now := newTestMonitor(t, types.KeyBinding{Key: "f9"})
	ctx := context.Background()
	p.On("Press", ctx).Return(nil).Twice()

	m.handleEvent(ctx, press(KeyCodes["f9"]))
	*now = now.Add(DebounceThreshold)
	m.handleEvent(ctx, press(KeyCodes["f9"]))
	*now = now.Add(time.Millisecond)
	m.handleEvent(ctx, press(KeyCodes["f9"]))

	p.AssertNumberOfCalls(t, "Press", 2)
}

func TestMonitor_IgnoresNonKeyEvents(t *testing.T) {
	m, p, _ := newTestMonitor(t, types.KeyBinding{Key: "space"})
	// EV_MSC
	m.handleEvent(context.Background(), keylogger.InputEvent{Type: keylogger.EvKey + 3, Code: KeyCodes["space"], Value: 1})
	p.AssertNotCalled(t, "Press", mock.Anything)
}

func TestKeyNamesInvertsKeyCodes(t *testing.T) {
	require.Len(t, KeyNames, len(KeyCodes))
	for name, code := range KeyCodes {
		assert.Equal(t, name, KeyNames[code])
	}
}
