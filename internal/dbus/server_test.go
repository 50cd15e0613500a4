package dbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dooshek/laughmeter/internal/session"
	"github.com/dooshek/laughmeter/internal/types"
)

type emitted struct {
	name string
	args []interface{}
}

type fakeEmitter struct {
	mu    sync.Mutex
	calls []emitted
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emitted{name: name, args: values})
	return nil
}

type mockController struct {
	mock.Mock
}

func (m *mockController) Press(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockController) Snapshot() session.Snapshot {
	return m.Called().Get(0).(session.Snapshot)
}
func (m *mockController) Subscribe() (<-chan session.Snapshot, func()) {
	args := m.Called()
	return args.Get(0).(<-chan session.Snapshot), args.Get(1).(func())
}

type stubStats struct {
	json string
	err  error
}

func (s stubStats) GetStatsJSON() (string, error) { return s.json, s.err }

func TestForward_EmitsOnlyChanges(t *testing.T) {
	em := &fakeEmitter{}
	s := NewServer(&mockController{}, nil)
	s.emitter = em

	ch := make(chan session.Snapshot, 5)
	ch <- session.Snapshot{State: types.StateIdle, Permission: types.PermissionGranted}
	ch <- session.Snapshot{State: types.StateRecording, Permission: types.PermissionGranted}
	ch <- session.Snapshot{State: types.StateRecording, Permission: types.PermissionGranted, Meter: 0.4}
	ch <- session.Snapshot{State: types.StateCompleted, Permission: types.PermissionGranted, Meter: 0.4}
	close(ch)

	s.forward(context.Background(), ch)

	prefix := dbusInterface + "."
	assert.Equal(t, []emitted{
		{prefix + "StateChanged", []interface{}{"idle", "granted"}},
		{prefix + "MeterChanged", []interface{}{0.0}},
		{prefix + "StateChanged", []interface{}{"recording", "granted"}},
		{prefix + "MeterChanged", []interface{}{0.4}},
		{prefix + "StateChanged", []interface{}{"completed", "granted"}},
	}, em.calls)
}

func TestForward_StopsOnCancel(t *testing.T) {
	s := NewServer(&mockController{}, nil)
	s.emitter = &fakeEmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.forward(ctx, make(chan session.Snapshot))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not return after cancel")
	}
}

func TestTap_PressesController(t *testing.T) {
	ctrl := &mockController{}
	pressed := make(chan struct{})
	ctrl.On("Press", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(pressed) }).Once()

	s := NewServer(ctrl, nil)
	require.Nil(t, s.Tap())

	select {
	case <-pressed:
	case <-time.After(2 * time.Second):
		t.Fatal("Tap did not press the controller")
	}
	ctrl.AssertExpectations(t)
}

func TestGetStatus(t *testing.T) {
	ctrl := &mockController{}
	ctrl.On("Snapshot").Return(session.Snapshot{
		State:      types.StateRecording,
		Meter:      0.25,
		Permission: types.PermissionGranted,
	})

	state, meter, permission, derr := NewServer(ctrl, nil).GetStatus()
	require.Nil(t, derr)
	assert.Equal(t, "recording", state)
	assert.Equal(t, 0.25, meter)
	assert.Equal(t, "granted", permission)
}

func TestGetStats(t *testing.T) {
	out, derr := NewServer(&mockController{}, nil).GetStats()
	require.Nil(t, derr)
	assert.Equal(t, "{}", out)

	out, derr = NewServer(&mockController{}, stubStats{json: `{"sessions_completed":2}`}).GetStats()
	require.Nil(t, derr)
	assert.JSONEq(t, `{"sessions_completed":2}`, out)

	_, derr = NewServer(&mockController{}, stubStats{err: errors.New("disk")}).GetStats()
	assert.NotNil(t, derr)
}
