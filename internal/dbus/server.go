package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/session"
)

const (
	dbusServiceName = "com.dooshek.laughmeter"
	dbusObjectPath  = "/com/dooshek/laughmeter/Meter"
	dbusInterface   = "com.dooshek.laughmeter.Meter"
)

var ErrNameTaken = errors.New("d-bus name already taken")

// Controller is the part of the session controller exposed over D-Bus.
type Controller interface {
	Press(ctx context.Context) error
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// StatsSource provides the persisted session statistics as JSON.
type StatsSource interface {
	GetStatsJSON() (string, error)
}

type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Server exposes the laugh meter on the session bus so desktop extensions
// can start sessions and render the meter.
type Server struct {
	conn       *dbus.Conn
	emitter    emitter
	controller Controller
	stats      StatsSource
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewServer(controller Controller, stats StatsSource) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		controller: controller,
		stats:      stats,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start connects to the session bus and exports the meter object.
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(dbusServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return ErrNameTaken
	}

	if err := conn.Export(s, dbusObjectPath, dbusInterface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: dbusObjectPath,
		Interfaces: []introspect.Interface{{
			Name: dbusInterface,
			Methods: []introspect.Method{
				{Name: "Tap"},
				{
					Name: "GetStatus",
					Args: []introspect.Arg{
						{Name: "state", Type: "s", Direction: "out"},
						{Name: "meter", Type: "d", Direction: "out"},
						{Name: "permission", Type: "s", Direction: "out"},
					},
				},
				{
					Name: "GetStats",
					Args: []introspect.Arg{
						{Name: "stats_json", Type: "s", Direction: "out"},
					},
				},
			},
			Signals: []introspect.Signal{
				{
					Name: "StateChanged",
					Args: []introspect.Arg{
						{Name: "state", Type: "s"},
						{Name: "permission", Type: "s"},
					},
				},
				{
					Name: "MeterChanged",
					Args: []introspect.Arg{
						{Name: "meter", Type: "d"},
					},
				},
			},
		}},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), dbusObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	s.conn = conn
	s.emitter = conn
	logger.Infof("D-Bus service started: %s", dbusServiceName)
	return nil
}

// Run starts the service and forwards controller snapshots as signals until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	snapshots, unsubscribe := s.controller.Subscribe()
	defer unsubscribe()

	s.forward(ctx, snapshots)
	return nil
}

// Stop stops the D-Bus server
func (s *Server) Stop() {
	s.cancel()
	if s.conn != nil {
		s.conn.Close()
	}
	logger.Info("D-Bus service stopped")
}

// forward emits StateChanged when state or permission change and
// MeterChanged when the meter moves.
func (s *Server) forward(ctx context.Context, snapshots <-chan session.Snapshot) {
	var (
		last  session.Snapshot
		first = true
	)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if first || snap.State != last.State || snap.Permission != last.Permission {
				s.emitSignal("StateChanged", string(snap.State), string(snap.Permission))
			}
			if first || snap.Meter != last.Meter {
				s.emitSignal("MeterChanged", snap.Meter)
			}
			last, first = snap, false
		}
	}
}

// Tap starts a new session (D-Bus method). It returns immediately; progress
// is reported through signals.
func (s *Server) Tap() *dbus.Error {
	logger.Debug("D-Bus: Tap called")
	go func() {
		if err := s.controller.Press(s.ctx); err != nil && !errors.Is(err, session.ErrClosed) {
			logger.Error("D-Bus: session did not start", err)
		}
	}()
	return nil
}

// GetStatus returns the current state, meter and permission (D-Bus method)
func (s *Server) GetStatus() (string, float64, string, *dbus.Error) {
	snap := s.controller.Snapshot()
	return string(snap.State), snap.Meter, string(snap.Permission), nil
}

// GetStats returns persisted statistics as JSON (D-Bus method)
func (s *Server) GetStats() (string, *dbus.Error) {
	if s.stats == nil {
		return "{}", nil
	}
	data, err := s.stats.GetStatsJSON()
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return data, nil
}

func (s *Server) emitSignal(name string, args ...interface{}) {
	if s.emitter == nil {
		logger.Warnf("D-Bus: Cannot emit signal %s - no connection", name)
		return
	}

	if err := s.emitter.Emit(dbus.ObjectPath(dbusObjectPath), dbusInterface+"."+name, args...); err != nil {
		logger.Errorf("D-Bus: Failed to emit signal %s", err, name)
	}
}

