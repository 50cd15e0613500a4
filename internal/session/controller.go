// Package session drives fixed-length recording sessions: it owns the
// capture handle, the stop timer and the detector lifecycle, and publishes
// the state/meter/permission triple to observers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dooshek/laughmeter/internal/audio"
	"github.com/dooshek/laughmeter/internal/detection"
	"github.com/dooshek/laughmeter/internal/level"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/notification"
	"github.com/dooshek/laughmeter/internal/observe"
	"github.com/dooshek/laughmeter/internal/types"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrCaptureStart     = errors.New("failed to start capture")
	ErrClosed           = errors.New("session controller closed")
)

// Snapshot is the observable state of the controller.
type Snapshot struct {
	SessionID  string                 `json:"session_id,omitempty"`
	Generation uint64                 `json:"generation"`
	State      types.RecordingState   `json:"state"`
	Meter      float64                `json:"meter"`
	Permission types.PermissionStatus `json:"permission"`
}

// Controller runs one recording session at a time. Every press supersedes
// the previous session; callbacks from superseded sessions are dropped by
// comparing their generation with the current one.
type Controller struct {
	capturer audio.Capturer
	detector detection.Detector
	duration time.Duration
	interval time.Duration
	clock    Clock
	notifier notification.Notifier
	metrics  *observe.Metrics
	recorder ClipRecorder
	hooks    []func(Result)
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	sessionID  string
	state      types.RecordingState
	meter      float64
	permission types.PermissionStatus
	startedAt  time.Time
	handle     audio.Handle
	timer      Timer
	pcm        []byte
	closed     bool
	subs       map[int]chan Snapshot
	nextSub    int
}

// teardown is what a session leaves behind once detached from the
// controller. It is finished outside the lock.
type teardown struct {
	handle       audio.Handle
	wasRecording bool
	elapsed      time.Duration
	score        float64
}

func New(capturer audio.Capturer, detector detection.Detector, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		capturer:   capturer,
		detector:   detector,
		duration:   DefaultDuration,
		interval:   DefaultInterval,
		clock:      realClock{},
		notifier:   notification.NewSilent(),
		metrics:    observe.Noop(),
		log:        logger.With("session"),
		ctx:        ctx,
		cancel:     cancel,
		state:      types.StateIdle,
		permission: capturer.Permission(),
		subs:       make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() types.RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Meter() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meter
}

func (c *Controller) Permission() types.PermissionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. A slow subscriber only ever sees the latest value.
// The channel is closed by the returned cancel func or by Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- c.snapshotLocked()
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Press starts a fresh session, cancelling whatever was in flight. The
// returned error is informational; the state machine has already moved to
// idle when it is non-nil.
func (c *Controller) Press(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.generation++
	prev := c.detachLocked()
	gen := c.generation
	c.sessionID = uuid.NewString()
	c.detector.Reset()
	c.meter = 0
	c.state = types.StateRecording
	c.startedAt = c.clock.Now()
	c.pcm = nil
	c.publishLocked()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.finish(prev, observe.OutcomeSuperseded)

	log := c.log.With().Str("session_id", sessionID).Uint64("generation", gen).Logger()
	log.Debug().Msg("Session started")
	c.metrics.SessionsStarted.Add(context.Background(), 1)
	c.metrics.ActiveSessions.Add(context.Background(), 1)
	if err := c.notifier.PlayStartBeep(); err != nil {
		log.Debug().Err(err).Msg("Start beep failed")
	}

	if err := c.ensurePermission(ctx); err != nil {
		if c.fail(gen, err) {
			return err
		}
		return nil
	}

	opts := audio.CaptureOptions{
		Duration: c.duration,
		Interval: c.interval,
		OnSample: func(r audio.Reading) { c.onSample(gen, r) },
		OnStop:   func() { c.complete(gen, "capture stopped") },
		OnError:  func(err error) { c.fail(gen, err) },
	}
	if c.recorder != nil {
		opts.OnPCM = func(b []byte) { c.onPCM(gen, b) }
	}

	handle, err := c.capturer.Start(c.ctx, opts)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCaptureStart, err)
		if c.fail(gen, err) {
			return err
		}
		return nil
	}

	c.mu.Lock()
	if gen != c.generation || c.state != types.StateRecording {
		// Superseded, closed or already finished while the device opened.
		c.mu.Unlock()
		c.stopHandle(handle)
		return nil
	}
	c.handle = handle
	c.timer = c.clock.AfterFunc(c.duration, func() { c.complete(gen, "timer") })
	c.mu.Unlock()

	return nil
}

// Close ends any in-flight session without a completion notice and closes
// all subscriber channels. Later presses return ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	td := c.detachLocked()
	if c.state == types.StateRecording {
		c.state = types.StateIdle
	}
	c.publishLocked()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	c.finish(td, observe.OutcomeClosed)
	return nil
}

func (c *Controller) ensurePermission(ctx context.Context) error {
	status := c.capturer.Permission()
	if status != types.PermissionGranted {
		var err error
		status, err = c.capturer.RequestPermission(ctx)
		if err != nil {
			c.setPermission(status)
			return fmt.Errorf("%w: %w", ErrCaptureStart, err)
		}
	}
	c.setPermission(status)
	if status != types.PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}

func (c *Controller) setPermission(status types.PermissionStatus) {
	if status == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.permission != status {
		c.permission = status
		c.publishLocked()
	}
}

func (c *Controller) onSample(gen uint64, r audio.Reading) {
	c.mu.Lock()
	if gen != c.generation || c.state != types.StateRecording {
		c.mu.Unlock()
		c.dropStale(gen, "sample")
		return
	}
	c.meter = c.detector.ProcessLevel(level.Normalize(r.Metering))
	c.publishLocked()
	c.mu.Unlock()

	c.metrics.SamplesProcessed.Add(context.Background(), 1)
}

func (c *Controller) onPCM(gen uint64, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation && c.state == types.StateRecording {
		c.pcm = append(c.pcm, b...)
	}
}

// complete ends the current session successfully.
func (c *Controller) complete(gen uint64, reason string) {
	c.mu.Lock()
	if gen != c.generation || c.state != types.StateRecording {
		c.mu.Unlock()
		c.dropStale(gen, "stop")
		return
	}
	td := c.detachLocked()
	c.state = types.StateCompleted
	res := Result{SessionID: c.sessionID, Score: c.meter, Duration: td.elapsed}
	pcm := c.pcm
	c.pcm = nil
	c.publishLocked()
	c.mu.Unlock()

	c.finish(td, observe.OutcomeCompleted)
	c.log.Info().
		Str("session_id", res.SessionID).
		Str("reason", reason).
		Float64("score", res.Score).
		Dur("duration", res.Duration).
		Msg("Session completed")

	if err := c.notifier.PlayStopBeep(); err != nil {
		c.log.Debug().Err(err).Msg("Stop beep failed")
	}
	if err := c.notifier.NotifySessionCompleted(res.Score); err != nil {
		c.log.Debug().Err(err).Msg("Completion notification failed")
	}
	if c.recorder != nil && len(pcm) > 0 {
		if err := c.recorder.SaveClip(res.SessionID, pcm); err != nil {
			c.log.Error().Err(err).Str("session_id", res.SessionID).Msg("Failed to save clip")
		}
	}
	for _, hook := range c.hooks {
		hook(res)
	}
}

// fail moves the current session to idle. It reports whether gen was still
// current.
func (c *Controller) fail(gen uint64, err error) bool {
	c.mu.Lock()
	if gen != c.generation || c.state != types.StateRecording {
		c.mu.Unlock()
		c.dropStale(gen, "error")
		return false
	}
	td := c.detachLocked()
	c.state = types.StateIdle
	sessionID := c.sessionID
	c.publishLocked()
	c.mu.Unlock()

	c.finish(td, observe.OutcomeFailed)
	c.log.Error().Err(err).Str("session_id", sessionID).Msg("Session failed")
	if nerr := c.notifier.NotifySessionFailed(err); nerr != nil {
		c.log.Debug().Err(nerr).Msg("Failure notification failed")
	}
	return true
}

// detachLocked cancels the stop timer and takes ownership of the capture
// handle. The handle must be stopped after c.mu is released: device
// teardown can wait on a callback that needs the lock.
func (c *Controller) detachLocked() teardown {
	td := teardown{
		handle:       c.handle,
		wasRecording: c.state == types.StateRecording,
		score:        c.meter,
	}
	if td.wasRecording {
		td.elapsed = c.clock.Now().Sub(c.startedAt)
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.handle = nil
	return td
}

func (c *Controller) finish(td teardown, outcome string) {
	c.stopHandle(td.handle)
	if !td.wasRecording {
		return
	}
	ctx := context.Background()
	c.metrics.ActiveSessions.Add(ctx, -1)
	c.metrics.RecordSessionEnded(ctx, outcome, td.score, td.elapsed.Seconds())
}

func (c *Controller) stopHandle(h audio.Handle) {
	if h == nil {
		return
	}
	if err := h.Stop(); err != nil {
		c.log.Debug().Err(err).Msg("Ignoring capture stop error")
	}
}

func (c *Controller) dropStale(gen uint64, kind string) {
	c.log.Debug().Uint64("generation", gen).Str("kind", kind).Msg("Dropping stale capture callback")
	c.metrics.RecordStale(context.Background(), kind)
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:  c.sessionID,
		Generation: c.generation,
		State:      c.state,
		Meter:      c.meter,
		Permission: c.permission,
	}
}

// publishLocked fans the current snapshot out without blocking. A full
// subscriber buffer has its stale value replaced.
func (c *Controller) publishLocked() {
	s := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
