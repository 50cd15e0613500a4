package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/types"
	"github.com/gen2brain/malgo"
)

// MicCapturer records from a miniaudio capture device.
type MicCapturer struct {
	sampleRate int
	device     string // case-insensitive name substring, empty = default

	mu         sync.Mutex
	permission types.PermissionStatus
}

// NewMicCapturer creates a capturer for the device whose name contains
// device, or the system default when device is empty.
func NewMicCapturer(sampleRate int, device string) *MicCapturer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &MicCapturer{
		sampleRate: sampleRate,
		device:     device,
		permission: types.PermissionUndetermined,
	}
}

func (m *MicCapturer) Permission() types.PermissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permission
}

// RequestPermission probes the audio backend. Desktop platforms have no
// explicit prompt, so access is granted when a capture device can be listed.
func (m *MicCapturer) RequestPermission(ctx context.Context) (types.PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return m.Permission(), err
	}

	status := types.PermissionGranted
	_, err := m.findDevice()
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			status = types.PermissionDenied
			err = nil
		}
	}

	m.mu.Lock()
	m.permission = status
	m.mu.Unlock()
	return status, err
}

// findDevice returns the configured device ID, nil for the default device.
func (m *MicCapturer) findDevice() (*malgo.DeviceID, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to initialize audio context: %w", err))
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to list capture devices: %w", err))
	}
	if len(infos) == 0 {
		return nil, ErrNoCaptureDevice
	}
	if m.device == "" {
		return nil, nil
	}
	want := strings.ToLower(m.device)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			id := info.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoCaptureDevice, m.device)
}

func classifyErr(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

// Start opens the device and begins metering.
func (m *MicCapturer) Start(ctx context.Context, opts CaptureOptions) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deviceID, err := m.findDevice()
	if err != nil {
		return nil, err
	}

	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if deviceID != nil {
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	h := &micHandle{actx: actx}
	mtr := newMeter(m.sampleRate, opts.interval(), opts.OnSample)

	device, err := malgo.InitDevice(actx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, inputBuffer []byte, _ uint32) {
			if h.stopped.Load() {
				return
			}
			if opts.OnPCM != nil {
				frame := make([]byte, len(inputBuffer))
				copy(frame, inputBuffer)
				opts.OnPCM(frame)
			}
			mtr.write(inputBuffer)
		},
		Stop: func() {
			// Fired for our own Stop as well; only report device-side stops.
			if h.stopped.Load() {
				return
			}
			logger.Warn("Capture device stopped unexpectedly")
			if opts.OnStop != nil {
				go opts.OnStop()
			}
		},
	})
	if err != nil {
		h.release()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	h.device = device

	if err := device.Start(); err != nil {
		h.release()
		return nil, classifyErr(fmt.Errorf("failed to start capture device: %w", err))
	}

	logger.Debugf("Microphone capture started (%d Hz, tick %s)", m.sampleRate, opts.interval())
	return h, nil
}

type micHandle struct {
	actx    *malgo.AllocatedContext
	device  *malgo.Device
	stopped atomic.Bool
	once    sync.Once
}

// Stop must not be called from inside a device callback.
func (h *micHandle) Stop() error {
	h.stopped.Store(true)
	h.once.Do(h.release)
	return nil
}

func (h *micHandle) release() {
	h.stopped.Store(true)
	if h.device != nil {
		h.device.Uninit()
	}
	if h.actx != nil {
		_ = h.actx.Uninit()
		h.actx.Free()
	}
}
