package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantPCM returns n S16LE samples of value v.
func constantPCM(v int16, n int) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestMeteringDB(t *testing.T) {
	_, ok := MeteringDB(nil)
	assert.False(t, ok)
	_, ok = MeteringDB([]byte{1})
	assert.False(t, ok)

	db, ok := MeteringDB(constantPCM(0, 100))
	require.True(t, ok)
	assert.Equal(t, SilenceDB, db)

	db, ok = MeteringDB(constantPCM(-32768, 100))
	require.True(t, ok)
	assert.InDelta(t, 0.0, db, 1e-9)

	// Half scale is about -6 dBFS.
	db, ok = MeteringDB(constantPCM(16384, 100))
	require.True(t, ok)
	assert.InDelta(t, -6.02, db, 0.01)
}

func TestMeter_EmitsOneReadingPerTick(t *testing.T) {
	var readings []Reading
	// 1000 Hz and 10 ms ticks = 10 samples per tick.
	m := newMeter(1000, 10*time.Millisecond, func(r Reading) { readings = append(readings, r) })
	require.Equal(t, 10, m.samplesPerTick)

	m.write(constantPCM(16384, 7))
	assert.Empty(t, readings)

	m.write(constantPCM(16384, 25))
	require.Len(t, readings, 3)
	for _, r := range readings {
		require.NotNil(t, r.Metering)
		assert.InDelta(t, -6.02, *r.Metering, 0.01)
	}

	// Two samples remain buffered until flush.
	m.flush()
	assert.Len(t, readings, 4)
	m.flush()
	assert.Len(t, readings, 4)
}

func TestMeter_CarriesOddByte(t *testing.T) {
	var readings []Reading
	m := newMeter(1000, 2*time.Millisecond, func(r Reading) { readings = append(readings, r) })

	pcm := constantPCM(-32768, 2)
	m.write(pcm[:3])
	assert.Empty(t, readings)
	m.write(pcm[3:])
	require.Len(t, readings, 1)
	assert.InDelta(t, 0.0, *readings[0].Metering, 1e-9)
}

func TestReplay_ReadsUntilEOF(t *testing.T) {
	var readings []Reading
	var pcmBytes int
	opts := CaptureOptions{
		Interval: 10 * time.Millisecond,
		OnSample: func(r Reading) { readings = append(readings, r) },
		OnPCM:    func(b []byte) { pcmBytes += len(b) },
	}

	src := append(constantPCM(0, 20), constantPCM(16384, 15)...)
	err := replay(context.Background(), bytes.NewReader(src), 1000, false, opts)
	require.NoError(t, err)

	require.Len(t, readings, 4)
	assert.Equal(t, SilenceDB, *readings[0].Metering)
	assert.Equal(t, SilenceDB, *readings[1].Metering)
	assert.InDelta(t, -6.02, *readings[2].Metering, 0.01)
	assert.InDelta(t, -6.02, *readings[3].Metering, 0.01, "partial tick is flushed")
	assert.Equal(t, len(src), pcmBytes)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("pipe broken") }

func TestReplay_PropagatesReadErrors(t *testing.T) {
	err := replay(context.Background(), failingReader{}, 1000, false, CaptureOptions{})
	assert.ErrorContains(t, err, "pipe broken")
}

func TestReplay_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := replay(ctx, bytes.NewReader(constantPCM(0, 100)), 1000, true, CaptureOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileCapturer_Permission(t *testing.T) {
	f := NewFileCapturer("clip.ogg", 0)
	assert.Equal(t, DefaultSampleRate, f.SampleRate)
	assert.True(t, f.Pace)
	status, err := f.RequestPermission(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, f.Permission(), status)
}
