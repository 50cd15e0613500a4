package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// SilenceDB is reported for a tick whose samples are all zero.
	SilenceDB = -160.0
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
)

// MeteringDB returns the RMS level of S16LE mono PCM in dBFS. ok is false
// when pcm holds no complete sample.
func MeteringDB(pcm []byte) (db float64, ok bool) {
	var m levelData
	m.add(pcm)
	if m.count == 0 {
		return 0, false
	}
	return m.db(), true
}

// levelData accumulates squared samples for one metering tick.
type levelData struct {
	sumSquares float64
	count      int
}

func (d *levelData) add(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		d.sumSquares += s * s
		d.count++
	}
}

func (d *levelData) db() float64 {
	rms := math.Sqrt(d.sumSquares / float64(d.count))
	if rms == 0 {
		return SilenceDB
	}
	return max(20*math.Log10(rms/MaxSampleValue), SilenceDB)
}

func (d *levelData) reset() {
	d.sumSquares = 0
	d.count = 0
}

// meter slices an incoming PCM stream into fixed-size ticks and emits one
// Reading per tick. Tick boundaries are counted in samples, not wall time,
// so readings are deterministic for a given stream.
type meter struct {
	samplesPerTick int
	data           levelData
	carry          []byte
	emit           func(Reading)
}

func newMeter(sampleRate int, interval time.Duration, emit func(Reading)) *meter {
	n := int(int64(sampleRate) * int64(interval) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return &meter{samplesPerTick: n, emit: emit}
}

func (m *meter) write(pcm []byte) {
	if len(m.carry) > 0 {
		pcm = append(m.carry, pcm...)
		m.carry = nil
	}
	for len(pcm) >= 2 {
		need := (m.samplesPerTick - m.data.count) * 2
		chunk := pcm
		if len(chunk) > need {
			chunk = pcm[:need]
		}
		chunk = chunk[:len(chunk)&^1]
		m.data.add(chunk)
		pcm = pcm[len(chunk):]

		if m.data.count >= m.samplesPerTick {
			db := m.data.db()
			m.data.reset()
			if m.emit != nil {
				m.emit(Reading{Metering: &db})
			}
		}
	}
	if len(pcm) == 1 {
		m.carry = []byte{pcm[0]}
	}
}

// flush emits the partial tick, if any.
func (m *meter) flush() {
	if m.data.count == 0 {
		return
	}
	db := m.data.db()
	m.data.reset()
	if m.emit != nil {
		m.emit(Reading{Metering: &db})
	}
}
