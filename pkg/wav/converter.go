// Package wav wraps raw 16-bit little-endian PCM in a RIFF/WAVE container.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const headerSize = 44

var ErrInvalidFormat = errors.New("invalid wav format")

// ConvertPCMToWAV prepends a canonical 44-byte header to S16LE PCM.
func ConvertPCMToWAV(pcmData []byte, channels int, sampleRate int) ([]byte, error) {
	if channels < 1 || sampleRate < 1 {
		return nil, ErrInvalidFormat
	}

	var buffer bytes.Buffer
	buffer.Grow(headerSize + len(pcmData))

	fields := []any{
		[]byte("RIFF"),
		uint32(len(pcmData) + headerSize - 8),
		[]byte("WAVE"),

		[]byte("fmt "),
		uint32(16),
		uint16(1), // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate * channels * 2),
		uint16(channels * 2),
		uint16(16),

		[]byte("data"),
		uint32(len(pcmData)),
	}
	for _, f := range fields {
		if err := binary.Write(&buffer, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	buffer.Write(pcmData)

	return buffer.Bytes(), nil
}
