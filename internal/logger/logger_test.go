package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		SetLevel(in)
		assert.Equal(t, want, GetCurrentLevel(), in)
	}

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestOutputCapturesMessages(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	SetLevel("debug")
	t.Cleanup(func() { SetLevel("info") })

	Infof("meter at %.2f", 0.42)
	Error("capture failed", errors.New("device busy"))
	l := With("session")
	l.Debug().Uint64("generation", 3).Msg("stale sample dropped")

	out := buf.String()
	assert.Contains(t, out, "meter at 0.42")
	assert.Contains(t, out, "device busy")
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "generation=3")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
