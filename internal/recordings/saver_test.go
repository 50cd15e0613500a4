package recordings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dooshek/laughmeter/internal/fileops"
)

func TestSaveClip_WritesWAVAndPrunes(t *testing.T) {
	files := fileops.NewFileOps(t.TempDir())
	s := NewSaver(files, 16000, 2)

	clock := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveClip(id, []byte{0, 0, 1, 0}))
	}

	names, err := files.ListRecordings()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20260501T100002_b.wav",
		"20260501T100003_c.wav",
	}, names)
}

func TestNewSaver_DefaultKeep(t *testing.T) {
	s := NewSaver(fileops.NewFileOps(t.TempDir()), 16000, 0)
	assert.Equal(t, DefaultKeep, s.keep)
}
