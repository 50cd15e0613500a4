// Package recordings writes completed session clips to disk as WAV files.
package recordings

import (
	"fmt"
	"time"

	"github.com/dooshek/laughmeter/internal/fileops"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/pkg/wav"
)

// DefaultKeep is how many clips are retained when no limit is given.
const DefaultKeep = 50

// Saver implements session.ClipRecorder.
type Saver struct {
	files      fileops.FileOps
	sampleRate int
	keep       int
	now        func() time.Time
}

func NewSaver(files fileops.FileOps, sampleRate, keep int) *Saver {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Saver{files: files, sampleRate: sampleRate, keep: keep, now: time.Now}
}

// SaveClip writes pcm as <timestamp>_<session>.wav and prunes the oldest
// clips beyond the retention limit.
func (s *Saver) SaveClip(sessionID string, pcm []byte) error {
	data, err := wav.ConvertPCMToWAV(pcm, 1, s.sampleRate)
	if err != nil {
		return fmt.Errorf("failed to encode clip: %w", err)
	}

	name := fmt.Sprintf("%s_%s.wav", s.now().UTC().Format("20060102T150405"), sessionID)
	if err := s.files.SaveRecording(name, data); err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}
	logger.Debugf("Saved clip %s (%d bytes)", name, len(data))

	return s.prune()
}

func (s *Saver) prune() error {
	names, err := s.files.ListRecordings()
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}
	// Timestamp prefixes make lexical order chronological.
	for len(names) > s.keep {
		if err := s.files.DeleteRecording(names[0]); err != nil {
			return fmt.Errorf("failed to prune clip %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
