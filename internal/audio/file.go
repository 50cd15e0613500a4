package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/types"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrFFmpegNotInstalled is returned when file capture is used without ffmpeg on PATH.
var ErrFFmpegNotInstalled = errors.New("FFmpeg is not installed. Please install FFmpeg to score audio files")

func init() {
	ffmpeg.LogCompiledCommand = false
}

func checkFFmpegInstalled() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFFmpegNotInstalled
	}
	return nil
}

// FileCapturer replays an audio file as if it came from a microphone. ffmpeg
// decodes the file to S16LE mono, truncated to the requested session
// duration; readings are paced in real time unless Pace is false.
type FileCapturer struct {
	Path       string
	SampleRate int
	Pace       bool
}

// NewFileCapturer creates a real-time paced file capturer.
func NewFileCapturer(path string, sampleRate int) *FileCapturer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FileCapturer{Path: path, SampleRate: sampleRate, Pace: true}
}

// Permission is always granted for files.
func (f *FileCapturer) Permission() types.PermissionStatus {
	return types.PermissionGranted
}

func (f *FileCapturer) RequestPermission(ctx context.Context) (types.PermissionStatus, error) {
	return types.PermissionGranted, ctx.Err()
}

func (f *FileCapturer) Start(ctx context.Context, opts CaptureOptions) (Handle, error) {
	if err := checkFFmpegInstalled(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(f.Path); err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	args := ffmpeg.KwArgs{
		"loglevel": "quiet",
		"format":   "s16le",
		"acodec":   "pcm_s16le",
		"ac":       channels,
		"ar":       f.SampleRate,
	}
	if opts.Duration > 0 {
		// Decode no more than one session's worth of audio.
		args["t"] = fmt.Sprintf("%.3f", opts.Duration.Seconds())
	}

	pr, pw := io.Pipe()
	cmd := ffmpeg.Input(f.Path).
		Output("pipe:", args).
		WithOutput(pw).
		Compile()
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &fileHandle{cancel: cancel, cmd: cmd, pr: pr}

	go func() {
		err := cmd.Wait()
		pw.CloseWithError(err)
	}()

	go func() {
		err := replay(runCtx, pr, f.SampleRate, f.Pace, opts)
		switch {
		case runCtx.Err() != nil:
			// Stopped by the caller.
		case err != nil:
			logger.Error("File capture failed", err)
			if opts.OnError != nil {
				opts.OnError(err)
			}
		default:
			if opts.OnStop != nil {
				opts.OnStop()
			}
		}
	}()

	logger.Debugf("File capture started: %s", f.Path)
	return h, nil
}

// replay reads PCM from r one tick at a time and feeds it through a meter.
// It returns nil at end of stream.
func replay(ctx context.Context, r io.Reader, sampleRate int, pace bool, opts CaptureOptions) error {
	interval := opts.interval()
	mtr := newMeter(sampleRate, interval, opts.OnSample)
	buf := make([]byte, mtr.samplesPerTick*2)

	var ticker *time.Ticker
	if pace {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if opts.OnPCM != nil {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				opts.OnPCM(frame)
			}
			mtr.write(buf[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			mtr.flush()
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read decoded audio: %w", err)
		}
	}
}

type fileHandle struct {
	once   sync.Once
	cancel context.CancelFunc
	cmd    *exec.Cmd
	pr     *io.PipeReader
}

func (h *fileHandle) Stop() error {
	h.once.Do(func() {
		h.cancel()
		_ = h.pr.Close()
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
	return nil
}
