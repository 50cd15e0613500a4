package notification

import (
	"os/exec"
	"path/filepath"

	"github.com/dooshek/laughmeter/internal/logger"
)

// defaultSoundDir is the freedesktop sound theme shipped by most desktops.
const defaultSoundDir = "/usr/share/sounds/freedesktop/stereo"

type linuxNotifier struct {
	soundDir string
	// run executes an external command; replaced in tests.
	run func(name string, args ...string) error
}

func newLinuxNotifier(soundDir string) *linuxNotifier {
	logger.Debug("Initializing Linux notifier")
	return &linuxNotifier{
		soundDir: soundDir,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (n *linuxNotifier) send(title, message string) error {
	logger.Debugf("Sending notification: %s - %s", title, message)
	go func() {
		if err := n.run("notify-send", "-a", "laughmeter", title, message); err != nil {
			logger.Errorf("Failed to send notification", err)
		}
	}()
	return nil
}

func (n *linuxNotifier) playStartBeep() error {
	n.play("message-new-instant.oga")
	return nil
}

func (n *linuxNotifier) playStopBeep() error {
	n.play("complete.oga")
	return nil
}

func (n *linuxNotifier) play(sound string) {
	path := filepath.Join(n.soundDir, sound)
	go func() {
		if err := n.run("paplay", path); err != nil {
			logger.Errorf("Failed to play %s", err, sound)
		}
	}()
}
