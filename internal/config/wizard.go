package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MarinX/keylogger"
	"github.com/fatih/color"

	"github.com/dooshek/laughmeter/internal/keyboard"
	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/types"
)

var ErrNoKeyPressed = errors.New("no valid key was pressed")

type KeyPress struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
}

// Implement types.KeyCombo for KeyPress
func (kp KeyPress) HasCtrl() bool  { return kp.Ctrl }
func (kp KeyPress) HasShift() bool { return kp.Shift }
func (kp KeyPress) HasAlt() bool   { return kp.Alt }
func (kp KeyPress) HasSuper() bool { return kp.Super }
func (kp KeyPress) GetKey() string { return kp.Key }

func RunWizard() error {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Println("\nWelcome to the Laugh Meter configuration wizard!")
	fmt.Println("\nThis wizard will help you set up the shortcut that starts a recording.")

	reader := bufio.NewReader(os.Stdin)
	for {
		cyan.Println("\nPress your key combination (Ctrl, Alt, Shift, Super + key)...")
		fmt.Println("You can use combinations like Ctrl+Shift+L, Alt+R, F9 etc.")
		fmt.Println("Only a-z, 0-9, F1-F12, space and `[]\\;',./-= keys are allowed.")
		fmt.Println("(Press Ctrl+C to cancel)")

		keyPress, err := captureKeys()
		if err != nil {
			logger.Error("Failed to capture key", err)
			return err
		}

		yellow.Print("\nSelected shortcut is: ")
		printKeyCombination(keyPress, false)
		fmt.Println()

		fmt.Print("\nDo you want to use this shortcut? [Y/n]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			logger.Error("Failed to read input", err)
			return err
		}
		if !isYes(response) {
			fmt.Println("\nOK, let's try again.")
			continue
		}

		config := Default()
		config.RecordKey = types.KeyBinding{
			Key:   keyPress.Key,
			Ctrl:  keyPress.Ctrl,
			Shift: keyPress.Shift,
			Alt:   keyPress.Alt,
			Super: keyPress.Super,
		}

		if err := SaveConfig(config); err != nil {
			logger.Error("Failed to save config", err)
			return err
		}

		green.Println("\nConfiguration saved successfully!")
		fmt.Print("Your shortcut is: ")
		printKeyCombination(config.RecordKey, false)
		fmt.Println("\nPress it any time to measure the room for five seconds.")

		return nil
	}
}

// isYes treats an empty answer as consent.
func isYes(response string) bool {
	response = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(response)))
	return response == "" || response == "y" || response == "yes"
}

// printKeyCombination prints a key combination in a standardized format.
// If clearLine is true, it will clear the current line before printing.
func printKeyCombination(combo types.KeyCombo, clearLine bool) {
	if clearLine {
		fmt.Print("\033[2K\r")
		fmt.Print("Shortcut: ")
	}
	fmt.Print(FormatKeyCombination(combo))
}

// FormatKeyCombination renders a combo as "CTRL + SHIFT + L".
func FormatKeyCombination(combo types.KeyCombo) string {
	var parts []string
	if combo.HasCtrl() {
		parts = append(parts, "CTRL")
	}
	if combo.HasShift() {
		parts = append(parts, "SHIFT")
	}
	if combo.HasAlt() {
		parts = append(parts, "ALT")
	}
	if combo.HasSuper() {
		parts = append(parts, "SUPER")
	}
	if key := combo.GetKey(); key != "" {
		parts = append(parts, strings.ToUpper(key))
	}
	return strings.Join(parts, " + ")
}

func captureKeys() (KeyPress, error) {
	kbd, err := keyboard.OpenKeyboard()
	if err != nil {
		return KeyPress{}, err
	}
	defer kbd.Close()

	var keyPress KeyPress
	for e := range kbd.Read() {
		if e.Type != keylogger.EvKey {
			continue
		}
		if done := applyKeyEvent(&keyPress, e.Code, e.KeyPress(), e.KeyRelease()); done {
			return keyPress, nil
		}
		printKeyCombination(keyPress, true)
	}
	return KeyPress{}, ErrNoKeyPressed
}

// applyKeyEvent folds one key event into kp and reports whether a
// non-modifier key completed the combination.
func applyKeyEvent(kp *KeyPress, code uint16, pressed, released bool) bool {
	var mod *bool
	switch code {
	case keyboard.LeftControl, keyboard.RightControl:
		mod = &kp.Ctrl
	case keyboard.LeftShift, keyboard.RightShift:
		mod = &kp.Shift
	case keyboard.LeftAlt, keyboard.RightAlt:
		mod = &kp.Alt
	case keyboard.LeftSuper, keyboard.RightSuper:
		mod = &kp.Super
	}
	if mod != nil {
		if pressed {
			*mod = true
		} else if released {
			*mod = false
		}
		return false
	}

	if !pressed {
		return false
	}
	if key, ok := keyboard.KeyNames[code]; ok {
		kp.Key = key
		return true
	}
	return false
}
