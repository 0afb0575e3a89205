package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func init() {
	if !ShouldUseColor() {
		DisableColor()
	}
}

// IsTerminal reports whether stdout is a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions:
// NO_COLOR (any value) wins, then CLICOLOR_FORCE, then CLICOLOR=0, then
// whether stdout is a terminal.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether status icons should be printed.
// RW_NO_EMOJI disables them; otherwise they follow the TTY check.
func ShouldUseEmoji() bool {
	if os.Getenv("RW_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// DisableColor switches lipgloss to plain ASCII output (--no-color).
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// EnableColor restores the profile detected from stdout.
func EnableColor() {
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// ColorEnabled reports whether styles currently render escape sequences.
func ColorEnabled() bool {
	return lipgloss.ColorProfile() != termenv.Ascii
}
