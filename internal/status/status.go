// Package status formats colored, right-aligned state markers for terminal
// output, such as "installing packages        [ DONE ]".
package status

import (
	"strings"

	"github.com/pterm/pterm"
)

// DefaultOffset is the column the state marker is aligned to.
const DefaultOffset = 60

// Common states and their colors.
const (
	Done    = "DONE"
	Error   = "ERROR"
	Skipped = "SKIPPED"
)

// ColorText returns text wrapped in color's escape codes.
func ColorText(text string, color pterm.Color) string {
	return color.Sprint(text)
}

// Format returns "[ state ]" with state colored, left-padded so the marker
// ends at column offset after msg. Color codes in msg do not count toward
// its width. At least one space always separates msg from the marker.
func Format(msg, state string, color pterm.Color, offset int) string {
	marker := "[ " + ColorText(state, color) + " ]"

	pad := offset - len(pterm.RemoveColorFromString(msg)) - len(state) - len("[  ]")
	if pad < 1 {
		pad = 1
	}
	return strings.Repeat(" ", pad) + marker
}

// Message returns msg followed by its state marker.
func Message(msg, state string, color pterm.Color) string {
	return msg + Format(msg, state, color, DefaultOffset)
}

// ForExitCode returns the state and color describing an exit code.
func ForExitCode(code int) (string, pterm.Color) {
	if code == 0 {
		return Done, pterm.FgGreen
	}
	return Error, pterm.FgRed
}
