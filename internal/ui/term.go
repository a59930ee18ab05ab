package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f is a terminal that can redraw the HUD in place.
// TERM=dumb counts as not a terminal.
func IsTTY(f *os.File) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// TermWidth returns the width of f in columns, or 0 if it cannot be determined.
func TermWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // G115: fd fits in int
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
