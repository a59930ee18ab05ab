package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/rdd/internal/config"
)

// Catppuccin Mocha palette. Mutable so config can override.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorBright = lipgloss.Color("#cdd6f4")
)

var renderer = lipgloss.NewRenderer(os.Stderr)

// Pre-built styles, rebuilt by rebuildStyles() after color or output changes.
var (
	styleOK      lipgloss.Style
	styleFailed  lipgloss.Style
	styleWarn    lipgloss.Style
	styleLabel   lipgloss.Style
	styleValue   lipgloss.Style
	styleDigest  lipgloss.Style
	styleBarFill lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	styleOK = renderer.NewStyle().Bold(true).Foreground(ColorGreen)
	styleFailed = renderer.NewStyle().Bold(true).Foreground(ColorRed)
	styleWarn = renderer.NewStyle().Foreground(ColorYellow)
	styleLabel = renderer.NewStyle().Foreground(ColorMuted)
	styleValue = renderer.NewStyle().Foreground(ColorBright)
	styleDigest = renderer.NewStyle().Foreground(ColorMuted)
	styleBarFill = renderer.NewStyle().Foreground(ColorGreen)
}

// SetOutput binds the styles to w, so color is only emitted when w is a
// terminal that supports it.
func SetOutput(w io.Writer) {
	renderer = lipgloss.NewRenderer(w)
	rebuildStyles()
}

// ApplyTheme overrides colors from a config ThemeConfig and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	if tc.Green != nil {
		ColorGreen = lipgloss.Color(*tc.Green)
	}
	if tc.Red != nil {
		ColorRed = lipgloss.Color(*tc.Red)
	}
	if tc.Yellow != nil {
		ColorYellow = lipgloss.Color(*tc.Yellow)
	}
	if tc.Muted != nil {
		ColorMuted = lipgloss.Color(*tc.Muted)
	}
	if tc.Bright != nil {
		ColorBright = lipgloss.Color(*tc.Bright)
	}
	rebuildStyles()
}
