package ui

import (
	"fmt"

	"github.com/rankforge/linkmesh/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorCritical = 203 // red
	colorHigh     = 215 // orange
	colorMedium   = 222 // yellow
	colorLow      = 74  // blue
	colorOpen     = 215 // orange
	colorTerminal = 114 // green
	colorMuted    = 245 // medium gray
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderSeverity returns the severity string colored by rank.
func RenderSeverity(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return render(colorCritical, string(sev))
	case model.SeverityHigh:
		return render(colorHigh, string(sev))
	case model.SeverityMedium:
		return render(colorMedium, string(sev))
	default:
		return render(colorLow, string(sev))
	}
}

// RenderStatus returns the status string, open states in orange and
// terminal states in green.
func RenderStatus(status model.Status) string {
	if status.IsTerminal() {
		return render(colorTerminal, string(status))
	}
	return render(colorOpen, string(status))
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return render(colorMuted, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
