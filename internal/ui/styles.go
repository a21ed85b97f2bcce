package ui

import (
	"fmt"
	"time"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorWarn   = 214 // orange
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderWarn returns s in the warning (orange) color.
func RenderWarn(s string) string { return render(colorWarn, s) }

// ShortNPub abbreviates a bech32 identifier to its prefix and last six
// characters. Short inputs are returned unchanged.
func ShortNPub(npub string) string {
	if len(npub) <= 20 {
		return npub
	}
	return npub[:10] + "…" + npub[len(npub)-6:]
}

// FormatNote renders one note as a two-line block: a header with the
// author and local time, then the content.
func FormatNote(author, content string, createdAt int64) string {
	ts := time.Unix(createdAt, 0).Local().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s %s\n%s\n", RenderAccent(ShortNPub(author)), RenderMuted(ts), content)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
