package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	return useColor(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

func useColor(getenv func(string) string, tty bool) bool {
	switch {
	case getenv("NO_COLOR") != "": // https://no-color.org
		return false
	case strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(getenv("CLICOLOR")) == "0":
		return false
	default:
		return tty
	}
}
