package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/relaynotes/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// helpLine classifies one line of cobra's usage text.
type helpLine int

const (
	linePlain helpLine = iota
	lineSection
	lineCommand
	lineFlag
)

// clientEnv lists the variables the client subcommands read, shown under
// the root help.
var clientEnv = [][2]string{
	{"RN_HTTP_URL", "bridge URL (overrides the active remote)"},
	{"RN_AUTH_TOKEN", "bearer token for the HTTP API"},
	{"RN_NATS_URL", "NATS server for rn watch"},
}

// helpStyler knows the section titles and flag names of one command so it
// can style cobra's plain usage text line by line.
type helpStyler struct {
	sections map[string]bool
	flags    map[string]bool
}

func newHelpStyler(cmd *cobra.Command) *helpStyler {
	h := &helpStyler{
		sections: map[string]bool{
			"Usage:": true, "Aliases:": true, "Examples:": true,
			"Available Commands:": true, "Additional Commands:": true,
			"Flags:": true, "Global Flags:": true, "Environment:": true,
		},
		flags: map[string]bool{},
	}
	for _, g := range cmd.Root().Groups() {
		h.sections[g.Title] = true
	}
	mark := func(f *pflag.Flag) { h.flags["--"+f.Name] = true }
	cmd.LocalFlags().VisitAll(mark)
	cmd.InheritedFlags().VisitAll(mark)
	return h
}

// classify returns the kind of each line in text. Command rows are only
// recognised under a commands or group section.
func (h *helpStyler) classify(lines []string) []helpLine {
	kinds := make([]helpLine, len(lines))
	inCommands := false
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case h.sections[trimmed] && !strings.HasPrefix(l, " "):
			kinds[i] = lineSection
			inCommands = trimmed != "Usage:" && trimmed != "Flags:" && trimmed != "Global Flags:" &&
				trimmed != "Aliases:" && trimmed != "Examples:" && trimmed != "Environment:"
		case strings.HasPrefix(trimmed, "-"):
			kinds[i] = lineFlag
		case inCommands && strings.HasPrefix(l, "  ") && trimmed != "":
			kinds[i] = lineCommand
		}
	}
	return kinds
}

// style renders text with section titles in the accent color, command
// names highlighted and this command's flags highlighted with their
// defaults muted.
func (h *helpStyler) style(text string) string {
	lines := strings.Split(text, "\n")
	for i, kind := range h.classify(lines) {
		l := lines[i]
		switch kind {
		case lineSection:
			lines[i] = ui.RenderAccent(strings.TrimSpace(l))
		case lineCommand:
			indent := l[:len(l)-len(strings.TrimLeft(l, " "))]
			name, rest, found := strings.Cut(strings.TrimLeft(l, " "), " ")
			lines[i] = indent + ui.RenderCommand(name)
			if found {
				lines[i] += " " + rest
			}
		case lineFlag:
			lines[i] = h.styleFlag(l)
		}
	}
	return strings.Join(lines, "\n")
}

func (h *helpStyler) styleFlag(l string) string {
	fields := strings.Fields(l)
	for _, f := range fields {
		name := strings.TrimSuffix(f, ",")
		if h.flags[name] {
			l = strings.Replace(l, name, ui.RenderAccent(name), 1)
			break
		}
	}
	if i := strings.Index(l, "(default "); i >= 0 {
		l = l[:i] + ui.RenderMuted(l[i:])
	}
	return l
}

// writeEnvHelp prints the client environment variables.
func writeEnvHelp(w io.Writer) {
	fmt.Fprintln(w, "\nEnvironment:")
	for _, kv := range clientEnv {
		fmt.Fprintf(w, "  %-15s %s\n", kv[0], kv[1])
	}
}

// colorizedHelpFunc returns a cobra help function that prints the usage
// text, adds the environment section for the root command, and styles the
// result when color is enabled.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		if !cmd.HasParent() {
			writeEnvHelp(&buf)
		}

		text := buf.String()
		if ui.ShouldUseColor() {
			text = newHelpStyler(cmd).style(text)
		}
		fmt.Fprint(out, text)
	}
}
