package output

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/rollout/internal/ui"
)

// Formatter processes remote output lines for display.
type Formatter interface {
	// ProcessLine transforms a single line of output. ANSI codes in the
	// line pass through unchanged.
	ProcessLine(line string, stderr bool) string

	// Summary generates a closing line after the command exits.
	// exitCode is the command's exit code (0 for success).
	Summary(exitCode int) string
}

// HostFormatter prefixes every line with the host it came from, so output
// from a multi-host run stays attributable:
//
//	[web1] out: Already up to date.
//	[web1] err: warning: redirecting to https://...
type HostFormatter struct {
	host        string
	prefixStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

// NewHostFormatter creates a formatter for output from host.
func NewHostFormatter(host string) *HostFormatter {
	return &HostFormatter{
		host:        host,
		prefixStyle: lipgloss.NewStyle().Foreground(ui.ColorMuted),
		errorStyle:  lipgloss.NewStyle().Foreground(ui.ColorError),
	}
}

// Prefix returns the unstyled prefix for a stream ("[web1] out: ").
func (f *HostFormatter) Prefix(stderr bool) string {
	stream := "out"
	if stderr {
		stream = "err"
	}
	return "[" + f.host + "] " + stream + ": "
}

// ProcessLine prefixes the line and highlights error lines in red.
func (f *HostFormatter) ProcessLine(line string, stderr bool) string {
	body := line
	if isErrorLine(line) {
		body = f.errorStyle.Render(line)
	}
	return f.prefixStyle.Render(strings.TrimSuffix(f.Prefix(stderr), " ")) + " " + body
}

// Summary reports a non-zero exit status.
func (f *HostFormatter) Summary(exitCode int) string {
	if exitCode == 0 {
		return ""
	}
	return f.errorStyle.Render("[" + f.host + "] exit code " + strconv.Itoa(exitCode))
}

// isErrorLine checks if a line appears to be an error message.
func isErrorLine(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))

	errorPrefixes := []string{
		"error:",
		"error ",
		"fatal:",
		"fatal ",
		"traceback (most recent call last)",
		"exception:",
		"failed:",
		"e: ",
	}

	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}

	// Django and pip print all-caps ERROR lines.
	return strings.Contains(line, "ERROR")
}
