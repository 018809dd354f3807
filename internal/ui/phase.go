package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

// PhaseDisplay renders task progress to an output writer.
type PhaseDisplay struct {
	w io.Writer
	// pending is set while a progress line without a newline is on screen.
	pending bool
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// RenderTask renders the header for a task starting on a host.
// Shows: ▸ deploy  web1.example.com
func (pd *PhaseDisplay) RenderTask(task, host string) {
	pd.clearLine()
	taskStyle := lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	hostStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "%s %s  %s\n", taskStyle.Render(SymbolTask), taskStyle.Render(task), hostStyle.Render(host))
}

// RenderProgress renders a phase in progress, to be overwritten by the
// next Render call.
// Shows: ◐ Connecting...
func (pd *PhaseDisplay) RenderProgress(name string) {
	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	fmt.Fprintf(pd.w, "\r%s %s...", style.Render(SymbolProgress), name)
	pd.pending = true
}

// RenderSuccess renders a completed phase.
// Shows: ● Connected (0.3s)
func (pd *PhaseDisplay) RenderSuccess(name string, duration time.Duration) {
	pd.clearLine()
	fmt.Fprintln(pd.w, FormatPhase(SymbolComplete, ColorSuccess, name, formatDuration(duration)))
}

// RenderFailed renders a failed phase. The caller prints err itself.
// Shows: ✗ deploy failed (2.3s)
func (pd *PhaseDisplay) RenderFailed(name string, duration time.Duration, err error) {
	pd.clearLine()
	fmt.Fprintln(pd.w, FormatPhase(SymbolFail, ColorError, name, formatDuration(duration)))
}

// RenderSkipped renders a skipped phase.
// Shows: ⊘ update_requirements (no requirements file)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	if reason == "" {
		fmt.Fprintf(pd.w, "%s %s\n", symbolStyle.Render(SymbolSkipped), name)
		return
	}
	reasonStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "%s %s %s\n", symbolStyle.Render(SymbolSkipped), name, reasonStyle.Render("("+reason+")"))
}

// RenderWarning renders a non-fatal problem.
// Shows: ⚠ command exited 1, continuing
func (pd *PhaseDisplay) RenderWarning(message string) {
	pd.clearLine()
	style := lipgloss.NewStyle().Foreground(ColorWarning)
	fmt.Fprintf(pd.w, "%s %s\n", style.Render(SymbolWarning), message)
}

// RenderSubStatus renders an indented sub-status line.
// Shows:   ○ web1                                  connected
func (pd *PhaseDisplay) RenderSubStatus(symbol string, name string, status string) {
	pd.clearLine()
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "  %s %s %s\n", style.Render(symbol), name, style.Render(status))
}

// CommandPrompt renders a command about to run on a host.
// Shows: [web1] run: supervisorctl update
func (pd *PhaseDisplay) CommandPrompt(host, verb, cmd string) {
	pd.clearLine()
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "%s %s\n", style.Render(fmt.Sprintf("[%s] %s:", host, verb)), cmd)
}

// Divider renders a horizontal line between host passes.
func (pd *PhaseDisplay) Divider() {
	pd.clearLine()
	fmt.Fprintf(pd.w, "\n%s\n\n", FormatDivider(DividerWidth))
}

// Newline writes an empty line.
func (pd *PhaseDisplay) Newline() {
	pd.clearLine()
	fmt.Fprintln(pd.w)
}

// clearLine wipes a pending progress line.
func (pd *PhaseDisplay) clearLine() {
	if !pd.pending {
		return
	}
	fmt.Fprint(pd.w, "\r"+strings.Repeat(" ", 80)+"\r")
	pd.pending = false
}

// FormatPhase returns a formatted phase line as a string.
func FormatPhase(symbol string, symbolColor lipgloss.Color, name string, timing string) string {
	symbolStyle := lipgloss.NewStyle().Foreground(symbolColor)
	if timing == "" {
		return fmt.Sprintf("%s %s", symbolStyle.Render(symbol), name)
	}
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	return fmt.Sprintf("%s %s %s", symbolStyle.Render(symbol), name, timingStyle.Render(timing))
}

// FormatDivider returns a divider line as a string.
func FormatDivider(width int) string {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	return style.Render(strings.Repeat("━", width))
}
