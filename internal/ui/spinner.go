package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerState is where a spinner is in its lifecycle.
type SpinnerState int

const (
	SpinnerIdle SpinnerState = iota
	SpinnerRunning
	SpinnerDone
	SpinnerFailed
)

// ConnectFrames animates while an SSH handshake is in flight.
var ConnectFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// Spinner redraws a single status line on a terminal until it is resolved
// with Success or Fail. Piped output should use PhaseDisplay instead.
type Spinner struct {
	w      io.Writer
	label  string
	frames spinner.Spinner

	mu      sync.Mutex
	state   SpinnerState
	frame   int
	started time.Time
	width   int
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner returns an idle spinner writing to w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label, frames: ConnectFrames}
}

// Start draws the first frame and begins animating. Starting twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SpinnerRunning {
		return
	}
	s.state = SpinnerRunning
	s.started = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.drawLocked()

	go s.loop(s.stop, s.done)
}

// Success resolves the spinner with a completed phase line.
func (s *Spinner) Success() { s.resolve(SpinnerDone) }

// Fail resolves the spinner with a failed phase line.
func (s *Spinner) Fail() { s.resolve(SpinnerFailed) }

// State reports the current state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed is the time since Start, or zero if it never started.
func (s *Spinner) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(s.frames.Frames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) resolve(state SpinnerState) {
	s.mu.Lock()
	if s.state != SpinnerRunning {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.eraseLocked()

	symbol, color := SymbolComplete, ColorSuccess
	if state == SpinnerFailed {
		symbol, color = SymbolFail, ColorError
	}
	fmt.Fprintln(s.w, FormatPhase(symbol, color, s.label, formatDuration(time.Since(s.started))))
}

func (s *Spinner) drawLocked() {
	frame := lipgloss.NewStyle().Foreground(ColorSecondary).Render(s.frames.Frames[s.frame])
	line := frame + " " + s.label + "..."
	s.eraseLocked()
	fmt.Fprint(s.w, "\r"+line)
	s.width = lipgloss.Width(line)
}

func (s *Spinner) eraseLocked() {
	if s.width == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
}

// formatDuration renders sub-100ms durations with two decimals, the rest with one.
func formatDuration(d time.Duration) string {
	if d < 100*time.Millisecond {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
