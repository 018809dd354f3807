package output

import (
	"io"
	"sync"
	"time"

	"github.com/rileyhilliard/rollout/internal/ui"
)

// StepStatus is the outcome of one task on one host.
type StepStatus int

const (
	StepRunning StepStatus = iota
	StepDone
	StepFailed
	StepSkipped
)

// String returns the display name for a status.
func (s StepStatus) String() string {
	switch s {
	case StepRunning:
		return "running"
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepEvent records one task executed against one host.
type StepEvent struct {
	Task      string
	Host      string
	Status    StepStatus
	StartTime time.Time
	EndTime   time.Time
	Error     error
	Message   string
}

// Duration returns the step duration.
func (e StepEvent) Duration() time.Duration {
	if e.EndTime.IsZero() {
		return time.Since(e.StartTime)
	}
	return e.EndTime.Sub(e.StartTime)
}

// Label returns "task on host" for display.
func (e StepEvent) Label() string {
	if e.Host == "" {
		return e.Task
	}
	return e.Task + " on " + e.Host
}

// RunTracker records task/host steps as a run progresses and prints
// their headers and outcomes. Steps may nest (deploy invokes checkout);
// Complete, Fail and Skip always close the innermost open step.
type RunTracker struct {
	mu      sync.Mutex
	display *ui.PhaseDisplay
	events  []StepEvent
	open    []int
	quiet   bool
	onStep  func(StepEvent)
}

// NewRunTracker creates a tracker that writes to w.
func NewRunTracker(w io.Writer) *RunTracker {
	return &RunTracker{
		display: ui.NewPhaseDisplay(w),
		events:  make([]StepEvent, 0),
	}
}

// SetQuiet suppresses step headers and outcome lines. Events are still
// recorded.
func (rt *RunTracker) SetQuiet(quiet bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.quiet = quiet
}

// OnStep sets a callback invoked whenever a step finishes.
func (rt *RunTracker) OnStep(fn func(StepEvent)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onStep = fn
}

// Start opens a step for task on host.
func (rt *RunTracker) Start(task, host string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.events = append(rt.events, StepEvent{
		Task:      task,
		Host:      host,
		Status:    StepRunning,
		StartTime: time.Now(),
	})
	rt.open = append(rt.open, len(rt.events)-1)

	if !rt.quiet {
		rt.display.RenderTask(task, host)
	}
}

// Complete marks the innermost open step as done.
func (rt *RunTracker) Complete() {
	rt.finish(StepDone, nil, "")
}

// Fail marks the innermost open step as failed.
func (rt *RunTracker) Fail(err error) {
	rt.finish(StepFailed, err, "")
}

// Skip marks the innermost open step as skipped.
func (rt *RunTracker) Skip(reason string) {
	rt.finish(StepSkipped, nil, reason)
}

func (rt *RunTracker) finish(status StepStatus, err error, message string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.open) == 0 {
		return
	}
	idx := rt.open[len(rt.open)-1]
	rt.open = rt.open[:len(rt.open)-1]

	e := &rt.events[idx]
	e.Status = status
	e.EndTime = time.Now()
	e.Error = err
	e.Message = message

	if !rt.quiet {
		rt.render(*e)
	}
	if rt.onStep != nil {
		rt.onStep(*e)
	}
}

func (rt *RunTracker) render(e StepEvent) {
	switch e.Status {
	case StepDone:
		rt.display.RenderSuccess(e.Label(), e.Duration())
	case StepFailed:
		rt.display.RenderFailed(e.Label(), e.Duration(), e.Error)
	case StepSkipped:
		rt.display.RenderSkipped(e.Label(), e.Message)
	}
}

// Events returns all recorded steps.
func (rt *RunTracker) Events() []StepEvent {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	result := make([]StepEvent, len(rt.events))
	copy(result, rt.events)
	return result
}

// Failed reports whether any step failed.
func (rt *RunTracker) Failed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, e := range rt.events {
		if e.Status == StepFailed {
			return true
		}
	}
	return false
}

// TotalDuration returns the time from the first step to the last finished one.
func (rt *RunTracker) TotalDuration() time.Duration {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.events) == 0 {
		return 0
	}

	start := rt.events[0].StartTime
	end := time.Now()
	for i := len(rt.events) - 1; i >= 0; i-- {
		if !rt.events[i].EndTime.IsZero() {
			end = rt.events[i].EndTime
			break
		}
	}
	return end.Sub(start)
}

// Display returns the underlying PhaseDisplay for custom rendering.
func (rt *RunTracker) Display() *ui.PhaseDisplay {
	return rt.display
}

// Summary prints the run's closing line.
func (rt *RunTracker) Summary() {
	total := rt.TotalDuration()
	failed := rt.Failed()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.quiet || len(rt.events) == 0 {
		return
	}

	rt.display.Divider()
	if failed {
		rt.display.RenderFailed("Run failed", total, nil)
		return
	}
	rt.display.RenderSuccess("Done", total)
}
