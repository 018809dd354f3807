// Package gate asks the operator before rollout touches production.
package gate

import (
	stderrors "errors"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/logger"
	"golang.org/x/term"
)

// Mode says how questions get answered.
type Mode int

const (
	// Interactive asks on the terminal.
	Interactive Mode = iota
	// AutoYes accepts every production gate (--yes).
	AutoYes
	// NonInteractive has no terminal: production gates decline and other
	// questions take their default.
	NonInteractive
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Interactive:
		return "interactive"
	case AutoYes:
		return "auto-yes"
	case NonInteractive:
		return "non-interactive"
	default:
		return "unknown"
	}
}

// Prompter asks the operator a question.
type Prompter interface {
	Confirm(title string, def bool) (bool, error)
	Input(title string) (string, error)
}

// Question is a production gate.
type Question struct {
	// Title is shown to the operator.
	Title string
	// Abort is the message of the ABORT error returned on decline.
	Abort string
	// Default is preselected in the prompt.
	Default bool
}

// Gate answers confirmations for one run.
type Gate struct {
	mu        sync.Mutex
	mode      Mode
	prompter  Prompter
	log       logger.Logger
	consented bool
}

// New creates a gate answering in mode. The prompter is only used in
// Interactive mode.
func New(mode Mode, p Prompter, log logger.Logger) *Gate {
	if p == nil {
		p = HuhPrompter{}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Gate{mode: mode, prompter: p, log: log}
}

// Detect picks the mode from --yes and whether stdin is a terminal.
func Detect(yes bool, log logger.Logger) *Gate {
	switch {
	case yes:
		return New(AutoYes, nil, log)
	case term.IsTerminal(int(os.Stdin.Fd())):
		return New(Interactive, nil, log)
	default:
		return New(NonInteractive, nil, log)
	}
}

// Mode returns how the gate answers.
func (g *Gate) Mode() Mode {
	return g.mode
}

// BeginPass forgets any production consent. The runner calls it before
// each task/host pass so consent never leaks to the next host.
func (g *Gate) BeginPass() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consented = false
}

// ConfirmIfProduction asks q when e is production. It returns nil to
// proceed and an ABORT error to stop the run. Consent given once holds
// for the rest of the pass.
func (g *Gate) ConfirmIfProduction(e *env.Environment, q Question) error {
	if !e.IsProduction() {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.consented {
		g.log.Debug("production already confirmed for this pass: %s", q.Title)
		return nil
	}

	switch g.mode {
	case AutoYes:
		g.log.Info("--yes: %s", q.Title)
		g.consented = true
		return nil
	case NonInteractive:
		return errors.New(errors.ErrAbort, abortMessage(q),
			"stdin is not a terminal. Pass --yes to confirm production changes unattended.")
	}

	ok, err := g.prompter.Confirm(q.Title, q.Default)
	if err != nil {
		return promptError(err, abortMessage(q))
	}
	if !ok {
		return errors.NewAborted(abortMessage(q))
	}
	g.consented = true
	return nil
}

// Confirm asks a yes/no question that doesn't guard production. Without
// a terminal, and under --yes, it answers def.
func (g *Gate) Confirm(title string, def bool) (bool, error) {
	if g.mode != Interactive {
		g.log.Debug("%s answering %q with default %v", g.mode, title, def)
		return def, nil
	}
	ok, err := g.prompter.Confirm(title, def)
	if err != nil {
		return false, promptError(err, "Prompt cancelled.")
	}
	return ok, nil
}

// Input asks for free text. Without a terminal it returns "".
func (g *Gate) Input(title string) (string, error) {
	if g.mode != Interactive {
		g.log.Debug("%s: no answer for %q", g.mode, title)
		return "", nil
	}
	s, err := g.prompter.Input(title)
	if err != nil {
		return "", promptError(err, "Prompt cancelled.")
	}
	return strings.TrimSpace(s), nil
}

func abortMessage(q Question) string {
	if q.Abort != "" {
		return q.Abort
	}
	return "Production run aborted."
}

// promptError maps a cancelled form (ctrl-c) to ABORT.
func promptError(err error, message string) error {
	if stderrors.Is(err, huh.ErrUserAborted) {
		return errors.NewAborted(message)
	}
	return errors.WrapWithCode(err, errors.ErrAbort, message, "")
}

// HuhPrompter asks on the terminal with huh forms.
type HuhPrompter struct{}

// Confirm shows a yes/no form.
func (HuhPrompter) Confirm(title string, def bool) (bool, error) {
	v := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&v),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return v, nil
}

// Input shows a single-line text form.
func (HuhPrompter) Input(title string) (string, error) {
	var v string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&v),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return v, nil
}
