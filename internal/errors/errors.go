package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig       = "CONFIG"
	ErrSSH          = "SSH"
	ErrExec         = "EXEC"
	ErrPrecondition = "PRECONDITION" // environment not selected before a task
	ErrMissing      = "MISSING"      // expected remote artifact is absent
	ErrAbort        = "ABORT"        // operator declined or aborted
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// NewPrecondition reports that a task ran before an environment was selected.
func NewPrecondition(task, key string) *Error {
	return &Error{
		Code:       ErrPrecondition,
		Message:    fmt.Sprintf("'%s' needs '%s', which isn't set", task, key),
		Suggestion: "Select an environment first: rollout staging <task> or rollout production <task>",
	}
}

// NewMissing reports an expected file on the remote host that isn't there.
func NewMissing(message, path string) *Error {
	return &Error{
		Code:       ErrMissing,
		Message:    message,
		Suggestion: fmt.Sprintf("Expected %s. Commit the file for this environment and run checkout, then try again.", path),
	}
}

// NewAborted reports an operator decision to stop the run.
func NewAborted(message string) *Error {
	return &Error{
		Code:    ErrAbort,
		Message: message,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// ExitError carries a process exit code without a message.
// The CLI uses it to exit non-zero after output was already shown.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError for the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the code from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
