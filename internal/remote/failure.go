package remote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rileyhilliard/rollout/internal/errors"
)

// commandNotFoundPatterns detect "command not found" output from common
// shells. They only apply with exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
	regexp.MustCompile(`(?i)(\S+): not found`),
}

// sudoPasswordPatterns detect sudo refusing to run without a password.
var sudoPasswordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sudo: a password is required`),
	regexp.MustCompile(`(?i)sudo: no tty present`),
	regexp.MustCompile(`(?i)sudo: a terminal is required`),
}

// stderrTailLines bounds how much remote stderr an error message carries.
const stderrTailLines = 10

// IsCommandNotFound checks if the error output indicates a missing command.
// Returns the command name (if extractable) and whether it's a
// command-not-found error.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", true
}

// needsSudoPassword reports whether sudo asked for a password.
func needsSudoPassword(stderr string) bool {
	for _, pattern := range sudoPasswordPatterns {
		if pattern.MatchString(stderr) {
			return true
		}
	}
	return false
}

// commandError builds the EXEC error for a failed remote command. It names
// the host, the command and the exit code, and carries the tail of stderr.
func commandError(host, cmd, stderr string, exitCode int) error {
	message := fmt.Sprintf("Command failed on %s with exit code %d: %s", host, exitCode, cmd)

	var suggestion string
	switch name, notFound := IsCommandNotFound(stderr, exitCode); {
	case notFound:
		if name == "" {
			name = firstWord(cmd)
		}
		suggestion = fmt.Sprintf("'%s' wasn't found in the remote shell's PATH on %s.\n"+
			"  Install it, or check that the virtualenv exists (rollout <env> create_virtualenv).", name, host)
	case needsSudoPassword(stderr):
		suggestion = "sudo asked for a password. Give the sudo_user passwordless sudo for these commands on " + host + "."
	}

	var cause error
	if tail := tailLines(stderr, stderrTailLines); tail != "" {
		cause = fmt.Errorf("%s", tail)
	}

	return errors.WrapWithCode(cause, errors.ErrExec, message, suggestion)
}

func firstWord(cmd string) string {
	// Skip the "cd <dir> &&" and activation prefixes.
	if i := strings.LastIndex(cmd, "&& "); i >= 0 {
		cmd = cmd[i+3:]
	}
	if fields := strings.Fields(cmd); len(fields) > 0 {
		return fields[0]
	}
	return "command"
}

// tailLines returns the last n non-empty lines of s, trimmed.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
