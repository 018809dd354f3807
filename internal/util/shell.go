// Package util holds small string helpers for building remote commands and
// operator messages.
package util

import "strings"

// ShellQuote single-quotes s for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellQuotePreserveTilde quotes a remote path but leaves a leading "~" or
// "~/" bare so the remote shell expands it to the login user's home.
func ShellQuotePreserveTilde(path string) string {
	switch {
	case path == "~":
		return path
	case strings.HasPrefix(path, "~/"):
		return "~/" + ShellQuote(path[2:])
	}
	return ShellQuote(path)
}

// JoinCommands chains the non-blank commands with " && " so the remote
// shell stops at the first failure.
func JoinCommands(cmds ...string) string {
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " && ")
}
