package config

import (
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Use this for LOCAL paths only. Remote paths keep ~ for the remote shell.
func ExpandTilde(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandProject replaces ${PROJECT} with the project name and ${USER}
// with the local username.
func ExpandProject(s, project string) string {
	if s == "" {
		return s
	}

	result := strings.ReplaceAll(s, "${PROJECT}", project)
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}
	return result
}

// getUser returns the current username for ${USER} expansion.
func getUser() string {
	for _, key := range []string{"USER", "LOGNAME", "USERNAME"} {
		if user := os.Getenv(key); user != "" {
			return user
		}
	}
	return "user"
}

func localHome() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return home
}
