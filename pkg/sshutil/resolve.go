package sshutil

import (
	"bufio"
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/rollout/internal/logger"
)

// endpoint is a fully resolved connection target.
type endpoint struct {
	host     string
	port     string
	user     string
	identity string

	// lockedKeys are private keys found on disk that need a passphrase.
	lockedKeys []string
}

func (e *endpoint) address() string {
	return net.JoinHostPort(e.host, e.port)
}

var matchWarned sync.Once

// splitTarget breaks "user@host:port" into its parts. Missing parts are "".
func splitTarget(target string) (user, host, port string) {
	host = target
	if at := strings.Index(host, "@"); at >= 0 {
		user, host = host[:at], host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon >= 0 {
		if _, err := strconv.Atoi(host[colon+1:]); err == nil {
			host, port = host[:colon], host[colon+1:]
		}
	}
	return user, host, port
}

// resolve fills in an endpoint from the target and ~/.ssh/config. Values
// spelled out in the target beat the config.
func resolve(target string) *endpoint {
	user, host, port := splitTarget(target)
	ep := &endpoint{host: host, port: "22", user: currentUser()}

	cfg, matchLine, err := loadSSHConfig(filepath.Join(homeDir(), ".ssh", "config"))
	found := false
	if err == nil {
		if v, _ := cfg.Get(host, "HostName"); v != "" {
			ep.host, found = v, true
		}
		if v, _ := cfg.Get(host, "Port"); v != "" {
			ep.port, found = v, true
		}
		if v, _ := cfg.Get(host, "User"); v != "" {
			ep.user, found = v, true
		}
		if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
			ep.identity, found = expandPath(v), true
		}
	}

	if user != "" {
		ep.user = user
	}
	if port != "" {
		ep.port = port
	}

	if matchLine > 0 && !found {
		matchWarned.Do(func() {
			logger.Default().Warn("%s not found in ~/.ssh/config; entries after the Match block on line %d are ignored", host, matchLine)
		})
	}
	return ep
}

// loadSSHConfig decodes the config at path. ssh_config can't parse Match
// blocks, so decoding stops at the first one; its line number is returned
// (0 when there is none).
func loadSSHConfig(path string) (*ssh_config.Config, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	var kept bytes.Buffer
	matchLine := 0
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.EqualFold(fields[0], "match") {
			matchLine = n
			break
		}
		kept.WriteString(line)
		kept.WriteByte('\n')
	}

	cfg, err := ssh_config.Decode(&kept)
	if err != nil {
		return nil, matchLine, err
	}
	return cfg, matchLine, nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}
