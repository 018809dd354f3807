package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyMismatchError is a known_hosts entry that disagrees with the key
// the server presented.
type HostKeyMismatchError struct {
	Hostname   string
	Received   string
	KnownHosts string
	Want       []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("Host key for %s changed (server sent %s)", e.Hostname, e.Received)
}

// Suggestion explains how to replace the stale entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, fmt.Sprintf("%s (line %d)", k.Key.Type(), k.Line))
	}
	return fmt.Sprintf("%s has %s for this host.\n"+
		"If the server was rebuilt, drop the old entry and reconnect once by hand:\n"+
		"  ssh-keygen -R %s\n"+
		"  ssh %s",
		e.KnownHosts, strings.Join(known, ", "), host, host)
}

// hostKeyCallback verifies against known_hosts, creating an empty file the
// first time. Mismatches come back as *HostKeyMismatchError.
func hostKeyCallback(opts DialOptions) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opted out in rollout.yaml
	}

	path := opts.KnownHosts
	if path == "" {
		path = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	if err := ensureFile(path); err != nil {
		return nil, err
	}

	verify, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:   hostname,
				Received:   key.Type(),
				KnownHosts: path,
				Want:       keyErr.Want,
			}
		}
		return err
	}, nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, nil, 0o600)
}
