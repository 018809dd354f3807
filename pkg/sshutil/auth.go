package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/rileyhilliard/rollout/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// EncryptedKeyError means a private key needs a passphrase we can't ask for.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key %s needs a passphrase", e.Path)
}

// authMethods collects agent and key-file auth for ep, agent first.
// Keys that need a passphrase are recorded on ep.lockedKeys.
func authMethods(ep *endpoint) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if a := agentAuth(); a != nil {
		methods = append(methods, a)
	}

	var signers []ssh.Signer
	for _, path := range candidateKeys(ep.identity) {
		signer, err := loadKey(path)
		if err != nil {
			var enc *EncryptedKeyError
			if stderrors.As(err, &enc) {
				ep.lockedKeys = append(ep.lockedKeys, path)
			}
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) > 0 {
		return methods, nil
	}
	if len(ep.lockedKeys) > 0 {
		return nil, errors.New(errors.ErrSSH,
			"Every SSH key found needs a passphrase: "+strings.Join(ep.lockedKeys, ", "),
			sshAddHint("Load them into ssh-agent first:", ep.lockedKeys))
	}
	return nil, errors.New(errors.ErrSSH,
		"No SSH keys or agent available",
		"Start ssh-agent and add a key: ssh-add ~/.ssh/id_ed25519")
}

// candidateKeys is the identity from ~/.ssh/config followed by the default
// key names, without duplicates.
func candidateKeys(identity string) []string {
	dir := filepath.Join(homeDir(), ".ssh")
	keys := []string{}
	if identity != "" {
		keys = append(keys, identity)
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		p := filepath.Join(dir, name)
		if p != identity {
			keys = append(keys, p)
		}
	}
	return keys
}

func loadKey(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if stderrors.As(err, &missing) || bytes.Contains(pem, []byte("ENCRYPTED")) {
		return nil, &EncryptedKeyError{Path: path}
	}
	return nil, err
}

var (
	agentOnce   sync.Once
	agentSocket net.Conn
	agentKeys   agent.ExtendedAgent
)

// agentAuth returns nil when no agent is running or it holds no keys; an
// empty agent listed first makes servers reject the later methods.
func agentAuth() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	agentOnce.Do(func() {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return
		}
		agentSocket = conn
		agentKeys = agent.NewClient(conn)
	})
	if agentKeys == nil {
		return nil
	}
	if signers, err := agentKeys.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentKeys.Signers)
}

// CloseAgent releases the shared ssh-agent connection.
func CloseAgent() {
	if agentSocket != nil {
		_ = agentSocket.Close()
	}
}

func homeDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func sshAddHint(header string, keys []string) string {
	add := "ssh-add"
	if runtime.GOOS == "darwin" {
		add = "ssh-add --apple-use-keychain"
	}
	lines := []string{header}
	for _, k := range keys {
		lines = append(lines, "  "+add+" "+k)
	}
	return strings.Join(lines, "\n")
}

func dialHint(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Nothing is listening on the SSH port. Is sshd running on the host?"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "The host isn't routable from here. Check VPN or network access."
	case strings.Contains(msg, "timeout"):
		return "The connection timed out. The host may be down or firewalled."
	case strings.Contains(msg, "no such host"):
		return "The hostname doesn't resolve. Check the hosts list in rollout.yaml."
	}
	return "Check that the host is reachable: ssh <host>"
}

func handshakeHint(err error, locked []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(locked) > 0 {
			return sshAddHint("Some keys need a passphrase. Load them into ssh-agent:", locked)
		}
		return "The server rejected every key offered. List loaded keys with: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key verification failed. Connect once by hand: ssh <host>"
	}
	return "Try connecting by hand to see the full error: ssh -v <host>"
}
