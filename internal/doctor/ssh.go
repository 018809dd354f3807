package doctor

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh/agent"
)

var keyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// privateKeyPaths lists the default private key locations under home/.ssh.
func privateKeyPaths(home string) []string {
	paths := make([]string, len(keyNames))
	for i, name := range keyNames {
		paths[i] = filepath.Join(home, ".ssh", name)
	}
	return paths
}

// SSHKeyCheck verifies a default SSH key exists.
type SSHKeyCheck struct {
	Home string // Empty means the current user's home
}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return CategorySSH }

func (c *SSHKeyCheck) Run() CheckResult {
	home, err := resolveHome(c.Home)
	if err != nil {
		return fail(c.Name(), "Cannot determine home directory", "Check the HOME environment variable")
	}

	for _, keyPath := range privateKeyPaths(home) {
		if _, err := os.Stat(keyPath + ".pub"); err == nil {
			return pass(c.Name(), fmt.Sprintf("SSH key found: ~/.ssh/%s.pub", filepath.Base(keyPath)))
		}
	}
	return fail(c.Name(), "No SSH key found", "Generate a key with: ssh-keygen -t ed25519")
}

// SSHKeyPermissionsCheck verifies private keys aren't readable by others.
type SSHKeyPermissionsCheck struct {
	Home string
}

func (c *SSHKeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *SSHKeyPermissionsCheck) Category() string { return CategorySSH }

func (c *SSHKeyPermissionsCheck) Run() CheckResult {
	home, err := resolveHome(c.Home)
	if err != nil {
		return pass(c.Name(), "Key permissions not checked")
	}

	var badPerms []string
	found := false
	for _, keyPath := range privateKeyPaths(home) {
		info, err := os.Stat(keyPath)
		if err != nil {
			continue
		}
		found = true
		if info.Mode().Perm()&0o077 != 0 {
			badPerms = append(badPerms, filepath.Base(keyPath))
		}
	}

	if !found {
		return pass(c.Name(), "No private keys to check")
	}
	if len(badPerms) > 0 {
		return warn(c.Name(), fmt.Sprintf("Insecure permissions on: %v", badPerms),
			"Fix: chmod 600 ~/.ssh/<keyfile>")
	}
	return pass(c.Name(), "SSH key permissions OK")
}

// SSHAgentCheck verifies the SSH agent is reachable and holds keys.
type SSHAgentCheck struct {
	Socket string // Empty means $SSH_AUTH_SOCK
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run() CheckResult {
	socket := c.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return warn(c.Name(), "SSH agent not running",
			"Key files are used directly. To use an agent: eval $(ssh-agent) && ssh-add")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return fail(c.Name(), "SSH agent socket not accessible",
			"Fix: eval $(ssh-agent) && ssh-add")
	}
	defer conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("Cannot query SSH agent: %v", err), "Check SSH agent: ssh-add -l")
	}
	if len(keys) == 0 {
		return warn(c.Name(), "SSH agent running but no keys loaded", "Add a key with: ssh-add")
	}
	return pass(c.Name(), fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))))
}

func resolveHome(home string) (string, error) {
	if home != "" {
		return home, nil
	}
	return homedir.Dir()
}

// NewSSHChecks creates the local SSH checks.
func NewSSHChecks() []Check {
	return []Check{
		&SSHKeyCheck{},
		&SSHKeyPermissionsCheck{},
		&SSHAgentCheck{},
	}
}
