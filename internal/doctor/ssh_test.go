package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKey(t *testing.T, home, name string, perm os.FileMode) {
	t.Helper()
	dir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("key"), perm))
	require.NoError(t, os.Chmod(filepath.Join(dir, name), perm))
}

func TestSSHKeyCheck(t *testing.T) {
	home := t.TempDir()
	assert.Equal(t, StatusFail, (&SSHKeyCheck{Home: home}).Run().Status)

	writeKey(t, home, "id_rsa.pub", 0o644)
	result := (&SSHKeyCheck{Home: home}).Run()
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "id_rsa.pub")
}

func TestSSHKeyPermissionsCheck(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		result := (&SSHKeyPermissionsCheck{Home: t.TempDir()}).Run()
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "No private keys to check", result.Message)
	})

	t.Run("private key", func(t *testing.T) {
		home := t.TempDir()
		writeKey(t, home, "id_ed25519", 0o600)
		assert.Equal(t, StatusPass, (&SSHKeyPermissionsCheck{Home: home}).Run().Status)
	})

	t.Run("group readable key", func(t *testing.T) {
		home := t.TempDir()
		writeKey(t, home, "id_ed25519", 0o644)
		result := (&SSHKeyPermissionsCheck{Home: home}).Run()
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Message, "id_ed25519")
	})
}

func TestSSHAgentCheck(t *testing.T) {
	t.Run("no agent", func(t *testing.T) {
		t.Setenv("SSH_AUTH_SOCK", "")
		assert.Equal(t, StatusWarn, (&SSHAgentCheck{}).Run().Status)
	})

	t.Run("dead socket", func(t *testing.T) {
		result := (&SSHAgentCheck{Socket: filepath.Join(t.TempDir(), "agent.sock")}).Run()
		assert.Equal(t, StatusFail, result.Status)
	})
}
