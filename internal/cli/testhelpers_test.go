package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

const testConfig = `version: 1
project: shop
repository: git@github.com:acme/shop.git
ssh:
  timeout: 5s
environments:
  staging:
    hosts:
      - web1
  production:
    hosts:
      - web1
      - web2
`

// writeConfig writes content to a rollout.yaml in a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func plainOutput(t *testing.T) {
	t.Helper()
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
	lipgloss.SetColorProfile(termenv.Ascii)
}

// newTestRoot creates a bare root command so tests don't touch rootCmd.
func newTestRoot() *cobra.Command {
	return &cobra.Command{Use: "rollout"}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
