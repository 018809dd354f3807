package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	rtesting "github.com/rileyhilliard/rollout/internal/remote/testing"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostList(t *testing.T) {
	plainOutput(t)
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	require.NoError(t, hostList(&out, path))

	text := out.String()
	assert.Contains(t, text, "staging")
	assert.Contains(t, text, "production")
	assert.Contains(t, text, "├─ web1")
	assert.Contains(t, text, "└─ web2")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("staging")), bytes.Index(out.Bytes(), []byte("production")))
}

func TestHostList_EmptyEnvironment(t *testing.T) {
	plainOutput(t)
	path := writeConfig(t, "project: shop\nenvironments:\n  staging:\n    hosts: []\n")

	var out bytes.Buffer
	require.NoError(t, hostList(&out, path))
	assert.Contains(t, out.String(), "rollout hosts add staging <host>")
}

func TestHostAdd_SkipProbe(t *testing.T) {
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	err := hostAdd(&out, HostAddOptions{ConfigPath: path, Environment: "staging", Host: "web7", SkipProbe: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added web7 to staging")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web1", "web7"}, cfg.Environments["staging"].Hosts)
	assert.Equal(t, []string{"web1", "web2"}, cfg.Environments["production"].Hosts)
}

func TestHostAdd_ProbesWithEnvironmentUser(t *testing.T) {
	path := writeConfig(t, testConfig)
	dialer := rtesting.NewFakeDialer()
	client := dialer.AddHost("web7")

	err := hostAdd(&bytes.Buffer{}, HostAddOptions{ConfigPath: path, Environment: "staging", Host: "web7", Dialer: dialer.Dial})
	require.NoError(t, err)

	assert.Equal(t, []string{"shop@web7"}, dialer.Dialed)
	assert.True(t, client.Closed(), "probe connection should be closed")
}

func TestHostAdd_ProbeFailure(t *testing.T) {
	if isTerminal() {
		t.Skip("probe failure prompts on a terminal")
	}
	path := writeConfig(t, testConfig)
	dialer := rtesting.NewFakeDialer()
	dialer.AddFailingHost("web7", nil)

	err := hostAdd(&bytes.Buffer{}, HostAddOptions{ConfigPath: path, Environment: "staging", Host: "web7", Dialer: dialer.Dial})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web1"}, cfg.Environments["staging"].Hosts, "unreachable host must not be saved")
}

func TestHostAdd_Duplicate(t *testing.T) {
	path := writeConfig(t, testConfig)

	err := hostAdd(&bytes.Buffer{}, HostAddOptions{ConfigPath: path, Environment: "production", Host: "web2", SkipProbe: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has host 'web2'")
}

func TestHostAdd_UnknownEnvironment(t *testing.T) {
	path := writeConfig(t, testConfig)

	err := hostAdd(&bytes.Buffer{}, HostAddOptions{ConfigPath: path, Environment: "qa", Host: "web2", SkipProbe: true})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestHostRemove(t *testing.T) {
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	require.NoError(t, hostRemove(&out, path, "production", "web1"))
	assert.Contains(t, out.String(), "Removed web1 from production")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web2"}, cfg.Environments["production"].Hosts)
	assert.Equal(t, []string{"web1"}, cfg.Environments["staging"].Hosts)
}

func TestHostRemove_NotListed(t *testing.T) {
	path := writeConfig(t, testConfig)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = hostRemove(&bytes.Buffer{}, path, "staging", "web9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no host 'web9'")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCompleteHostAdd_Environments(t *testing.T) {
	out, directive := completeHostAdd(hostsAddCmd, nil, "")
	assert.Equal(t, config.KnownEnvironments, out)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	out, _ = completeHostAdd(hostsAddCmd, []string{"staging", "web1"}, "")
	assert.Empty(t, out)
}
