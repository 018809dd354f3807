package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasks(t *testing.T) {
	plainOutput(t)

	var out bytes.Buffer
	require.NoError(t, listTasks(&out, tasks.Default()))

	text := out.String()
	for _, name := range tasks.Default().Names() {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, "TASK")
	assert.Contains(t, text, "NEEDS")
	assert.Contains(t, text, "rollout <staging|production> <task>")
	assert.Less(t, strings.Index(text, "bootstrap"), strings.Index(text, "create_db"), "registry order is kept")
}

func TestShowPlan(t *testing.T) {
	plainOutput(t)

	var out bytes.Buffer
	require.NoError(t, showPlan(&out, tasks.Default(), "deploy"))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "deploy")

	text := out.String()
	for _, step := range []string{"checkout", "migrate", "collect_static", "restart"} {
		assert.Contains(t, text, "  ")
		assert.Contains(t, text, step)
	}
	assert.Less(t, strings.Index(text, "checkout"), strings.Index(text, "collect_static"))
}

func TestShowPlan_Notes(t *testing.T) {
	plainOutput(t)

	var out bytes.Buffer
	require.NoError(t, showPlan(&out, tasks.Default(), "update_nginx"))
	assert.Contains(t, out.String(), "? nginx config absent")
}

func TestShowPlan_UnknownTask(t *testing.T) {
	err := showPlan(&bytes.Buffer{}, tasks.Default(), "deplyo")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "deploy")
}

func TestShowEnvironment(t *testing.T) {
	plainOutput(t)
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	require.NoError(t, showEnvironment(&out, path, "staging", nil))

	text := out.String()
	assert.Contains(t, text, "/home/shop/www/staging")
	assert.Contains(t, text, "shop.settings_staging")
	assert.Contains(t, text, "git checkout develop && git pull")
	assert.Contains(t, text, "web1:22")
	assert.Contains(t, text, "SUDO LOGIN")
}

func TestShowEnvironment_HostOverride(t *testing.T) {
	plainOutput(t)
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, testConfig)

	var out bytes.Buffer
	require.NoError(t, showEnvironment(&out, path, "production", []string{"web9"}))

	text := out.String()
	assert.Contains(t, text, "web9")
	assert.Contains(t, text, "git checkout master && git pull")
	assert.NotContains(t, text, "web2:22")
}

func TestShowEnvironment_NoHosts(t *testing.T) {
	plainOutput(t)
	path := writeConfig(t, "project: shop\nenvironments:\n  staging:\n    hosts: []\n")

	var out bytes.Buffer
	require.NoError(t, showEnvironment(&out, path, "staging", nil))
	assert.Contains(t, out.String(), "no hosts configured")
}

func TestShowEnvironment_UnknownEnvironment(t *testing.T) {
	path := writeConfig(t, testConfig)

	err := showEnvironment(&bytes.Buffer{}, path, "qa", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
