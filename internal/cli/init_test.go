package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearInitEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ROLLOUT_PROJECT", "ROLLOUT_REPOSITORY", "ROLLOUT_STAGING_HOSTS",
		"ROLLOUT_PRODUCTION_HOSTS", "ROLLOUT_NON_INTERACTIVE", "CI",
	} {
		t.Setenv(key, "")
	}
}

func TestGetInitDefaults(t *testing.T) {
	clearInitEnv(t)

	t.Run("empty environment", func(t *testing.T) {
		defaults := getInitDefaults()
		assert.Empty(t, defaults.Project)
		assert.Empty(t, defaults.Repository)
		assert.False(t, defaults.NonInteractive)
	})

	t.Run("reads ROLLOUT variables", func(t *testing.T) {
		t.Setenv("ROLLOUT_PROJECT", "shop")
		t.Setenv("ROLLOUT_REPOSITORY", "git@github.com:acme/shop.git")
		t.Setenv("ROLLOUT_STAGING_HOSTS", "stage1")
		t.Setenv("ROLLOUT_PRODUCTION_HOSTS", "web1,web2")
		t.Setenv("ROLLOUT_NON_INTERACTIVE", "true")

		defaults := getInitDefaults()
		assert.Equal(t, "shop", defaults.Project)
		assert.Equal(t, "git@github.com:acme/shop.git", defaults.Repository)
		assert.Equal(t, "stage1", defaults.StagingHosts)
		assert.Equal(t, "web1,web2", defaults.ProductionHosts)
		assert.True(t, defaults.NonInteractive)
	})

	t.Run("CI implies non-interactive", func(t *testing.T) {
		t.Setenv("CI", "1")
		assert.True(t, getInitDefaults().NonInteractive)
	})
}

func TestMergeInitOptions(t *testing.T) {
	clearInitEnv(t)
	t.Setenv("ROLLOUT_PROJECT", "from-env")
	t.Setenv("ROLLOUT_STAGING_HOSTS", "stage-env")

	merged := mergeInitOptions(InitOptions{Project: "from-flag"})
	assert.Equal(t, "from-flag", merged.Project, "flags win over env")
	assert.Equal(t, "stage-env", merged.StagingHosts, "env fills empty flags")
	assert.False(t, merged.NonInteractive)
}

func TestInit_NonInteractiveWritesConfig(t *testing.T) {
	clearInitEnv(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := Init(&out, InitOptions{
		Project:         "shop",
		Repository:      "git@github.com:acme/shop.git",
		StagingHosts:    "stage1",
		ProductionHosts: "web1, web2",
		Dir:             dir,
		NonInteractive:  true,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created")
	assert.Contains(t, out.String(), "rollout staging bootstrap")

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	assert.Equal(t, "shop", cfg.Project)
	assert.Equal(t, "/home/shop", cfg.Home)
	assert.Equal(t, "git clone git@github.com:acme/shop.git", cfg.CloneCommand)
	assert.Equal(t, []string{"stage1"}, cfg.Environments[config.Staging].Hosts)
	assert.Equal(t, []string{"web1", "web2"}, cfg.Environments[config.Production].Hosts)
	assert.Equal(t, "develop", cfg.Environments[config.Staging].Branch)
	assert.Equal(t, "master", cfg.Environments[config.Production].Branch)
}

func TestInit_ProjectDefaultsToDirectoryName(t *testing.T) {
	clearInitEnv(t)
	dir := filepath.Join(t.TempDir(), "storefront")
	require.NoError(t, os.Mkdir(dir, 0o755))

	require.NoError(t, Init(&bytes.Buffer{}, InitOptions{Dir: dir, NonInteractive: true}))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "storefront", cfg.Project)
	assert.Empty(t, cfg.Environments[config.Staging].Hosts)
}

func TestInit_EnvironmentFillsOptions(t *testing.T) {
	clearInitEnv(t)
	t.Setenv("ROLLOUT_PROJECT", "blog")
	t.Setenv("ROLLOUT_PRODUCTION_HOSTS", "web9")
	dir := t.TempDir()

	require.NoError(t, Init(&bytes.Buffer{}, InitOptions{Dir: dir, NonInteractive: true}))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "blog", cfg.Project)
	assert.Equal(t, []string{"web9"}, cfg.Environments[config.Production].Hosts)
}

func TestInit_ExistingConfig(t *testing.T) {
	clearInitEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("project: old\n"), 0o644))

	t.Run("non-interactive refuses", func(t *testing.T) {
		err := Init(&bytes.Buffer{}, InitOptions{Project: "shop", Dir: dir, NonInteractive: true})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
		assert.Contains(t, err.Error(), "--force")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "project: old\n", string(data))
	})

	t.Run("force overwrites", func(t *testing.T) {
		err := Init(&bytes.Buffer{}, InitOptions{Project: "shop", Dir: dir, NonInteractive: true, Overwrite: true})
		require.NoError(t, err)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "shop", cfg.Project)
	})
}

func TestInit_InvalidInput(t *testing.T) {
	clearInitEnv(t)

	tests := []struct {
		name string
		opts InitOptions
	}{
		{"bad project name", InitOptions{Project: "my shop"}},
		{"duplicate host", InitOptions{Project: "shop", StagingHosts: "web1,web1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.opts.Dir = dir
			tt.opts.NonInteractive = true

			err := Init(&bytes.Buffer{}, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileName))
		})
	}
}
