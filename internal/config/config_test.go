package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// setHome points HOME at a temp dir and stops go-homedir from caching it.
func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "/etc/nginx/sites-enabled/", cfg.NginxRoot)
	assert.Equal(t, "/etc/supervisord/conf.d/", cfg.SupervisordRoot)
	assert.Equal(t, 10*time.Second, cfg.SSH.Timeout)
	assert.True(t, cfg.SSH.StrictHostKeyChecking)
	assert.Equal(t, 1, cfg.Cache.TaskResultDB)
	assert.Equal(t, FlushModeCLI, cfg.Cache.FlushMode)
	assert.Equal(t, "postgres", cfg.Database.Superuser)
	assert.Equal(t, []string{Staging, Production}, cfg.EnvironmentNames())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: 1
project: django-template
repository: git@github.com:acme/django-template.git
sudo_user: sudouser
ssh:
  timeout: 5s
environments:
  staging:
    hosts: [stage1.example.com]
  production:
    user: deploy
    hosts:
      - web1.example.com
      - web2.example.com
    cache_port: 6380
cache:
  flush_mode: tunnel
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "django-template", cfg.Project)
	assert.Equal(t, "/home/django-template", cfg.Home)
	assert.Equal(t, "git clone git@github.com:acme/django-template.git", cfg.CloneCommand)
	assert.Equal(t, "sudouser", cfg.SudoUser)
	assert.Equal(t, 5*time.Second, cfg.SSH.Timeout)
	assert.True(t, cfg.SSH.StrictHostKeyChecking)
	assert.Equal(t, "/etc/nginx/sites-enabled/", cfg.NginxRoot)
	assert.Equal(t, 1, cfg.Cache.TaskResultDB)
	assert.Equal(t, FlushModeTunnel, cfg.Cache.FlushMode)

	staging, err := cfg.Environment(Staging)
	require.NoError(t, err)
	assert.Equal(t, Staging, staging.Name)
	assert.Equal(t, "django-template", staging.User)
	assert.Equal(t, "develop", staging.Branch)
	assert.Equal(t, 6379, staging.CachePort)
	assert.Equal(t, []string{"stage1.example.com"}, staging.Hosts)

	prod, err := cfg.Environment(Production)
	require.NoError(t, err)
	assert.Equal(t, "deploy", prod.User)
	assert.Equal(t, "master", prod.Branch)
	assert.Equal(t, 6380, prod.CachePort)
	assert.Equal(t, []string{"web1.example.com", "web2.example.com"}, prod.Hosts)
}

func TestLoad_DeclaredEnvironmentsOnly(t *testing.T) {
	path := writeConfig(t, "project: app\nenvironments:\n  staging:\n    hosts: [s1]\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{Staging}, cfg.EnvironmentNames())
	_, err = cfg.Environment(Production)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Available environments: staging")
}

func TestLoad_NoEnvironmentsGetsBoth(t *testing.T) {
	path := writeConfig(t, "project: app\nhome: /srv/${PROJECT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/app", cfg.Home)
	assert.Equal(t, []string{Staging, Production}, cfg.EnvironmentNames())
	prod, err := cfg.Environment(Production)
	require.NoError(t, err)
	assert.Empty(t, prod.Hosts)
	assert.Equal(t, "app", prod.User)
}

func TestLoad_CredentialsFileExpanded(t *testing.T) {
	home := setHome(t)
	path := writeConfig(t, "project: app\ndatabase:\n  credentials_file: ~/secrets/${PROJECT}.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "secrets", "app.yaml"), cfg.Database.CredentialsFile)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/rollout.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config file not found")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "project: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	t.Run("explicit path exists", func(t *testing.T) {
		path := writeConfig(t, "project: app")
		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path not found", func(t *testing.T) {
		_, err := Find("/nonexistent/config.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("current directory", func(t *testing.T) {
		path := writeConfig(t, "project: app")
		t.Chdir(filepath.Dir(path))

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(got))
	})

	t.Run("parent directory", func(t *testing.T) {
		root, err := filepath.EvalSymlinks(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("project: app"), 0644))
		child := filepath.Join(root, "web", "static")
		require.NoError(t, os.MkdirAll(child, 0755))
		t.Chdir(child)

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, ConfigFileName), got)
	})

	t.Run("stops at git root", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("project: app"), 0644))
		repo := filepath.Join(root, "repo")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
		setHome(t)
		t.Chdir(repo)

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFindAndLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	setHome(t)
	t.Chdir(dir)

	_, _, err := FindAndLoad("")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "rollout init")
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Project = "app"
	applyDerivedDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(cfg *Config) {}, ""},
		{"future version", func(cfg *Config) { cfg.Version = 99 }, "from the future"},
		{"missing project", func(cfg *Config) { cfg.Project = "" }, "No project name"},
		{"bad project", func(cfg *Config) { cfg.Project = "my app" }, "don't belong in a path"},
		{"relative home", func(cfg *Config) { cfg.Home = "home/app" }, "absolute path"},
		{"unexpanded home", func(cfg *Config) { cfg.Home = "/home/${NOPE}" }, "unexpanded variable"},
		{"unbalanced clone", func(cfg *Config) { cfg.CloneCommand = "git clone 'oops" }, "clone_command"},
		{"negative timeout", func(cfg *Config) { cfg.SSH.Timeout = -time.Second }, "ssh.timeout"},
		{"unknown environment", func(cfg *Config) {
			cfg.Environments["qa"] = EnvironmentConfig{Name: "qa", User: "app", Branch: "qa", CachePort: 6379}
		}, "isn't supported"},
		{"reserved environment", func(cfg *Config) {
			cfg.Environments["plan"] = EnvironmentConfig{Name: "plan", User: "app", Branch: "x", CachePort: 6379}
		}, "built-in command"},
		{"port out of range", func(cfg *Config) {
			e := cfg.Environments[Staging]
			e.CachePort = 70000
			cfg.Environments[Staging] = e
		}, "out of range"},
		{"empty host", func(cfg *Config) {
			e := cfg.Environments[Staging]
			e.Hosts = []string{"web1", " "}
			cfg.Environments[Staging] = e
		}, "empty host at position 1"},
		{"bad branch", func(cfg *Config) {
			e := cfg.Environments[Production]
			e.Branch = "master; rm -rf /"
			cfg.Environments[Production] = e
		}, "usable git branch"},
		{"flush mode", func(cfg *Config) { cfg.Cache.FlushMode = "telnet" }, "flush_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsReservedName(t *testing.T) {
	assert.True(t, IsReservedName("tasks"))
	assert.True(t, IsReservedName("version"))
	assert.False(t, IsReservedName("staging"))
}

func TestDefaultBranch(t *testing.T) {
	assert.Equal(t, "master", DefaultBranch(Production))
	assert.Equal(t, "develop", DefaultBranch(Staging))
}

func TestExpandProject(t *testing.T) {
	t.Setenv("USER", "alice")
	assert.Equal(t, "/home/app", ExpandProject("/home/${PROJECT}", "app"))
	assert.Equal(t, "/srv/alice/app", ExpandProject("/srv/${USER}/${PROJECT}", "app"))
	assert.Equal(t, "", ExpandProject("", "app"))
}
