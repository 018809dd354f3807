package doctor

import (
	"fmt"
	"path/filepath"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/credentials"
)

// ConfigFileCheck verifies that a config file can be found.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run() CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("Error finding config: %v", err),
			"Check the --config path or run 'rollout init'")
	}
	if path == "" {
		return fail(c.Name(), "No "+config.ConfigFileName+" found",
			"Run 'rollout init' to create one")
	}
	return pass(c.Name(), fmt.Sprintf("Config file: %s", filepath.Base(path)))
}

// ConfigSchemaCheck loads and validates the config. Cfg is the loaded
// config, or nil when loading failed with LoadErr.
type ConfigSchemaCheck struct {
	Cfg     *config.Config
	LoadErr error
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run() CheckResult {
	if c.LoadErr != nil {
		return fail(c.Name(), fmt.Sprintf("Failed to load config: %v", c.LoadErr),
			"Check the YAML syntax in "+config.ConfigFileName)
	}
	if c.Cfg == nil {
		return fail(c.Name(), "Cannot validate: no config file", "")
	}
	if err := config.Validate(c.Cfg); err != nil {
		return fail(c.Name(), fmt.Sprintf("Config error: %v", err), "")
	}
	return pass(c.Name(), fmt.Sprintf("Project '%s' config valid", c.Cfg.Project))
}

// EnvironmentHostsCheck verifies an environment has hosts to deploy to.
type EnvironmentHostsCheck struct {
	Environment string
	Env         config.EnvironmentConfig
}

func (c *EnvironmentHostsCheck) Name() string     { return "hosts_" + c.Environment }
func (c *EnvironmentHostsCheck) Category() string { return CategoryConfig }

func (c *EnvironmentHostsCheck) Run() CheckResult {
	n := len(c.Env.Hosts)
	if n == 0 {
		return fail(c.Name(), fmt.Sprintf("%s has no hosts", c.Environment),
			fmt.Sprintf("Add one with: rollout hosts add %s <host>", c.Environment))
	}
	return pass(c.Name(), fmt.Sprintf("%s: %d host%s, branch %s", c.Environment, n, pluralize(n), c.Env.Branch))
}

// CredentialsCheck verifies create_db can read database credentials for
// the environment. A missing file is only a warning, since most runs
// never create a database.
type CredentialsCheck struct {
	Path        string
	Environment string
	Load        func(path, environment string) (*credentials.Credentials, error)
}

func (c *CredentialsCheck) Name() string     { return "credentials_" + c.Environment }
func (c *CredentialsCheck) Category() string { return CategoryConfig }

func (c *CredentialsCheck) Run() CheckResult {
	load := c.Load
	if load == nil {
		load = credentials.Load
	}
	creds, err := load(c.Path, c.Environment)
	if err != nil {
		return warn(c.Name(), fmt.Sprintf("Database credentials for %s unavailable", c.Environment),
			fmt.Sprintf("create_db needs %s: %v", c.Path, firstLine(err.Error())))
	}
	return pass(c.Name(), fmt.Sprintf("Database credentials for %s: user %s, database %s",
		c.Environment, creds.User, creds.Name))
}

// NewConfigChecks creates the config checks for every environment in cfg.
func NewConfigChecks(configPath string, cfg *config.Config, loadErr error) []Check {
	checks := []Check{
		&ConfigFileCheck{ConfigPath: configPath},
		&ConfigSchemaCheck{Cfg: cfg, LoadErr: loadErr},
	}
	if cfg == nil {
		return checks
	}
	for _, name := range cfg.EnvironmentNames() {
		checks = append(checks, &EnvironmentHostsCheck{Environment: name, Env: cfg.Environments[name]})
	}
	for _, name := range cfg.EnvironmentNames() {
		checks = append(checks, &CredentialsCheck{Path: cfg.Database.CredentialsFile, Environment: name})
	}
	return checks
}
