package config

import (
	"sort"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Environment names a deploy can target.
const (
	Staging    = "staging"
	Production = "production"
)

// KnownEnvironments lists the environments in the order they're shown.
var KnownEnvironments = []string{Staging, Production}

// Cache flush modes for restart_celeryd.
const (
	FlushModeCLI    = "cli"
	FlushModeTunnel = "tunnel"
)

// Config represents the complete rollout.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Project is the fixed project name. It names the code directory,
	// the settings module and the supervisor programs.
	Project string `yaml:"project" mapstructure:"project"`

	// Home is the deploy user's home directory on the remote hosts.
	// Supports ${PROJECT}.
	Home string `yaml:"home,omitempty" mapstructure:"home"`

	// Repository is the git URL the default clone command uses.
	Repository string `yaml:"repository,omitempty" mapstructure:"repository"`

	// CloneCommand is the clone prefix; the code root is appended.
	CloneCommand string `yaml:"clone_command,omitempty" mapstructure:"clone_command"`

	// SudoUser is the login used for escalated commands. Empty reuses
	// the environment user.
	SudoUser string `yaml:"sudo_user,omitempty" mapstructure:"sudo_user"`

	NginxRoot       string `yaml:"nginx_root" mapstructure:"nginx_root"`
	SupervisordRoot string `yaml:"supervisord_root" mapstructure:"supervisord_root"`

	SSH          SSHConfig                    `yaml:"ssh" mapstructure:"ssh"`
	Environments map[string]EnvironmentConfig `yaml:"environments" mapstructure:"environments"`
	Cache        CacheConfig                  `yaml:"cache" mapstructure:"cache"`
	Database     DatabaseConfig               `yaml:"database" mapstructure:"database"`
}

// SSHConfig controls how hosts are dialed.
type SSHConfig struct {
	Timeout               time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StrictHostKeyChecking bool          `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
}

// EnvironmentConfig holds the operator-supplied fields for one environment.
type EnvironmentConfig struct {
	// Name is filled in from the map key.
	Name string `yaml:"-" mapstructure:"-"`

	// User is the SSH login for non-escalated commands.
	User string `yaml:"user" mapstructure:"user"`

	// Hosts are the targets, visited in this order.
	// Can be: hostname, user@hostname, or SSH config alias.
	Hosts []string `yaml:"hosts" mapstructure:"hosts"`

	// Branch is checked out and pulled on deploy.
	Branch string `yaml:"branch" mapstructure:"branch"`

	// CachePort is the redis port on the remote hosts.
	CachePort int `yaml:"cache_port" mapstructure:"cache_port"`
}

// CacheConfig controls the cache flush before celeryd restarts.
type CacheConfig struct {
	// TaskResultDB is the redis db index holding task results.
	TaskResultDB int `yaml:"task_result_db" mapstructure:"task_result_db"`

	// FlushMode is "cli" (remote redis-cli) or "tunnel" (redis protocol
	// over the SSH connection).
	FlushMode string `yaml:"flush_mode" mapstructure:"flush_mode"`
}

// DatabaseConfig points create_db at the credentials it needs.
type DatabaseConfig struct {
	// CredentialsFile is a local YAML/JSON/TOML file with database credentials.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`

	// Superuser is the OS user that owns the database server.
	Superuser string `yaml:"superuser" mapstructure:"superuser"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentConfigVersion,
		NginxRoot:       "/etc/nginx/sites-enabled/",
		SupervisordRoot: "/etc/supervisord/conf.d/",
		SSH: SSHConfig{
			Timeout:               10 * time.Second,
			StrictHostKeyChecking: true,
		},
		Environments: map[string]EnvironmentConfig{
			Staging:    {Name: Staging},
			Production: {Name: Production},
		},
		Cache: CacheConfig{
			TaskResultDB: 1,
			FlushMode:    FlushModeCLI,
		},
		Database: DatabaseConfig{
			CredentialsFile: "~/.config/rollout/database.yaml",
			Superuser:       "postgres",
		},
	}
}

// DefaultBranch returns the branch an environment deploys when none is set.
func DefaultBranch(environment string) string {
	if environment == Production {
		return "master"
	}
	return "develop"
}

// DefaultCachePort is the redis port used when an environment sets none.
const DefaultCachePort = 6379

// EnvironmentNames returns the configured environment names, known ones
// first in their usual order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for _, known := range KnownEnvironments {
		if _, ok := c.Environments[known]; ok {
			names = append(names, known)
		}
	}
	var rest []string
	for name := range c.Environments {
		if !isKnownEnvironment(name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func isKnownEnvironment(name string) bool {
	for _, known := range KnownEnvironments {
		if name == known {
			return true
		}
	}
	return false
}
