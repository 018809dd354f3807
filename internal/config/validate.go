package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rileyhilliard/rollout/internal/errors"
)

// ReservedNames are command names that cannot be used as environment names.
var ReservedNames = map[string]bool{
	"tasks":      true,
	"plan":       true,
	"show":       true,
	"init":       true,
	"hosts":      true,
	"doctor":     true,
	"help":       true,
	"version":    true,
	"completion": true,
}

var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks the project config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but rollout only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest rollout release.")
	}

	if cfg.Project == "" {
		return errors.New(errors.ErrConfig,
			"No project name set",
			"Add 'project: <name>' to "+ConfigFileName+".")
	}
	if !projectNamePattern.MatchString(cfg.Project) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Project name '%s' has characters that don't belong in a path", cfg.Project),
			"Stick to letters, digits, '.', '_' and '-'.")
	}

	if err := validateRemotePath("home", cfg.Home); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Set 'home' to an absolute path like /home/"+cfg.Project+".")
	}
	for field, value := range map[string]string{"nginx_root": cfg.NginxRoot, "supervisord_root": cfg.SupervisordRoot} {
		if err := validateRemotePath(field, value); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the '"+field+"' setting in "+ConfigFileName+".")
		}
	}

	if err := validateCloneCommand(cfg.CloneCommand); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Set 'repository', or give 'clone_command' as e.g. 'git clone git@host:org/repo.git'.")
	}

	if cfg.SSH.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			"ssh.timeout can't be negative",
			"Use a duration like 10s.")
	}

	for _, name := range cfg.EnvironmentNames() {
		if err := validateEnvironment(name, cfg.Environments[name]); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'environments' section in "+ConfigFileName+".")
		}
	}

	if err := validateCache(cfg.Cache); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'cache' section in "+ConfigFileName+".")
	}

	return nil
}

// validateEnvironment checks a single environment's supplied fields.
func validateEnvironment(name string, env EnvironmentConfig) error {
	if ReservedNames[name] {
		return fmt.Errorf("can't use '%s' as an environment name, that's a built-in command", name)
	}
	if !isKnownEnvironment(name) {
		return fmt.Errorf("environment '%s' isn't supported, use %s", name, strings.Join(KnownEnvironments, " or "))
	}

	if env.User == "" {
		return fmt.Errorf("environment '%s' needs a 'user' to log in as", name)
	}

	for i, host := range env.Hosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("environment '%s' has an empty host at position %d", name, i)
		}
		if strings.ContainsAny(host, " \t") {
			return fmt.Errorf("environment '%s' host '%s' contains whitespace", name, host)
		}
	}

	if env.Branch == "" || strings.ContainsAny(env.Branch, " \t;&|") {
		return fmt.Errorf("environment '%s' branch '%s' isn't a usable git branch name", name, env.Branch)
	}

	if env.CachePort < 1 || env.CachePort > 65535 {
		return fmt.Errorf("environment '%s' cache_port %d is out of range (1-65535)", name, env.CachePort)
	}

	return nil
}

// validateCache checks the cache flush settings.
func validateCache(c CacheConfig) error {
	if c.TaskResultDB < 0 {
		return fmt.Errorf("cache.task_result_db can't be negative")
	}
	if c.FlushMode != FlushModeCLI && c.FlushMode != FlushModeTunnel {
		return fmt.Errorf("cache.flush_mode '%s' isn't valid, use '%s' or '%s'", c.FlushMode, FlushModeCLI, FlushModeTunnel)
	}
	return nil
}

// validateRemotePath checks remote directories are absolute and free of
// unexpanded variables.
func validateRemotePath(field, path string) error {
	if strings.Contains(path, "${") {
		return fmt.Errorf("'%s' has an unexpanded variable: %s", field, path)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("'%s' needs to be an absolute path, got '%s'", field, path)
	}
	if strings.ContainsAny(path, " \t'\"") {
		return fmt.Errorf("'%s' contains whitespace or quotes: %s", field, path)
	}
	return nil
}

// validateCloneCommand checks the clone prefix parses as shell words.
// An empty command passes here; checkout refuses to clone without one.
func validateCloneCommand(cmd string) error {
	if cmd == "" {
		return nil
	}
	words, err := shellwords.Parse(cmd)
	if err != nil {
		return fmt.Errorf("clone_command doesn't parse: %v", err)
	}
	if len(words) == 0 {
		return fmt.Errorf("clone_command is blank")
	}
	return nil
}

// IsReservedName returns true if the name is a built-in command.
func IsReservedName(name string) bool {
	return ReservedNames[name]
}
