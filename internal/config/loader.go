package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "rollout.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/rollout"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from the specified path, merges defaults and fills in
// the values that derive from the project name.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'rollout init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. rollout.yaml in current directory
// 3. rollout.yaml in parent directories (stops at git root or home)
// 4. ~/.config/rollout/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home := localHome()
	dir := cwd
	for !isGitRoot(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			// Don't go above home directory
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// FindAndLoad locates and loads the config. Unlike Find, a missing file
// is an error, since every deploy needs a project name.
func FindAndLoad(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", errors.New(errors.ErrConfig,
			"No "+ConfigFileName+" found",
			"Run 'rollout init' to create one, or point at it with --config")
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Environment returns the named environment's supplied fields.
func (c *Config) Environment(name string) (EnvironmentConfig, error) {
	envCfg, ok := c.Environments[name]
	if !ok {
		return EnvironmentConfig{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Environment '%s' isn't configured", name),
			"Available environments: "+strings.Join(c.EnvironmentNames(), ", "))
	}
	return envCfg, nil
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	// Only the environments the file declares replace the defaults.
	if v.IsSet("environments") {
		cfg.Environments = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	applyDerivedDefaults(cfg)
	return cfg, nil
}

// setDefaults registers the defaults viper can't infer from zero values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", CurrentConfigVersion)
	v.SetDefault("nginx_root", "/etc/nginx/sites-enabled/")
	v.SetDefault("supervisord_root", "/etc/supervisord/conf.d/")
	v.SetDefault("ssh.timeout", "10s")
	v.SetDefault("ssh.strict_host_key_checking", true)
	v.SetDefault("cache.task_result_db", 1)
	v.SetDefault("cache.flush_mode", FlushModeCLI)
	v.SetDefault("database.credentials_file", "~/.config/rollout/database.yaml")
	v.SetDefault("database.superuser", "postgres")
}

// applyDerivedDefaults fills in values that depend on other fields.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Home == "" && cfg.Project != "" {
		cfg.Home = "/home/${PROJECT}"
	}
	cfg.Home = ExpandProject(cfg.Home, cfg.Project)

	if cfg.CloneCommand == "" && cfg.Repository != "" {
		cfg.CloneCommand = "git clone " + cfg.Repository
	}

	cfg.Database.CredentialsFile = ExpandTilde(ExpandProject(cfg.Database.CredentialsFile, cfg.Project))

	if len(cfg.Environments) == 0 {
		cfg.Environments = DefaultConfig().Environments
	}
	for name, envCfg := range cfg.Environments {
		envCfg.Name = name
		if envCfg.User == "" {
			envCfg.User = cfg.Project
		}
		if envCfg.Branch == "" {
			envCfg.Branch = DefaultBranch(name)
		}
		if envCfg.CachePort == 0 {
			envCfg.CachePort = DefaultCachePort
		}
		cfg.Environments[name] = envCfg
	}
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}
