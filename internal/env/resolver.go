// Package env resolves an environment selection into the full set of
// remote paths, names and commands the deploy tasks use.
//
// An Environment is immutable. The only way to change a supplied field
// is WithHosts, which re-derives everything from scratch.
package env

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
)

// Symbolic keys. Supplied and fixed fields first, then derived ones.
const (
	KeyProject               = "project"
	KeyHome                  = "home"
	KeyUser                  = "user"
	KeyEnvironment           = "environment"
	KeyHosts                 = "hosts"
	KeyBranchName            = "branch_name"
	KeyCachePort             = "cache_port"
	KeyRoot                  = "root"
	KeyVirtualenvsRoot       = "virtualenvs_root"
	KeyProjectVirtualenvRoot = "project_virtualenv_root"
	KeyVirtualenvActivate    = "virtualenv_activate"
	KeyCodeRoot              = "code_root"
	KeyWebRoot               = "web_root"
	KeySettingsFile          = "settings_file"
	KeyNginxConfPath         = "nginx_conf_path"
	KeySupervisordConfPath   = "supervisord_conf_path"
	KeyPipRequirementsPath   = "pip_requirements_path"
	KeyCheckoutCommand       = "checkout_command"
	KeyProjectRoot           = "project_root"
	KeyStaticAssetRoot       = "static_asset_root"
	KeyServiceName           = "service_name"
)

var keyOrder = []string{
	KeyProject, KeyHome, KeyUser, KeyEnvironment, KeyHosts, KeyBranchName, KeyCachePort,
	KeyRoot, KeyVirtualenvsRoot, KeyProjectVirtualenvRoot, KeyVirtualenvActivate,
	KeyCodeRoot, KeyWebRoot, KeySettingsFile, KeyNginxConfPath, KeySupervisordConfPath,
	KeyPipRequirementsPath, KeyCheckoutCommand, KeyProjectRoot, KeyStaticAssetRoot,
	KeyServiceName,
}

// Project holds the fields fixed per project.
type Project struct {
	Name string
	Home string
}

// Supplied holds the operator-chosen fields of one environment.
type Supplied struct {
	User        string
	Environment string
	Hosts       []string
	Branch      string
	CachePort   int
}

// Field is one resolved key/value pair.
type Field struct {
	Key   string
	Value string
}

// Environment is a resolved configuration mapping.
type Environment struct {
	project  Project
	supplied Supplied
	fields   map[string]string
}

// Resolve derives the full mapping from the project and supplied fields.
// It is pure: the same inputs always produce the same mapping.
func Resolve(p Project, s Supplied) *Environment {
	s.Hosts = append([]string(nil), s.Hosts...)

	root := path.Join(p.Home, "www", s.Environment)
	virtualenvsRoot := path.Join(p.Home, "virtualenvs")
	projectVirtualenvRoot := path.Join(virtualenvsRoot, s.Environment)
	codeRoot := path.Join(root, p.Name)
	webRoot := path.Join(codeRoot, "web")
	confName := p.Name + "-" + s.Environment

	fields := map[string]string{
		KeyProject:               p.Name,
		KeyHome:                  p.Home,
		KeyUser:                  s.User,
		KeyEnvironment:           s.Environment,
		KeyHosts:                 strings.Join(s.Hosts, ","),
		KeyBranchName:            s.Branch,
		KeyCachePort:             strconv.Itoa(s.CachePort),
		KeyRoot:                  root,
		KeyVirtualenvsRoot:       virtualenvsRoot,
		KeyProjectVirtualenvRoot: projectVirtualenvRoot,
		KeyVirtualenvActivate:    "source " + path.Join(projectVirtualenvRoot, "bin", "activate"),
		KeyCodeRoot:              codeRoot,
		KeyWebRoot:               webRoot,
		KeySettingsFile:          p.Name + ".settings_" + s.Environment,
		KeyNginxConfPath:         path.Join(webRoot, "conf", "nginx", confName+".conf"),
		KeySupervisordConfPath:   path.Join(webRoot, "conf", "supervisord", confName+".conf"),
		KeyPipRequirementsPath:   path.Join(webRoot, "conf", "pip", "requirements.txt"),
		KeyCheckoutCommand:       fmt.Sprintf("git checkout %s && git pull", s.Branch),
		KeyProjectRoot:           path.Join(webRoot, p.Name),
		KeyStaticAssetRoot:       path.Join(webRoot, "static"),
		KeyServiceName:           confName,
	}

	return &Environment{project: p, supplied: s, fields: fields}
}

// FromConfig resolves a configured environment by name.
func FromConfig(cfg *config.Config, name string) (*Environment, error) {
	envCfg, err := cfg.Environment(name)
	if err != nil {
		return nil, err
	}
	return Resolve(
		Project{Name: cfg.Project, Home: cfg.Home},
		Supplied{
			User:        envCfg.User,
			Environment: name,
			Hosts:       envCfg.Hosts,
			Branch:      envCfg.Branch,
			CachePort:   envCfg.CachePort,
		},
	), nil
}

// WithHosts returns a new Environment with the host list replaced.
func (e *Environment) WithHosts(hosts []string) *Environment {
	s := e.supplied
	s.Hosts = hosts
	return Resolve(e.project, s)
}

// Lookup returns the value for a symbolic key.
func (e *Environment) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.fields[key]
	return v, ok
}

// Get returns the value for key, or "" when unset.
func (e *Environment) Get(key string) string {
	v, _ := e.Lookup(key)
	return v
}

// Fields returns every key/value pair in a stable order.
func (e *Environment) Fields() []Field {
	out := make([]Field, 0, len(keyOrder))
	for _, key := range keyOrder {
		out = append(out, Field{Key: key, Value: e.fields[key]})
	}
	return out
}

// Require checks that every key resolved to a non-empty value. A nil
// Environment means no environment was selected.
func (e *Environment) Require(task string, keys ...string) error {
	for _, key := range keys {
		if v, ok := e.Lookup(key); !ok || v == "" {
			return errors.NewPrecondition(task, key)
		}
	}
	return nil
}

// ValidateHosts fails when there's nothing to deploy to.
func (e *Environment) ValidateHosts() error {
	if len(e.supplied.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("No hosts configured for %s", e.Name()),
			fmt.Sprintf("Add hosts under environments.%s.hosts in %s, or pass --hosts", e.Name(), config.ConfigFileName))
	}
	return nil
}

// IsProduction reports whether this is the production environment.
func (e *Environment) IsProduction() bool {
	return e != nil && e.supplied.Environment == config.Production
}

// Name returns the environment name.
func (e *Environment) Name() string { return e.supplied.Environment }

// Project returns the project name.
func (e *Environment) Project() string { return e.project.Name }

// User returns the SSH login user.
func (e *Environment) User() string { return e.supplied.User }

// Branch returns the branch deployed.
func (e *Environment) Branch() string { return e.supplied.Branch }

// CachePort returns the redis port.
func (e *Environment) CachePort() int { return e.supplied.CachePort }

// Hosts returns a copy of the host list.
func (e *Environment) Hosts() []string {
	return append([]string(nil), e.supplied.Hosts...)
}

// Path accessors for the derived fields the tasks use most.

func (e *Environment) Root() string                  { return e.fields[KeyRoot] }
func (e *Environment) VirtualenvsRoot() string       { return e.fields[KeyVirtualenvsRoot] }
func (e *Environment) ProjectVirtualenvRoot() string { return e.fields[KeyProjectVirtualenvRoot] }
func (e *Environment) VirtualenvActivate() string    { return e.fields[KeyVirtualenvActivate] }
func (e *Environment) CodeRoot() string              { return e.fields[KeyCodeRoot] }
func (e *Environment) WebRoot() string               { return e.fields[KeyWebRoot] }
func (e *Environment) SettingsFile() string          { return e.fields[KeySettingsFile] }
func (e *Environment) NginxConfPath() string         { return e.fields[KeyNginxConfPath] }
func (e *Environment) SupervisordConfPath() string   { return e.fields[KeySupervisordConfPath] }
func (e *Environment) PipRequirementsPath() string   { return e.fields[KeyPipRequirementsPath] }
func (e *Environment) CheckoutCommand() string       { return e.fields[KeyCheckoutCommand] }
func (e *Environment) ProjectRoot() string           { return e.fields[KeyProjectRoot] }
func (e *Environment) StaticAssetRoot() string       { return e.fields[KeyStaticAssetRoot] }
func (e *Environment) ServiceName() string           { return e.fields[KeyServiceName] }
