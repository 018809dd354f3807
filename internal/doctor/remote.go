package doctor

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/util"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
)

// RequiredTools are the remote programs the tasks call.
var RequiredTools = []string{"git", "virtualenv", "supervisorctl", "redis-cli", "psql"}

// HostLoginCheck verifies a host accepts an SSH login.
type HostLoginCheck struct {
	Host  string
	Login string
	Pool  *remote.Pool
}

func (c *HostLoginCheck) Name() string     { return "login_" + sshutil.Target(c.Login, c.Host) }
func (c *HostLoginCheck) Category() string { return CategoryHosts }

func (c *HostLoginCheck) Run() CheckResult {
	target := sshutil.Target(c.Login, c.Host)
	if _, _, err := c.Pool.Get(c.Host, c.Login); err != nil {
		return fail(c.Name(), fmt.Sprintf("%s: %s", target, firstLine(err.Error())),
			"Try connecting directly: ssh "+target)
	}
	return pass(c.Name(), fmt.Sprintf("%s: connected", target))
}

// RemoteToolsCheck verifies the programs the tasks run are installed.
type RemoteToolsCheck struct {
	Host  string
	Login string
	Tools []string
	Pool  *remote.Pool
}

func (c *RemoteToolsCheck) Name() string     { return "tools_" + c.Host }
func (c *RemoteToolsCheck) Category() string { return CategoryRemote }

func (c *RemoteToolsCheck) Run() CheckResult {
	client, _, err := c.Pool.Get(c.Host, c.Login)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("%s: tools not checked, no connection", c.Host), "")
	}

	var missing []string
	for _, tool := range c.Tools {
		_, _, code, err := client.Exec("command -v " + util.ShellQuote(tool))
		if err != nil || code != 0 {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fail(c.Name(), fmt.Sprintf("%s: missing %s", c.Host, strings.Join(missing, ", ")),
			"Install them on the host before running bootstrap")
	}
	return pass(c.Name(), fmt.Sprintf("%s: %s installed", c.Host, strings.Join(c.Tools, ", ")))
}

// ProjectLayoutCheck reports whether bootstrap has run on a host and
// whether the per-environment service configs are committed.
type ProjectLayoutCheck struct {
	Host  string
	Login string
	Env   *env.Environment
	Pool  *remote.Pool
}

func (c *ProjectLayoutCheck) Name() string     { return "layout_" + c.Host }
func (c *ProjectLayoutCheck) Category() string { return CategoryRemote }

func (c *ProjectLayoutCheck) Run() CheckResult {
	client, _, err := c.Pool.Get(c.Host, c.Login)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("%s: layout not checked, no connection", c.Host), "")
	}

	exists := func(path string) bool {
		_, _, code, err := client.Exec("test -e " + util.ShellQuote(path))
		return err == nil && code == 0
	}

	if !exists(c.Env.CodeRoot()) {
		return warn(c.Name(), fmt.Sprintf("%s: not bootstrapped (%s missing)", c.Host, c.Env.CodeRoot()),
			fmt.Sprintf("Run: rollout %s bootstrap", c.Env.Name()))
	}

	var missing []string
	for _, p := range []string{c.Env.NginxConfPath(), c.Env.SupervisordConfPath()} {
		if !exists(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return warn(c.Name(), fmt.Sprintf("%s: service config missing", c.Host),
			"update_nginx and update_supervisord need: "+strings.Join(missing, ", "))
	}
	return pass(c.Name(), fmt.Sprintf("%s: bootstrapped at %s", c.Host, c.Env.CodeRoot()))
}

// NewHostChecks creates login checks for the deploy and sudo logins and
// the remote checks for every host of e.
func NewHostChecks(e *env.Environment, sudoUser string, pool *remote.Pool) []Check {
	if sudoUser == "" {
		sudoUser = e.User()
	}

	var checks []Check
	for _, h := range e.Hosts() {
		checks = append(checks, &HostLoginCheck{Host: h, Login: e.User(), Pool: pool})
		if sudoUser != e.User() {
			checks = append(checks, &HostLoginCheck{Host: h, Login: sudoUser, Pool: pool})
		}
	}
	for _, h := range e.Hosts() {
		checks = append(checks,
			&RemoteToolsCheck{Host: h, Login: e.User(), Tools: RequiredTools, Pool: pool},
			&ProjectLayoutCheck{Host: h, Login: e.User(), Env: e, Pool: pool},
		)
	}
	return checks
}
