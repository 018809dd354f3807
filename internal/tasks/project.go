package tasks

import (
	"path"
	"strings"

	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/util"
)

var bootstrapTask = &Task{
	Name:        "bootstrap",
	Description: "Create directories and virtualenv, install code, configure services",
	Requires:    []string{env.KeyRoot},
	Invokes: []string{
		"create_virtualenv", "checkout", "update_requirements",
		"syncdb", "update_supervisord", "update_nginx",
	},
	Run: func(c *Context) error {
		root := c.Env.Root()
		if _, err := c.Run("mkdir -p "+path.Join(root, "{log,run,var}"), remote.Options{}); err != nil {
			return err
		}
		if _, err := c.Run("touch "+path.Join(root, "log", "{application.log,watched.log}"), remote.Options{}); err != nil {
			return err
		}
		if _, err := c.Sudo("chmod -R 755 " + path.Join(root, "run")); err != nil {
			return err
		}
		return c.Invoke(c.task().Invokes...)
	},
}

var checkoutTask = &Task{
	Name:        "checkout",
	Description: "Clone the repository, or check out and pull the branch",
	Requires:    []string{env.KeyCodeRoot},
	Notes: []string{
		"production: confirm before touching the host",
		"code root absent: mkdir + clone, then check out the branch",
		"code root absent and no clone_command: CONFIG error, nothing created",
		"code root present: git checkout <branch> && git pull",
	},
	Run: func(c *Context) error {
		if err := c.ConfirmProduction(
			"Are you sure you want to update the production code?",
			"Production code update aborted.",
		); err != nil {
			return err
		}

		codeRoot := c.Env.CodeRoot()
		exists, err := c.Exists(codeRoot)
		if err != nil {
			return err
		}
		if exists {
			_, err := c.Run(c.Env.CheckoutCommand(), remote.Options{Dir: codeRoot})
			return err
		}

		clone := strings.TrimSpace(c.Settings.CloneCommand)
		if clone == "" {
			return errors.New(errors.ErrConfig,
				"No clone_command or repository configured",
				"Set repository (or clone_command) in rollout.yaml so checkout can clone into "+codeRoot)
		}
		if _, err := c.Run("mkdir -p "+util.ShellQuotePreserveTilde(codeRoot), remote.Options{}); err != nil {
			return err
		}
		if _, err := c.Run(clone+" "+util.ShellQuotePreserveTilde(codeRoot), remote.Options{}); err != nil {
			return err
		}
		_, err = c.Run("git checkout "+c.Env.Branch(), remote.Options{Dir: codeRoot})
		return err
	},
}

var createVirtualenvTask = &Task{
	Name:        "create_virtualenv",
	Description: "Create the environment's virtualenv",
	Requires:    []string{env.KeyVirtualenvsRoot},
	Notes:       []string{"virtualenv present: ask whether to recreate it with --clear"},
	Run: func(c *Context) error {
		if _, err := c.Run("mkdir -p "+util.ShellQuotePreserveTilde(c.Env.VirtualenvsRoot()), remote.Options{}); err != nil {
			return err
		}

		target := c.Env.ProjectVirtualenvRoot()
		args := []string{"virtualenv"}
		exists, err := c.Exists(target)
		if err != nil {
			return err
		}
		if exists {
			wipe, err := c.Gate.Confirm("Clear out the current virtual env?", false)
			if err != nil {
				return err
			}
			if wipe {
				args = append(args, "--clear")
			}
		}
		args = append(args, util.ShellQuotePreserveTilde(target))

		_, err = c.Run(strings.Join(args, " "), remote.Options{})
		return err
	},
}

var updateRequirementsTask = &Task{
	Name:        "update_requirements",
	Description: "Install Python dependencies from requirements.txt",
	Requires:    []string{env.KeyCodeRoot},
	Notes:       []string{"requirements.txt absent: skipped"},
	Run: func(c *Context) error {
		manifest := c.Env.PipRequirementsPath()
		exists, err := c.Exists(manifest)
		if err != nil {
			return err
		}
		if !exists {
			return Skip("No requirements file found. Skipping")
		}
		_, err = c.Activated("pip install -r " + util.ShellQuotePreserveTilde(manifest))
		return err
	},
}

var deployTask = &Task{
	Name:        "deploy",
	Description: "Full deploy. Run bootstrap first on a new installation",
	Requires:    []string{env.KeyCodeRoot},
	Invokes:     []string{"checkout", "migrate", "collect_static", "restart"},
	Notes: []string{
		"production: confirm before touching the host",
		"code root absent: abort",
	},
	Run: func(c *Context) error {
		if err := c.ConfirmProduction(
			"Are you sure you want to deploy production?",
			"Production deployment aborted.",
		); err != nil {
			return err
		}

		exists, err := c.Exists(c.Env.CodeRoot())
		if err != nil {
			return err
		}
		if !exists {
			return errors.New(errors.ErrMissing,
				"Project not bootstrapped. Run bootstrap before deploy.",
				"Run: rollout "+c.Env.Name()+" bootstrap")
		}
		return c.Invoke(c.task().Invokes...)
	},
}
