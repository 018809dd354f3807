package tasks

import (
	"fmt"
	"path"
	"strings"

	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/util"
)

// manage builds a manage.py invocation for the environment.
func manage(e *env.Environment, command string, args ...string) string {
	parts := []string{
		"python", path.Join(e.WebRoot(), "manage.py"), command,
	}
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}

func settingsFlag(e *env.Environment) string {
	return "--settings=" + e.SettingsFile()
}

var syncdbTask = &Task{
	Name:        "syncdb",
	Description: "Create database tables. Migrations are run by migrate",
	Requires:    []string{env.KeyCodeRoot},
	Run: func(c *Context) error {
		_, err := c.Activated(manage(c.Env, "syncdb", "--noinput", settingsFlag(c.Env)))
		return err
	},
}

var migrateTask = &Task{
	Name:        "migrate",
	Description: "Run database migrations",
	Requires:    []string{env.KeyCodeRoot},
	Run: func(c *Context) error {
		_, err := c.Activated(manage(c.Env, "migrate", "--noinput", settingsFlag(c.Env)))
		return err
	},
}

var collectStaticTask = &Task{
	Name:        "collect_static",
	Description: "Collect and compress static files",
	Requires:    []string{env.KeyCodeRoot},
	Notes:       []string{"CACHE/img absent: link it to bootstrap/img"},
	Run: func(c *Context) error {
		if _, err := c.Activated(manage(c.Env, "collectstatic", "-v0", "--noinput", settingsFlag(c.Env))); err != nil {
			return err
		}

		static := c.Env.StaticAssetRoot()
		link := path.Join(static, "CACHE", "img")
		exists, err := c.Exists(link)
		if err != nil || exists {
			return err
		}
		_, err = c.Activated(fmt.Sprintf("ln -s %s %s",
			util.ShellQuotePreserveTilde(path.Join(static, "bootstrap", "img")),
			util.ShellQuotePreserveTilde(link)))
		return err
	},
}

var loadFixtureTask = &Task{
	Name:        "load_fixture",
	Description: "Load a fixture from core/fixtures",
	Requires:    []string{env.KeyCodeRoot},
	Notes:       []string{"prompts for the fixture name; empty aborts"},
	Run: func(c *Context) error {
		name, err := c.Gate.Input("Enter the fixture name (not the path, just the name):")
		if err != nil {
			return err
		}
		if name == "" {
			return errors.NewAborted("Load fixture aborted.")
		}
		if strings.ContainsRune(name, '/') {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid fixture name '%s'", name),
				"Give the file name only, e.g. initial_data.json")
		}

		fixture := path.Join(c.Env.ProjectRoot(), "core", "fixtures", name)
		_, err = c.Activated(manage(c.Env, "loaddata", settingsFlag(c.Env), util.ShellQuote(fixture)))
		return err
	},
}

var createSuperuserTask = &Task{
	Name:        "create_superuser",
	Description: "Create a Django superuser (interactive)",
	Requires:    []string{env.KeyCodeRoot},
	Run: func(c *Context) error {
		_, err := c.Run(manage(c.Env, "createsuperuser", settingsFlag(c.Env)), remote.Options{
			Activation:  c.Env.VirtualenvActivate(),
			Interactive: true,
		})
		return err
	},
}
