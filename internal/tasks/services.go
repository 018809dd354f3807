package tasks

import (
	"fmt"

	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/util"
)

// installConf copies a config file from the checkout into a live
// directory. A missing source aborts the task.
func installConf(c *Context, task, src, dst string) error {
	exists, err := c.Exists(src)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewMissing(task+" failed: No configuration file can be found for this environment", src)
	}
	_, err = c.Sudo(fmt.Sprintf("cp %s %s",
		util.ShellQuotePreserveTilde(src), util.ShellQuotePreserveTilde(dst)))
	return err
}

var updateSupervisordTask = &Task{
	Name:        "update_supervisord",
	Description: "Install the supervisord config and apply it",
	Requires:    []string{env.KeyRoot},
	Notes:       []string{"supervisord config absent: abort"},
	Run: func(c *Context) error {
		if err := installConf(c, "update_supervisord", c.Env.SupervisordConfPath(), c.Settings.SupervisordRoot); err != nil {
			return err
		}
		_, err := c.Sudo("supervisorctl update")
		return err
	},
}

var updateNginxTask = &Task{
	Name:        "update_nginx",
	Description: "Install the nginx config and reload nginx",
	Requires:    []string{env.KeyRoot},
	Invokes:     []string{"reload_nginx"},
	Notes:       []string{"nginx config absent: abort"},
	Run: func(c *Context) error {
		if err := installConf(c, "update_nginx", c.Env.NginxConfPath(), c.Settings.NginxRoot); err != nil {
			return err
		}
		return c.Invoke("reload_nginx")
	},
}

func nginxTask(verb, description string) *Task {
	return &Task{
		Name:        verb + "_nginx",
		Description: description,
		Requires:    []string{env.KeyRoot},
		Run: func(c *Context) error {
			_, err := c.Sudo("/etc/init.d/nginx " + verb)
			return err
		},
	}
}

// supervised builds a task that sends verb to a supervisord program.
// suffix selects the program: "" is the uWSGI app, "-redis" or
// "-celeryd" the companion services.
func supervised(name, verb, suffix, description string) *Task {
	return &Task{
		Name:        name,
		Description: description,
		Requires:    []string{env.KeyRoot},
		Run: func(c *Context) error {
			_, err := c.Sudo(supervisorctl(c.Env, verb, suffix))
			return err
		},
	}
}

func supervisorctl(e *env.Environment, verb, suffix string) string {
	return fmt.Sprintf("supervisorctl %s %s%s", verb, e.ServiceName(), suffix)
}

var restartCelerydTask = &Task{
	Name:        "restart_celeryd",
	Description: "Flush task results, then restart celeryd",
	Requires:    []string{env.KeyRoot},
	Notes:       []string{"flushes the task result db first; a failed flush only warns"},
	Run: func(c *Context) error {
		db := c.Settings.TaskResultDB
		if err := c.Flusher().Flush(c.Context(), db); err != nil {
			c.Log.Warn("[%s] flushing redis db %d failed, restarting anyway: %v", c.Host, db, err)
		}
		_, err := c.Sudo(supervisorctl(c.Env, "restart", "-celeryd"))
		return err
	},
}
