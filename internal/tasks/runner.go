package tasks

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/rollout/internal/cache"
	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/credentials"
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/gate"
	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/output"
	"github.com/rileyhilliard/rollout/internal/remote"
)

// Settings are the project-wide values tasks need besides the environment.
type Settings struct {
	CloneCommand    string
	NginxRoot       string
	SupervisordRoot string
	TaskResultDB    int
	FlushMode       string
	CredentialsFile string
	DBSuperuser     string
}

// SettingsFromConfig extracts Settings from a loaded config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		CloneCommand:    cfg.CloneCommand,
		NginxRoot:       cfg.NginxRoot,
		SupervisordRoot: cfg.SupervisordRoot,
		TaskResultDB:    cfg.Cache.TaskResultDB,
		FlushMode:       cfg.Cache.FlushMode,
		CredentialsFile: cfg.Database.CredentialsFile,
		DBSuperuser:     cfg.Database.Superuser,
	}
}

// FlusherFactory builds the cache flusher for a host-bound executor.
type FlusherFactory func(ex *remote.Executor, port int) cache.Flusher

// CredentialsLoader reads database credentials for an environment.
type CredentialsLoader func(path, environment string) (*credentials.Credentials, error)

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Registry *Registry

	// Env is the selected environment. nil means none was selected, and
	// every task fails its precondition.
	Env *env.Environment

	Exec     *remote.Executor
	Gate     *gate.Gate
	Settings Settings
	Logger   logger.Logger

	// Output receives task headers and outcomes. Defaults to os.Stdout.
	Output io.Writer
	Quiet  bool

	Flusher     FlusherFactory
	Credentials CredentialsLoader
}

// Runner executes tasks in order, each on every host in order.
type Runner struct {
	cfg     RunnerConfig
	tracker *output.RunTracker
	log     logger.Logger
}

// NewRunner creates a runner. Registry defaults to Default().
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Registry == nil {
		cfg.Registry = Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Gate == nil {
		cfg.Gate = gate.New(gate.NonInteractive, nil, cfg.Logger)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = credentials.Load
	}
	if cfg.Flusher == nil {
		mode, log := cfg.Settings.FlushMode, cfg.Logger
		cfg.Flusher = func(ex *remote.Executor, port int) cache.Flusher {
			return cache.ForExecutor(mode, ex, port, log)
		}
	}

	tracker := output.NewRunTracker(cfg.Output)
	tracker.SetQuiet(cfg.Quiet)

	return &Runner{cfg: cfg, tracker: tracker, log: cfg.Logger}
}

// Tracker returns the step recorder.
func (r *Runner) Tracker() *output.RunTracker {
	return r.tracker
}

// Run validates names, then runs each task on every host in order. The
// first error stops the run.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	if err := r.cfg.Registry.Validate(names); err != nil {
		return err
	}

	// Without an environment, report the first task's precondition.
	if r.cfg.Env == nil {
		first, _ := r.cfg.Registry.Get(names[0])
		if err := r.cfg.Env.Require(first.Name, first.Requires...); err != nil {
			return err
		}
		return errors.NewPrecondition(first.Name, env.KeyEnvironment)
	}
	if err := r.cfg.Env.ValidateHosts(); err != nil {
		return err
	}
	if r.cfg.Exec == nil {
		return fmt.Errorf("tasks: runner has no executor")
	}

	hosts := r.cfg.Env.Hosts()
	for _, name := range names {
		task, _ := r.cfg.Registry.Get(name)
		for _, host := range hosts {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.cfg.Gate.BeginPass()
			c := r.newContext(ctx, host)
			if err := c.invoke(task); err != nil {
				return err
			}
		}
	}
	r.tracker.Summary()
	return nil
}

func (r *Runner) newContext(ctx context.Context, host string) *Context {
	return &Context{
		ctx:      ctx,
		runner:   r,
		Env:      r.cfg.Env,
		Host:     host,
		Exec:     r.cfg.Exec.ForHost(host),
		Gate:     r.cfg.Gate,
		Settings: r.cfg.Settings,
		Log:      r.log,
	}
}

// errSkip marks a task that chose not to run.
type errSkip struct {
	reason string
}

func (e *errSkip) Error() string { return e.reason }

// Skip ends a task body early without failing the run.
func Skip(reason string) error {
	return &errSkip{reason: reason}
}

// Context is what a task body sees: the environment, an executor bound
// to one host and the operator gate.
type Context struct {
	ctx     context.Context
	runner  *Runner
	current *Task

	Env      *env.Environment
	Host     string
	Exec     *remote.Executor
	Gate     *gate.Gate
	Settings Settings
	Log      logger.Logger
}

// Context returns the run's context.Context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Invoke runs other tasks on the same host, in order.
func (c *Context) Invoke(names ...string) error {
	for _, name := range names {
		task, ok := c.runner.cfg.Registry.Get(name)
		if !ok {
			return c.runner.cfg.Registry.Validate([]string{name})
		}
		if err := c.invoke(task); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) invoke(t *Task) error {
	if err := c.Env.Require(t.Name, t.Requires...); err != nil {
		return err
	}

	tracker := c.runner.tracker
	tracker.Start(t.Name, c.Host)
	c.Log.Debug("[%s] %s", c.Host, t.Name)

	child := *c
	child.current = t
	err := t.Run(&child)

	var skip *errSkip
	switch {
	case stderrors.As(err, &skip):
		c.Log.Info("[%s] %s", c.Host, skip.reason)
		tracker.Skip(skip.reason)
		return nil
	case err != nil:
		tracker.Fail(err)
		return err
	}
	tracker.Complete()
	return nil
}

func (c *Context) task() *Task {
	return c.current
}

// Run executes cmd as the environment user.
func (c *Context) Run(cmd string, opts remote.Options) (remote.Result, error) {
	return c.Exec.Run(c.ctx, cmd, opts)
}

// Sudo executes cmd escalated, logged in as the project's sudo user.
func (c *Context) Sudo(cmd string) (remote.Result, error) {
	return c.Exec.Run(c.ctx, cmd, remote.Options{Sudo: true})
}

// Activated executes cmd inside the project's virtualenv.
func (c *Context) Activated(cmd string) (remote.Result, error) {
	return c.Exec.Run(c.ctx, cmd, remote.Options{Activation: c.Env.VirtualenvActivate()})
}

// Exists probes path on the host.
func (c *Context) Exists(path string) (bool, error) {
	return c.Exec.Exists(c.ctx, path)
}

// ConfirmProduction gates the rest of the task on production.
func (c *Context) ConfirmProduction(title, abort string) error {
	return c.Gate.ConfirmIfProduction(c.Env, gate.Question{Title: title, Abort: abort})
}

// Flusher returns the cache flusher for this host.
func (c *Context) Flusher() cache.Flusher {
	return c.runner.cfg.Flusher(c.Exec, c.Env.CachePort())
}

// Credentials loads the database credentials for this environment.
func (c *Context) Credentials() (*credentials.Credentials, error) {
	return c.runner.cfg.Credentials(c.Settings.CredentialsFile, c.Env.Name())
}
