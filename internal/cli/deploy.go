package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/gate"
	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/tasks"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DeployOptions holds options for running tasks against an environment.
type DeployOptions struct {
	ConfigPath  string
	Environment string
	Tasks       []string
	Hosts       []string // Replaces the configured hosts when set
	Yes         bool
	DryRun      bool
	Quiet       bool

	// Set by tests. Nil means real SSH, the terminal and os.Stdout.
	Dialer remote.Dialer
	Gate   *gate.Gate
	Stdout io.Writer
	Stderr io.Writer
}

func newEnvironmentCmd(name string) *cobra.Command {
	var flags EnvironmentFlags

	cmd := &cobra.Command{
		Use:   name + " <task> [task...]",
		Short: fmt.Sprintf("Run tasks against the %s hosts", name),
		Long: fmt.Sprintf(`Run one or more tasks against every %[1]s host, in order.

Tasks run one after the other. Each task finishes on every host before
the next task starts. The first failure stops the run.

Examples:
  rollout %[1]s deploy
  rollout %[1]s update_nginx restart
  rollout %[1]s --hosts web3 bootstrap
  rollout %[1]s --dry-run deploy`, name),
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: completeTasks,
		RunE: func(cmd *cobra.Command, args []string) error {
			hosts, err := ParseHostList(flags.Hosts)
			if err != nil {
				return err
			}
			return RunDeploy(cmd.Context(), DeployOptions{
				ConfigPath:  Config(),
				Environment: name,
				Tasks:       args,
				Hosts:       hosts,
				Yes:         flags.Yes,
				DryRun:      flags.DryRun,
				Quiet:       quiet,
			})
		},
	}
	AddEnvironmentFlags(cmd, &flags)
	return cmd
}

// RunDeploy loads the config, resolves the environment and runs the tasks.
func RunDeploy(ctx context.Context, opts DeployOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	registry := tasks.Default()
	if err := registry.Validate(opts.Tasks); err != nil {
		return err
	}

	cfg, cfgPath, err := config.FindAndLoad(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	e, err := env.FromConfig(cfg, opts.Environment)
	if err != nil {
		return err
	}
	if len(opts.Hosts) > 0 {
		e = e.WithHosts(opts.Hosts)
	}

	log := logger.NewWriterLogger("", stderr)
	log.Debug("config %s, environment %s, hosts %v", cfgPath, e.Name(), e.Hosts())

	dialer := opts.Dialer
	if dialer == nil {
		dialer = remote.SSHDialer(sshutil.DialOptions{
			Timeout:               cfg.SSH.Timeout,
			InsecureIgnoreHostKey: !cfg.SSH.StrictHostKeyChecking,
		})
	}

	ex := remote.New(remote.Config{
		Hosts:    e.Hosts(),
		User:     e.User(),
		SudoUser: cfg.SudoUser,
		Dialer:   dialer,
		Stdout:   stdout,
		Stderr:   stderr,
		Logger:   log,
		DryRun:   opts.DryRun,
		Quiet:    opts.Quiet,
		Animate:  !opts.Quiet && opts.Stdout == nil && term.IsTerminal(int(os.Stdout.Fd())),
	})
	defer func() {
		if err := ex.Close(); err != nil {
			log.Debug("closing connections: %v", err)
		}
	}()

	g := opts.Gate
	if g == nil {
		g = gate.Detect(opts.Yes, log)
	}

	if opts.DryRun && !opts.Quiet {
		fmt.Fprintf(stdout, "Dry run: commands are printed, not run. Existence checks still run.\n\n")
	}

	runner := tasks.NewRunner(tasks.RunnerConfig{
		Registry: registry,
		Env:      e,
		Exec:     ex,
		Gate:     g,
		Settings: tasks.SettingsFromConfig(cfg),
		Logger:   log,
		Output:   stdout,
		Quiet:    opts.Quiet,
	})
	return runner.Run(ctx, opts.Tasks...)
}

// completeTasks offers task names for shell completion.
func completeTasks(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, t := range tasks.Default().Tasks() {
		out = append(out, t.Name+"\t"+t.Description)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
