package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/tasks"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/rileyhilliard/rollout/internal/util"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Deploy a Django stack to staging or production over SSH",
	Long: `rollout runs deploy tasks against the hosts of one environment.

Pick the environment first, then name one or more tasks. Each task runs
on every host, in order, and the first failure stops the run.

Examples:
  rollout staging bootstrap
  rollout staging deploy
  rollout production deploy restart_celeryd
  rollout tasks`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.ConfigFileName+" in this or a parent directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide remote output and progress")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

func applyGlobalFlags() {
	logger.SetVerbose(verbose)
	if noColor || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}
}

// Execute registers one command per environment, runs the root command
// and exits non-zero on error.
func Execute() {
	state := discoverConfig(preScanConfig(os.Args[1:]))
	registerEnvironments(rootCmd, state)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	sshutil.CloseAgent()

	if err != nil {
		os.Exit(handleError(err, state, os.Stderr))
	}
}

// handleError prints err and returns the exit code.
func handleError(err error, state *configDiscoveryState, w io.Writer) int {
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}
	if isUnknownCommandError(err) {
		err = explainUnknownCommand(err, state)
	}
	fmt.Fprintln(w, err.Error())
	return 1
}

// preScanConfig finds --config in args before cobra parses them, since
// the environment commands depend on the config file.
func preScanConfig(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// configDiscoveryState records what the startup config scan found.
type configDiscoveryState struct {
	ProjectPath  string
	ProjectErr   error
	LoadErr      error
	ValidateErr  error
	Environments []string
}

// discoverConfig looks for the config file without failing. Errors are
// kept for later, so that commands like 'init' and 'version' still work.
func discoverConfig(explicit string) *configDiscoveryState {
	state := &configDiscoveryState{}

	path, err := config.Find(explicit)
	if err != nil {
		state.ProjectErr = err
		return state
	}
	state.ProjectPath = path
	if path == "" {
		return state
	}

	cfg, err := config.Load(path)
	if err != nil {
		state.LoadErr = err
		return state
	}
	state.ValidateErr = config.Validate(cfg)
	state.Environments = cfg.EnvironmentNames()
	return state
}

// registerEnvironments adds a command for each known environment and
// each environment the config declares.
func registerEnvironments(root *cobra.Command, state *configDiscoveryState) {
	names := append([]string(nil), config.KnownEnvironments...)
	for _, name := range state.Environments {
		if !contains(names, name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		if cmd, _, err := root.Find([]string{name}); err == nil && cmd != root {
			continue
		}
		root.AddCommand(newEnvironmentCmd(name))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// isUnknownCommandError checks if the error is a cobra "unknown command"
// or "unknown flag" error.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of
// `unknown command "foo" for "rollout"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// explainUnknownCommand turns a cobra error into a structured one. A task
// name typed without an environment gets pointed at the right form.
func explainUnknownCommand(err error, state *configDiscoveryState) error {
	name := extractUnknownCommand(err)
	if name == "" {
		return errors.New(errors.ErrConfig, err.Error(), "Run 'rollout --help' for usage")
	}

	if _, ok := tasks.Default().Get(name); ok {
		env := config.Staging
		if state != nil && len(state.Environments) > 0 {
			env = state.Environments[0]
		}
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' is a task, and tasks need an environment", name),
			fmt.Sprintf("Pick one first: rollout %s %s", env, name))
	}

	var candidates []string
	for _, c := range rootCmd.Commands() {
		candidates = append(candidates, c.Name())
	}
	candidates = append(candidates, tasks.Default().Names()...)

	suggestion := "Run 'rollout --help' for the commands and 'rollout tasks' for the tasks"
	if similar := util.SuggestSimilar(name, candidates, 3); len(similar) > 0 {
		suggestion = "Did you mean: " + util.JoinOrNone(similar) + "?"
	}
	if state != nil && state.ProjectPath == "" && state.ProjectErr == nil {
		suggestion += "\n  No " + config.ConfigFileName + " found. Run 'rollout init' to create one."
	}
	return errors.New(errors.ErrConfig, fmt.Sprintf("Unknown command '%s'", name), suggestion)
}
