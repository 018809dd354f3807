package cli

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/tasks"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	"github.com/spf13/cobra"
)

// tasksCmd lists the deploy tasks
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the deploy tasks",
	Long: `List every task with the environment key it needs and what it does.

Examples:
  rollout tasks`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTasks(os.Stdout, tasks.Default())
	},
}

// planCmd shows what a task runs
var planCmd = &cobra.Command{
	Use:   "plan <task>",
	Short: "Show the tasks a task invokes",
	Long: `Show the tasks a task runs, in order, with the conditions that can
change what happens on a host.

Examples:
  rollout plan deploy
  rollout plan bootstrap`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTasks,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan(os.Stdout, tasks.Default(), args[0])
	},
}

var showHostsFlag string

// showCmd prints the resolved configuration of an environment
var showCmd = &cobra.Command{
	Use:   "show <environment>",
	Short: "Print the resolved configuration of an environment",
	Long: `Print every key an environment resolves to, and how each host will
be dialed after ~/.ssh/config is applied.

Examples:
  rollout show staging
  rollout show production --hosts web3`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.KnownEnvironments,
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts, err := ParseHostList(showHostsFlag)
		if err != nil {
			return err
		}
		return showEnvironment(os.Stdout, Config(), args[0], hosts)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for rollout.

Examples:
  # Bash
  rollout completion bash > /etc/bash_completion.d/rollout

  # Zsh
  rollout completion zsh > "${fpath[1]}/_rollout"

  # Fish
  rollout completion fish > ~/.config/fish/completions/rollout.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	showCmd.Flags().StringVarP(&showHostsFlag, "hosts", "H", "", "comma-separated hosts, replacing the configured ones")

	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(completionCmd)
}

func listTasks(w io.Writer, registry *tasks.Registry) error {
	columns := []ui.TableColumn{
		{Title: "TASK", Width: 20},
		{Title: "NEEDS", Width: 18},
		{Title: "DESCRIPTION", Width: 60},
	}
	var rows [][]string
	for _, t := range registry.Tasks() {
		rows = append(rows, []string{t.Name, strings.Join(t.Requires, ", "), t.Description})
	}
	fmt.Fprint(w, ui.RenderSimpleTable(columns, rows))
	fmt.Fprintf(w, "\nRun a task with: rollout <%s> <task>\n", strings.Join(config.KnownEnvironments, "|"))
	return nil
}

func showPlan(w io.Writer, registry *tasks.Registry, name string) error {
	plan, err := registry.Plan(name)
	if err != nil {
		return err
	}

	for _, step := range plan.Steps {
		indent := strings.Repeat("  ", step.Depth)
		symbol := ui.SymbolTask
		if step.Depth > 0 {
			symbol = ui.SymbolPending
		}
		fmt.Fprintf(w, "%s%s %s  %s\n", indent, symbol, ui.BoldStyle().Render(step.Task.Name),
			ui.MutedStyle().Render(step.Task.Description))
		for _, note := range step.Task.Notes {
			fmt.Fprintf(w, "%s    %s\n", indent, ui.WarningStyle().Render("? "+note))
		}
	}
	return nil
}

func showEnvironment(w io.Writer, cfgPath, name string, hosts []string) error {
	cfg, _, err := config.FindAndLoad(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	e, err := env.FromConfig(cfg, name)
	if err != nil {
		return err
	}
	if len(hosts) > 0 {
		e = e.WithHosts(hosts)
	}

	var pairs []ui.KeyValue
	for _, f := range e.Fields() {
		pairs = append(pairs, ui.KeyValue{Key: f.Key, Value: f.Value})
	}
	fmt.Fprintln(w, ui.BoldStyle().Render(e.Name()))
	fmt.Fprintln(w, ui.RenderKeyValues(pairs))

	if len(e.Hosts()) == 0 {
		fmt.Fprintf(w, "\n%s %s\n", ui.SymbolWarning, ui.WarningStyle().Render("no hosts configured"))
		return nil
	}

	sudoUser := cfg.SudoUser
	if sudoUser == "" {
		sudoUser = e.User()
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.BoldStyle().Render("hosts"))
	columns := []ui.TableColumn{
		{Title: "HOST", Width: 20},
		{Title: "ADDRESS", Width: 28},
		{Title: "LOGIN", Width: 16},
		{Title: "SUDO LOGIN", Width: 16},
	}
	var rows [][]string
	for _, h := range e.Hosts() {
		entry := sshutil.Lookup(sshutil.Target(e.User(), h))
		rows = append(rows, []string{h, net.JoinHostPort(entry.Hostname, entry.Port), entry.User, sudoUser})
	}
	fmt.Fprint(w, ui.RenderSimpleTable(columns, rows))
	return nil
}
