package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// HostAddOptions holds options for the hosts add command.
type HostAddOptions struct {
	ConfigPath  string
	Environment string
	Host        string
	SkipProbe   bool

	// Dialer probes the host. Nil means real SSH.
	Dialer remote.Dialer
}

var hostAddSkipProbe bool

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List or edit the hosts of each environment",
	Long: `List, add or remove environment hosts in the config file.

Edits keep the rest of the file, comments included, as it was.

Examples:
  rollout hosts
  rollout hosts add staging web2.example.com
  rollout hosts remove production web1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostList(os.Stdout, Config())
	},
}

var hostsAddCmd = &cobra.Command{
	Use:       "add <environment> <host>",
	Short:     "Add a host to an environment",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeHostAdd,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostAdd(os.Stdout, HostAddOptions{
			ConfigPath:  Config(),
			Environment: args[0],
			Host:        args[1],
			SkipProbe:   hostAddSkipProbe,
		})
	},
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <environment> <host>",
	Short: "Remove a host from an environment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRemove(os.Stdout, Config(), args[0], args[1])
	},
}

func init() {
	hostsAddCmd.Flags().BoolVar(&hostAddSkipProbe, "skip-probe", false, "don't test the SSH connection first")

	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)
	rootCmd.AddCommand(hostsCmd)
}

// hostList prints each environment and its hosts.
func hostList(w io.Writer, cfgPath string) error {
	cfg, _, err := config.FindAndLoad(cfgPath)
	if err != nil {
		return err
	}

	nameStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := ui.MutedStyle()

	for _, name := range cfg.EnvironmentNames() {
		envCfg := cfg.Environments[name]
		fmt.Fprintf(w, "%s %s\n", nameStyle.Render(name), dimStyle.Render("("+envCfg.User+", branch "+envCfg.Branch+")"))
		if len(envCfg.Hosts) == 0 {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("no hosts. Add one with: rollout hosts add "+name+" <host>"))
		}
		for i, h := range envCfg.Hosts {
			prefix := "  └─ "
			if i < len(envCfg.Hosts)-1 {
				prefix = "  ├─ "
			}
			fmt.Fprintf(w, "%s%s\n", dimStyle.Render(prefix), h)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// hostAdd probes the host and adds it to the environment.
func hostAdd(w io.Writer, opts HostAddOptions) error {
	cfg, path, err := config.FindAndLoad(opts.ConfigPath)
	if err != nil {
		return err
	}
	envCfg, err := cfg.Environment(opts.Environment)
	if err != nil {
		return err
	}
	for _, h := range envCfg.Hosts {
		if h == opts.Host {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s already has host '%s'", opts.Environment, opts.Host),
				"Nothing to do. Run 'rollout hosts' to see every host.")
		}
	}

	if !opts.SkipProbe {
		dialer := opts.Dialer
		if dialer == nil {
			dialer = remote.SSHDialer(sshutil.DialOptions{
				Timeout:               cfg.SSH.Timeout,
				InsecureIgnoreHostKey: !cfg.SSH.StrictHostKeyChecking,
			})
		}
		if err := testConnectionForAdd(w, dialer, sshutil.Target(envCfg.User, opts.Host)); err != nil {
			return err
		}
	}

	if err := config.AddHost(path, opts.Environment, opts.Host); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't update %s", path),
			"Check that you have write permissions.")
	}
	fmt.Fprintf(w, "%s Added %s to %s\n", ui.SymbolSuccess, opts.Host, opts.Environment)
	return nil
}

// hostRemove drops a host from the environment.
func hostRemove(w io.Writer, cfgPath, environment, host string) error {
	cfg, path, err := config.FindAndLoad(cfgPath)
	if err != nil {
		return err
	}
	envCfg, err := cfg.Environment(environment)
	if err != nil {
		return err
	}
	if !contains(envCfg.Hosts, host) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s has no host '%s'", environment, host),
			"Run 'rollout hosts' to see every host.")
	}

	if err := config.RemoveHost(path, environment, host); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't update %s", path),
			"Check that you have write permissions.")
	}
	fmt.Fprintf(w, "%s Removed %s from %s\n", ui.SymbolSuccess, host, environment)
	return nil
}

// testConnectionForAdd dials target once. On failure a terminal user can
// still choose to add the host.
func testConnectionForAdd(w io.Writer, dial remote.Dialer, target string) error {
	spinner := ui.NewSpinner(w, "Testing connection to "+target)
	spinner.Start()

	client, err := dial(target)
	if err == nil {
		spinner.Success()
		_ = client.Close()
		return nil
	}
	spinner.Fail()

	unreachable := errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("Can't reach %s", target),
		"Make sure the host is up and SSH is working: ssh "+target+". Or pass --skip-probe.")

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return unreachable
	}

	fmt.Fprintf(w, "\n%s Connection to '%s' failed: %v\n\n", ui.SymbolFail, target, err)
	var saveAnyway bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add host anyway? (You can fix the connection later)").
				Value(&saveAnyway),
		),
	)
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return unreachable
	}
	return nil
}

// completeHostAdd offers environment names first, then aliases from ~/.ssh/config.
func completeHostAdd(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return config.KnownEnvironments, cobra.ShellCompDirectiveNoFileComp
	case 1:
		entries, err := sshutil.ParseSSHConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Alias+"\t"+e.Description())
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
