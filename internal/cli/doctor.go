package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/doctor"
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	ConfigPath  string
	Environment string // Empty skips the host checks
	Hosts       []string

	// Dialer opens the host connections. Nil means real SSH.
	Dialer remote.Dialer
	// Local replaces the SSH key and agent checks. Nil means the real ones.
	Local []doctor.Check
}

var doctorHostsFlag string

var doctorCmd = &cobra.Command{
	Use:   "doctor [environment]",
	Short: "Check the config, SSH setup and hosts",
	Long: `Check that rollout can deploy: the config file, database credentials,
local SSH keys, and, given an environment, that every host accepts the
deploy and sudo logins and has the tools the tasks run.

Examples:
  rollout doctor
  rollout doctor staging
  rollout doctor production --hosts web3`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: config.KnownEnvironments,
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts, err := ParseHostList(doctorHostsFlag)
		if err != nil {
			return err
		}
		opts := DoctorOptions{ConfigPath: Config(), Hosts: hosts}
		if len(args) == 1 {
			opts.Environment = args[0]
		}
		return runDoctor(os.Stdout, opts)
	},
}

func init() {
	doctorCmd.Flags().StringVarP(&doctorHostsFlag, "hosts", "H", "", "comma-separated hosts, replacing the configured ones")
	rootCmd.AddCommand(doctorCmd)
}

// runDoctor runs every check, prints the report and returns an ExitError
// when any check failed.
func runDoctor(w io.Writer, opts DoctorOptions) error {
	cfgPath, _ := config.Find(opts.ConfigPath)
	var cfg *config.Config
	var loadErr error
	if cfgPath != "" {
		cfg, loadErr = config.Load(cfgPath)
	}

	local := opts.Local
	if local == nil {
		local = doctor.NewSSHChecks()
	}
	checks := append(doctor.NewConfigChecks(opts.ConfigPath, cfg, loadErr), local...)
	results := doctor.RunAllParallel(checks)

	if opts.Environment != "" {
		hostChecks, closePool, err := doctorHostChecks(cfg, opts)
		if err != nil {
			return err
		}
		defer closePool()
		checks = append(checks, hostChecks...)
		results = append(results, doctor.RunAll(hostChecks)...)
	}

	renderDoctorReport(w, checks, results)
	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

func doctorHostChecks(cfg *config.Config, opts DoctorOptions) ([]doctor.Check, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New(errors.ErrConfig,
			"Can't check hosts without a config",
			"Run 'rollout init' first, or point at the config with --config")
	}
	e, err := env.FromConfig(cfg, opts.Environment)
	if err != nil {
		return nil, nil, err
	}
	if len(opts.Hosts) > 0 {
		e = e.WithHosts(opts.Hosts)
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = remote.SSHDialer(sshutil.DialOptions{
			Timeout:               cfg.SSH.Timeout,
			InsecureIgnoreHostKey: !cfg.SSH.StrictHostKeyChecking,
		})
	}
	pool := remote.NewPool(dialer)
	closePool := func() {
		pool.CloseAll() //nolint:errcheck // Cleanup, error not actionable
	}
	return doctor.NewHostChecks(e, cfg.SudoUser, pool), closePool, nil
}

func renderDoctorReport(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	successStyle := ui.SuccessStyle()
	errorStyle := ui.ErrorStyle()
	warnStyle := ui.WarningStyle()
	mutedStyle := ui.MutedStyle()
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("rollout diagnostic report"))
	fmt.Fprintln(w)

	grouped := make(map[string][]int)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], i)
	}

	for _, category := range doctor.CategoryOrder {
		indices := grouped[category]
		if len(indices) == 0 {
			continue
		}
		fmt.Fprintln(w, headerStyle.Render(category))
		for _, idx := range indices {
			result := results[idx]

			symbol, style := ui.SymbolComplete, successStyle
			switch result.Status {
			case doctor.StatusWarn:
				symbol, style = ui.SymbolWarning, warnStyle
			case doctor.StatusFail:
				symbol, style = ui.SymbolFail, errorStyle
			}
			fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), result.Message)

			if result.Suggestion != "" && result.Status != doctor.StatusPass {
				for _, line := range strings.Split(result.Suggestion, "\n") {
					fmt.Fprintf(w, "    %s\n", mutedStyle.Render(line))
				}
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	if doctor.HasFailures(results) || doctor.CountByStatus(results)[doctor.StatusWarn] > 0 {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render(ui.SymbolSuccess), doctor.Summary(results))
	}
}
