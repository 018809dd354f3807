package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Project         string
	Repository      string
	StagingHosts    string // Comma-separated
	ProductionHosts string // Comma-separated
	Dir             string // Where to write the file, default "."
	Overwrite       bool   // Overwrite existing config without asking
	NonInteractive  bool   // Skip prompts, use flags and defaults
}

var initFlags InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a " + config.ConfigFileName,
	Long: `Write a starter ` + config.ConfigFileName + ` in the current directory.

On a terminal, init asks for the project name, repository and hosts.
Otherwise it uses the flags and these environment variables:
ROLLOUT_PROJECT, ROLLOUT_REPOSITORY, ROLLOUT_STAGING_HOSTS,
ROLLOUT_PRODUCTION_HOSTS, ROLLOUT_NON_INTERACTIVE.

Examples:
  rollout init
  rollout init --project shop --repository git@github.com:acme/shop.git
  rollout init --staging-hosts stage1 --production-hosts web1,web2 --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initFlags
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			opts.NonInteractive = true
		}
		return Init(os.Stdout, opts)
	},
}

func init() {
	initCmd.Flags().StringVar(&initFlags.Project, "project", "", "project name")
	initCmd.Flags().StringVar(&initFlags.Repository, "repository", "", "git URL to clone")
	initCmd.Flags().StringVar(&initFlags.StagingHosts, "staging-hosts", "", "comma-separated staging hosts")
	initCmd.Flags().StringVar(&initFlags.ProductionHosts, "production-hosts", "", "comma-separated production hosts")
	initCmd.Flags().BoolVarP(&initFlags.Overwrite, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initFlags.NonInteractive, "non-interactive", false, "don't prompt, use flags and defaults")

	rootCmd.AddCommand(initCmd)
}

// getInitDefaults reads init values from the environment.
func getInitDefaults() InitOptions {
	return InitOptions{
		Project:         os.Getenv("ROLLOUT_PROJECT"),
		Repository:      os.Getenv("ROLLOUT_REPOSITORY"),
		StagingHosts:    os.Getenv("ROLLOUT_STAGING_HOSTS"),
		ProductionHosts: os.Getenv("ROLLOUT_PRODUCTION_HOSTS"),
		NonInteractive:  os.Getenv("ROLLOUT_NON_INTERACTIVE") == "true" || os.Getenv("CI") != "",
	}
}

// mergeInitOptions fills empty flags from the environment. Flags win.
func mergeInitOptions(opts InitOptions) InitOptions {
	defaults := getInitDefaults()
	if opts.Project == "" {
		opts.Project = defaults.Project
	}
	if opts.Repository == "" {
		opts.Repository = defaults.Repository
	}
	if opts.StagingHosts == "" {
		opts.StagingHosts = defaults.StagingHosts
	}
	if opts.ProductionHosts == "" {
		opts.ProductionHosts = defaults.ProductionHosts
	}
	if defaults.NonInteractive {
		opts.NonInteractive = true
	}
	return opts
}

// Init creates a new config file.
func Init(w io.Writer, opts InitOptions) error {
	opts = mergeInitOptions(opts)

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if opts.Project == "" {
		opts.Project = projectFromDir(dir)
	}

	if !opts.NonInteractive {
		if err := promptInitOptions(&opts); err != nil {
			return err
		}
	}

	cfg, err := buildInitConfig(opts)
	if err != nil {
		return err
	}

	if err := config.Write(configPath, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Fprintf(w, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  rollout show staging          - Check the resolved paths")
	fmt.Fprintln(w, "  rollout staging bootstrap     - Set up a fresh host")
	fmt.Fprintln(w, "  rollout staging deploy        - Ship the current branch")
	return nil
}

func promptInitOptions(opts *InitOptions) error {
	required := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", what)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Names the code directory, the settings module and the supervisor programs").
				Placeholder("django-template").
				Value(&opts.Project).
				Validate(required("project name")),
			huh.NewInput().
				Title("Repository").
				Description("git URL the hosts clone from").
				Placeholder("git@github.com:acme/shop.git").
				Value(&opts.Repository).
				Validate(required("repository")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Staging hosts (optional)").
				Description("Comma-separated hostnames, user@host or SSH config aliases").
				Placeholder("stage1.example.com").
				Value(&opts.StagingHosts),
			huh.NewInput().
				Title("Production hosts (optional)").
				Placeholder("web1.example.com,web2.example.com").
				Value(&opts.ProductionHosts),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	return nil
}

// buildInitConfig turns init answers into a validated config.
func buildInitConfig(opts InitOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Project = strings.TrimSpace(opts.Project)
	cfg.Repository = strings.TrimSpace(opts.Repository)
	if cfg.Repository != "" {
		cfg.CloneCommand = "git clone " + cfg.Repository
	}
	cfg.Home = "/home/" + cfg.Project

	for name, hostFlag := range map[string]string{
		config.Staging:    opts.StagingHosts,
		config.Production: opts.ProductionHosts,
	} {
		hosts, err := ParseHostList(hostFlag)
		if err != nil {
			return nil, err
		}
		cfg.Environments[name] = config.EnvironmentConfig{
			Name:      name,
			User:      cfg.Project,
			Hosts:     hosts,
			Branch:    config.DefaultBranch(name),
			CachePort: config.DefaultCachePort,
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// projectFromDir guesses the project name from the directory name.
func projectFromDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	return filepath.Base(abs)
}
