package cli

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/spf13/cobra"
)

// EnvironmentFlags holds the flags every environment command takes.
type EnvironmentFlags struct {
	Hosts  string
	Yes    bool
	DryRun bool
}

// AddEnvironmentFlags registers --hosts, --yes and --dry-run on a command.
func AddEnvironmentFlags(cmd *cobra.Command, flags *EnvironmentFlags) {
	cmd.Flags().StringVarP(&flags.Hosts, "hosts", "H", "", "comma-separated hosts, replacing the configured ones")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "answer yes to production confirmations")
	cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "print commands instead of running them")
}

// ParseHostList splits a --hosts value. Empty entries are dropped and a
// host listed twice is an error.
func ParseHostList(flag string) ([]string, error) {
	if strings.TrimSpace(flag) == "" {
		return nil, nil
	}

	var hosts []string
	seen := make(map[string]bool)
	for _, h := range strings.Split(flag, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if seen[h] {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' is listed twice in --hosts", h),
				"Each host runs every task once; list it a single time.")
		}
		seen[h] = true
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("--hosts '%s' has no host names", flag),
			"Try something like --hosts web1,web2")
	}
	return hosts, nil
}
