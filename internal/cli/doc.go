// Package cli implements the rollout command-line interface.
//
// # Command Structure
//
// Environments are commands. Selecting one resolves the project paths
// for that environment, and the remaining arguments are task names run
// in order on every host:
//
//	rollout staging deploy
//	rollout production checkout restart --yes
//	rollout staging bootstrap --hosts web3
//
// The other commands inspect or edit configuration:
//
//	rollout tasks                  - List tasks
//	rollout plan <task>            - Show what a task invokes
//	rollout show <environment>     - Show resolved paths and hosts
//	rollout hosts [add|remove]     - Manage an environment's hosts
//	rollout init                   - Create rollout.yaml
//
// # Environment Registration
//
// Environment commands are registered before Cobra parses flags, using a
// pre-scan of os.Args for --config. Staging and production are always
// registered so that "rollout staging deploy" without a config file
// reports the missing config instead of an unknown command.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --quiet, --no-color) are defined on
// the root command. Environment commands add --hosts, --yes and --dry-run
// through AddEnvironmentFlags.
package cli
