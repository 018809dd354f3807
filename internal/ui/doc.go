// Package ui renders rollout's terminal output.
//
// Styles are built on Lip Gloss with plain ANSI colors so they read on
// any theme. DisableColors switches everything to monochrome for
// --no-color and NO_COLOR.
//
// PhaseDisplay prints one line per task and host:
//
//	pd := ui.NewPhaseDisplay(os.Stdout)
//	pd.RenderTask("deploy", "web1")
//	pd.CommandPrompt("web1", "run", "git pull")
//	pd.RenderSuccess("deploy", elapsed)
//
// Spinner animates a single label while a connection is being opened.
// It is only used when stdout is a terminal.
//
// RenderSimpleTable and RenderKeyValues format the listing commands
// (tasks, show).
package ui
