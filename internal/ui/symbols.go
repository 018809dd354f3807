package ui

// Status glyphs used in phase lines, doctor output and the task plan.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolPending  = "○" // planned but not run, or artifact absent
	SymbolProgress = "◐"
	SymbolComplete = "●"
	SymbolSkipped  = "⊘"
	SymbolWarning  = "⚠"
	SymbolTask     = "▸" // task header in run output
)
