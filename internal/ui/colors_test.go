package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorSuccess, ColorError, ColorWarning, ColorInfo,
		ColorPrimary, ColorSecondary, ColorMuted,
	}

	for _, color := range colors {
		assert.NotEmpty(t, string(color))
	}
}

func TestStylesRenderText(t *testing.T) {
	styles := map[string]lipgloss.Style{
		"success": SuccessStyle(),
		"error":   ErrorStyle(),
		"warning": WarningStyle(),
		"muted":   MutedStyle(),
		"bold":    BoldStyle(),
	}
	for name, style := range styles {
		assert.Contains(t, style.Render(name), name)
	}
}

func TestDisableColors(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	lipgloss.SetColorProfile(termenv.ANSI)
	assert.True(t, ColorsEnabled())

	DisableColors()
	assert.False(t, ColorsEnabled())
	assert.Equal(t, "plain", ErrorStyle().Render("plain"))
}
