package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestNewTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Task", Width: 20},
		{Title: "Needs", Width: 10},
	}
	rows := []table.Row{
		{"bootstrap", "env"},
		{"deploy", "env"},
	}

	view := NewTable(columns, rows).View()

	assert.Contains(t, view, "Task")
	assert.Contains(t, view, "Needs")
	assert.Contains(t, view, "bootstrap")
	assert.Contains(t, view, "deploy")
}

func TestNewTable_EmptyRows(t *testing.T) {
	view := NewTable([]TableColumn{{Title: "Task", Width: 20}}, []table.Row{}).View()
	assert.Contains(t, view, "Task")
}

func TestRenderSimpleTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "Environment", Width: 15},
		{Title: "Hosts", Width: 20},
	}
	rows := [][]string{
		{"staging", "web1"},
		{"production", "web2, web3"},
	}

	output := RenderSimpleTable(columns, rows)

	for _, want := range []string{"Environment", "Hosts", "staging", "web1", "production", "web2, web3"} {
		assert.Contains(t, output, want)
	}
}

func TestRenderSimpleTable_EmptyRows(t *testing.T) {
	assert.Empty(t, RenderSimpleTable([]TableColumn{{Title: "Name", Width: 20}}, nil))
}

func TestRenderKeyValues(t *testing.T) {
	prev := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
	DisableColors()

	out := RenderKeyValues([]KeyValue{
		{Key: "project", Value: "shop"},
		{Key: "code_root", Value: "/home/shop/www"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "  project    shop", lines[0])
	assert.Equal(t, "  code_root  /home/shop/www", lines[1])
}

func TestRenderKeyValues_Empty(t *testing.T) {
	assert.Empty(t, RenderKeyValues(nil))
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"shorter than width", "foo", 5, "foo  "},
		{"equal to width", "foobar", 6, "foobar"},
		{"longer than width", "foobar", 3, "foobar"},
		{"empty string", "", 3, "   "},
		{"zero width", "foo", 0, "foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, padRight(tt.input, tt.width))
		})
	}
}
