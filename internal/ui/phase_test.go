package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseDisplay_RenderTask(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderTask("deploy", "web1")

	assert.Contains(t, buf.String(), SymbolTask)
	assert.Contains(t, buf.String(), "deploy")
	assert.Contains(t, buf.String(), "web1")
}

func TestPhaseDisplay_ProgressThenSuccess(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderProgress("Connecting to web1")
	assert.Contains(t, buf.String(), "Connecting to web1...")

	pd.RenderSuccess("Connected to web1", 300*time.Millisecond)
	output := buf.String()
	assert.Contains(t, output, "\r"+strings.Repeat(" ", 80)+"\r", "progress line is cleared")
	assert.Contains(t, output, SymbolComplete)
	assert.Contains(t, output, "0.3s")
}

func TestPhaseDisplay_NoClearWithoutProgress(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderSuccess("checkout", time.Second)

	assert.NotContains(t, buf.String(), "\r")
}

func TestPhaseDisplay_RenderFailed(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderFailed("deploy", 2300*time.Millisecond, errors.New("boom"))

	assert.Contains(t, buf.String(), SymbolFail)
	assert.Contains(t, buf.String(), "deploy")
	assert.Contains(t, buf.String(), "2.3s")
}

func TestPhaseDisplay_RenderSkipped(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("update_requirements", "no requirements file")
	assert.Contains(t, buf.String(), SymbolSkipped)
	assert.Contains(t, buf.String(), "(no requirements file)")

	buf.Reset()
	pd.RenderSkipped("update_requirements", "")
	assert.NotContains(t, buf.String(), "(")
}

func TestPhaseDisplay_RenderWarning(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderWarning("exit 1, continuing")

	assert.Contains(t, buf.String(), SymbolWarning)
	assert.Contains(t, buf.String(), "exit 1, continuing")
}

func TestPhaseDisplay_CommandPrompt(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).CommandPrompt("web1", "sudo", "supervisorctl update")

	assert.Contains(t, buf.String(), "[web1] sudo:")
	assert.Contains(t, buf.String(), "supervisorctl update")
}

func TestPhaseDisplay_RenderSubStatus(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).RenderSubStatus(SymbolPending, "web1", "connected")

	assert.True(t, strings.HasPrefix(buf.String(), "  "))
	assert.Contains(t, buf.String(), "connected")
}

func TestPhaseDisplay_Divider(t *testing.T) {
	var buf bytes.Buffer
	NewPhaseDisplay(&buf).Divider()

	assert.Contains(t, buf.String(), strings.Repeat("━", DividerWidth))
}

func TestFormatPhase(t *testing.T) {
	assert.Contains(t, FormatPhase(SymbolSuccess, ColorSuccess, "done", ""), "done")
	assert.Contains(t, FormatPhase(SymbolSuccess, ColorSuccess, "done", "1.0s"), "1.0s")
}
