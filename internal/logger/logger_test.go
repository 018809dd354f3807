package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLogger_DebugGatedByEnv(t *testing.T) {
	for _, value := range []string{"1", "true"} {
		t.Run("set to "+value, func(t *testing.T) {
			t.Setenv(DebugEnv, value)
			var buf bytes.Buffer
			NewWriterLogger("[remote]", &buf).Debug("dialing %s", "shop@web1")
			assert.Equal(t, "DEBUG\t[remote] dialing shop@web1\n", buf.String())
		})
	}

	t.Run("unset", func(t *testing.T) {
		t.Setenv(DebugEnv, "")
		os.Unsetenv(DebugEnv)
		var buf bytes.Buffer
		NewWriterLogger("[remote]", &buf).Debug("dialing %s", "shop@web1")
		assert.Empty(t, buf.String())
	})
}

func TestEnvLogger_DebugVerbose(t *testing.T) {
	t.Setenv(DebugEnv, "")
	SetVerbose(true)
	defer SetVerbose(false)

	var buf bytes.Buffer
	l := NewWriterLogger("[verbose]", &buf)
	l.Debug("shown with --verbose")

	assert.Contains(t, buf.String(), "[verbose] shown with --verbose")
}

func TestEnvLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(Logger)
		level string
		text  string
	}{
		{"info", func(l Logger) { l.Info("info message %d", 42) }, "INFO", "[lvl] info message 42"},
		{"warn", func(l Logger) { l.Warn("warning message") }, "WARN", "[lvl] warning message"},
		{"error", func(l Logger) { l.Error("error message") }, "ERROR", "[lvl] error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewWriterLogger("[lvl]", &buf))

			out := buf.String()
			assert.True(t, strings.HasPrefix(out, tt.level), "got %q", out)
			assert.Contains(t, out, tt.text)
		})
	}
}

func TestEnvLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger("", &buf).Info("bare")

	assert.Equal(t, "INFO\tbare\n", buf.String())
}

func TestNoopLogger(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info")
		l.Warn("warn")
		l.Error("error")
	})
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("probe %s", "web1")
	l.Info("No requirements file at %s. Skipping", "/srv/req.txt")
	l.Warn("flush %s failed", "shop-staging")
	l.Error("giving up")

	assert.Equal(t, []LogMessage{
		{Level: "debug", Message: "probe web1"},
		{Level: "info", Message: "No requirements file at /srv/req.txt. Skipping"},
		{Level: "warn", Message: "flush shop-staging failed"},
		{Level: "error", Message: "giving up"},
	}, l.Messages)

	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.Contains("info", "Skipping"))
	assert.False(t, l.Contains("warn", "Skipping"))
	assert.False(t, l.Contains("info", "installing"))

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("warn"))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	require.NotNil(t, original)
	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Warn("routed")

	assert.True(t, buf.Contains("warn", "routed"))
}
