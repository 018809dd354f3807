package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is a bytes.Buffer safe for the spinner's animation goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_Idle(t *testing.T) {
	s := NewSpinner(&lockedBuffer{}, "Connecting to web1")
	assert.Equal(t, SpinnerIdle, s.State())
	assert.Zero(t, s.Elapsed())
}

func TestSpinner_Success(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSpinner(out, "Connecting to shop@web1")
	s.Start()
	assert.Equal(t, SpinnerRunning, s.State())
	time.Sleep(150 * time.Millisecond)
	s.Success()

	assert.Equal(t, SpinnerDone, s.State())
	assert.Greater(t, s.Elapsed(), time.Duration(0))
	text := out.String()
	assert.Contains(t, text, "Connecting to shop@web1...")
	assert.Contains(t, text, SymbolComplete)
	assert.True(t, strings.HasSuffix(text, "\n"))
}

func TestSpinner_Fail(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSpinner(out, "Testing connection to web9")
	s.Start()
	s.Fail()

	assert.Equal(t, SpinnerFailed, s.State())
	assert.Contains(t, out.String(), SymbolFail)
}

func TestSpinner_ResolveWithoutStartIsNoop(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSpinner(out, "idle")
	s.Success()
	s.Fail()
	assert.Equal(t, SpinnerIdle, s.State())
	assert.Empty(t, out.String())
}

func TestSpinner_StartTwice(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSpinner(out, "twice")
	s.Start()
	s.Start()
	s.Success()
	s.Success()

	assert.Equal(t, 1, strings.Count(out.String(), SymbolComplete))
}

func TestSpinner_ErasesFrameBeforeFinalLine(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSpinner(out, "web1")
	s.Start()
	s.Success()

	text := out.String()
	idx := strings.LastIndex(text, "\r")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, text[idx:], "web1")
	assert.NotContains(t, text[idx:], "...")
}

func TestConnectFrames(t *testing.T) {
	assert.Len(t, ConnectFrames.Frames, 4)
	assert.Equal(t, 100*time.Millisecond, ConnectFrames.FPS)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Millisecond, "0.01s"},
		{99 * time.Millisecond, "0.10s"},
		{300 * time.Millisecond, "0.3s"},
		{2500 * time.Millisecond, "2.5s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}
