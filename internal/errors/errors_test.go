package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesAreDistinct(t *testing.T) {
	codes := []string{ErrConfig, ErrSSH, ErrExec, ErrPrecondition, ErrMissing, ErrAbort}
	seen := map[string]bool{}
	for _, c := range codes {
		assert.NotEmpty(t, c)
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}

func TestError_Rendering(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(ErrConfig, "No hosts configured for staging", ""),
			want: "✗ No hosts configured for staging\n",
		},
		{
			name: "message and suggestion",
			err:  New(ErrConfig, "Unknown environment 'prod'", "Use staging or production"),
			want: "✗ Unknown environment 'prod'\n\n  Use staging or production\n",
		},
		{
			name: "cause sits between message and suggestion",
			err:  WrapWithCode(io.EOF, ErrSSH, "Can't reach web1", "ssh web1"),
			want: "✗ Can't reach web1\n\n  EOF\n\n  ssh web1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_DefaultsToSSH(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, "Lost connection to web2")
	assert.Equal(t, ErrSSH, err.Code)
	assert.Empty(t, err.Suggestion)
	assert.Same(t, io.ErrUnexpectedEOF, err.Cause)
}

func TestError_UnwrapChain(t *testing.T) {
	root := errors.New("exit status 2")
	wrapped := WrapWithCode(root, ErrExec, "git pull failed on web1", "")
	outer := fmt.Errorf("checkout: %w", wrapped)

	assert.ErrorIs(t, outer, root)

	var rErr *Error
	require.ErrorAs(t, outer, &rErr)
	assert.Equal(t, ErrExec, rErr.Code)

	assert.True(t, IsCode(outer, ErrExec))
	assert.False(t, IsCode(outer, ErrSSH))
	assert.False(t, IsCode(root, ErrExec))
	assert.False(t, IsCode(nil, ErrExec))
}

func TestNewPrecondition(t *testing.T) {
	err := NewPrecondition("deploy", "code_root")
	assert.Equal(t, ErrPrecondition, err.Code)
	assert.Contains(t, err.Message, "'deploy' needs 'code_root'")
	assert.Contains(t, err.Suggestion, "rollout staging <task>")
}

func TestNewMissing(t *testing.T) {
	path := "/home/shop/www/staging/shop/conf/nginx/shop-staging.conf"
	err := NewMissing("update_nginx: config not found", path)
	assert.Equal(t, ErrMissing, err.Code)
	assert.Contains(t, err.Suggestion, path)
	assert.Contains(t, err.Suggestion, "checkout")
}

func TestNewAborted(t *testing.T) {
	err := NewAborted("Production checkout declined")
	assert.Equal(t, ErrAbort, err.Code)
	assert.True(t, strings.HasPrefix(err.Error(), "✗ Production checkout declined"))
	assert.Nil(t, err.Unwrap())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{"nil", nil, 0, false},
		{"plain error", errors.New("boom"), 0, false},
		{"structured error", New(ErrConfig, "bad", ""), 0, false},
		{"exit error", NewExitError(1), 1, true},
		{"wrapped exit error", fmt.Errorf("doctor: %w", NewExitError(3)), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetExitCode(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestExitError_Message(t *testing.T) {
	var err error = NewExitError(1)
	assert.Equal(t, "exit code 1", err.Error())
}
