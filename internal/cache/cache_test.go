package cache

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/remote"
	rtesting "github.com/rileyhilliard/rollout/internal/remote/testing"
	sstesting "github.com/rileyhilliard/rollout/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTunnel forwards every dial to a local miniredis, recording the
// address the flusher asked for on the remote side.
type fakeTunnel struct {
	mu     sync.Mutex
	target string
	asked  []string
}

func (f *fakeTunnel) Dial(network, addr string) (net.Conn, error) {
	f.mu.Lock()
	f.asked = append(f.asked, addr)
	f.mu.Unlock()
	return net.Dial(network, f.target)
}

func TestFlushCommand(t *testing.T) {
	assert.Equal(t, `echo "FLUSHDB" | redis-cli -n 1 -p 6380`, FlushCommand(1, 6380))
}

func TestTunnelFlusher_FlushesOnlyTargetDB(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.DB(1).Set("celery-task-meta-1", "done"))
	require.NoError(t, mr.DB(0).Set("session", "keep"))

	tunnel := &fakeTunnel{target: mr.Addr()}
	require.NoError(t, NewTunnelFlusher(tunnel, 6380).Flush(context.Background(), 1))

	assert.False(t, mr.DB(1).Exists("celery-task-meta-1"))
	assert.True(t, mr.DB(0).Exists("session"))
	require.NotEmpty(t, tunnel.asked)
	assert.Equal(t, "127.0.0.1:6380", tunnel.asked[0])
}

func TestTunnelFlusher_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	tunnel := &fakeTunnel{target: mr.Addr()}
	mr.Close()

	err := NewTunnelFlusher(tunnel, 6379).Flush(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "FLUSHDB on redis db 1")
}

func newExecutor(t *testing.T, dryRun bool, hosts ...string) (*remote.Executor, *rtesting.FakeDialer) {
	t.Helper()
	d := rtesting.NewFakeDialer()
	for _, h := range hosts {
		d.AddHost(h)
	}
	ex := remote.New(remote.Config{
		Hosts:  hosts,
		User:   "shop",
		Dialer: d.Dial,
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		DryRun: dryRun,
	})
	return ex, d
}

func TestCLIFlusher(t *testing.T) {
	ex, d := newExecutor(t, false, "web1")

	require.NoError(t, NewCLIFlusher(ex, 6379).Flush(context.Background(), 1))
	assert.Equal(t, []string{`echo "FLUSHDB" | redis-cli -n 1 -p 6379`}, d.Client("web1").Commands())
}

func TestCLIFlusher_ToleratesFailure(t *testing.T) {
	ex, d := newExecutor(t, false, "web1")
	d.Client("web1").SetCommandResponse("redis-cli", sstesting.CommandResponse{
		Stderr:   []byte("Could not connect to Redis at 127.0.0.1:6379: Connection refused\n"),
		ExitCode: 1,
	})

	assert.NoError(t, NewCLIFlusher(ex, 6379).Flush(context.Background(), 1))
}

func TestForExecutor_CLI(t *testing.T) {
	ex, _ := newExecutor(t, false, "web1")
	assert.IsType(t, &CLIFlusher{}, ForExecutor(config.FlushModeCLI, ex, 6379, nil))
}

func TestForExecutor_TunnelNeedsRealConnection(t *testing.T) {
	ex, _ := newExecutor(t, false, "web1")

	err := ForExecutor(config.FlushModeTunnel, ex, 6379, nil).Flush(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open tunnels")
}

func TestForExecutor_TunnelDryRun(t *testing.T) {
	ex, d := newExecutor(t, true, "web1", "web2")
	log := logger.NewBufferLogger()

	require.NoError(t, ForExecutor(config.FlushModeTunnel, ex, 6379, log).Flush(context.Background(), 1))
	assert.Zero(t, d.DialCount())
	assert.True(t, log.Contains("info", "[web2] FLUSHDB 1"))
}
