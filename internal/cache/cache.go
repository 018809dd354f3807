// Package cache flushes the redis database that holds celery task results
// before celeryd restarts.
package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rileyhilliard/rollout/internal/config"
	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/pkg/sshutil"

	backend "github.com/redis/go-redis/v9"
)

// Flusher empties one redis database.
type Flusher interface {
	Flush(ctx context.Context, db int) error
}

// FlushCommand returns the shell line the CLI flusher runs.
func FlushCommand(db, port int) string {
	return fmt.Sprintf(`echo "FLUSHDB" | redis-cli -n %d -p %d`, db, port)
}

// CLIFlusher pipes FLUSHDB into redis-cli on the remote hosts. A non-zero
// exit is logged by the executor and tolerated.
type CLIFlusher struct {
	exec *remote.Executor
	port int
}

// NewCLIFlusher creates a flusher that runs redis-cli through ex.
func NewCLIFlusher(ex *remote.Executor, port int) *CLIFlusher {
	return &CLIFlusher{exec: ex, port: port}
}

// Flush runs redis-cli against db.
func (f *CLIFlusher) Flush(ctx context.Context, db int) error {
	_, err := f.exec.Run(ctx, FlushCommand(db, f.port), remote.Options{WarnOnly: true})
	return err
}

// TunnelFlusher talks the redis protocol to 127.0.0.1:<port> on the remote
// side of an SSH connection. Nothing has to be installed on the host
// besides redis itself.
type TunnelFlusher struct {
	tunnel  sshutil.Tunneler
	port    int
	timeout time.Duration
}

// NewTunnelFlusher creates a flusher dialing through t.
func NewTunnelFlusher(t sshutil.Tunneler, port int) *TunnelFlusher {
	return &TunnelFlusher{tunnel: t, port: port, timeout: 5 * time.Second}
}

// Flush selects db and issues FLUSHDB.
func (f *TunnelFlusher) Flush(ctx context.Context, db int) error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(f.port))

	client := backend.NewClient(&backend.Options{
		Addr: addr,
		DB:   db,
		Dialer: func(_ context.Context, network, addr string) (net.Conn, error) {
			return f.tunnel.Dial(network, addr)
		},
		DialTimeout:  f.timeout,
		ReadTimeout:  f.timeout,
		WriteTimeout: f.timeout,
		MaxRetries:   1,
	})
	defer client.Close() //nolint:errcheck // Nothing to do with a close error here

	if err := client.FlushDB(ctx).Err(); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("FLUSHDB on redis db %d at %s failed", db, addr),
			"Check that redis is running on the host and cache_port is right")
	}
	return nil
}

// hostTunnels runs a TunnelFlusher on each host of an executor.
type hostTunnels struct {
	exec *remote.Executor
	port int
	log  logger.Logger
}

func (h *hostTunnels) Flush(ctx context.Context, db int) error {
	for _, host := range h.exec.Hosts() {
		if h.exec.DryRun() {
			h.log.Info("dry run: [%s] FLUSHDB %d via tunnel to port %d", host, db, h.port)
			continue
		}
		t, err := h.exec.Tunnel(host)
		if err != nil {
			return err
		}
		h.log.Debug("[%s] FLUSHDB %d via tunnel to port %d", host, db, h.port)
		if err := NewTunnelFlusher(t, h.port).Flush(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

// ForExecutor returns the flusher for mode ("cli" or "tunnel") on the
// executor's hosts.
func ForExecutor(mode string, ex *remote.Executor, port int, log logger.Logger) Flusher {
	if log == nil {
		log = logger.Noop()
	}
	if mode == config.FlushModeTunnel {
		return &hostTunnels{exec: ex, port: port, log: log}
	}
	return NewCLIFlusher(ex, port)
}
