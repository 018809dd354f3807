package remote

import (
	"sort"
	"sync"

	"github.com/rileyhilliard/rollout/pkg/sshutil"
)

// Dialer opens a connection to an SSH target ("user@host").
type Dialer func(target string) (sshutil.SSHClient, error)

// SSHDialer returns a Dialer backed by sshutil.Dial.
func SSHDialer(opts sshutil.DialOptions) Dialer {
	return func(target string) (sshutil.SSHClient, error) {
		return sshutil.Dial(target, opts)
	}
}

// Pool caches connections by (host, login) so every command a run sends
// to a host as a given user shares one SSH connection.
type Pool struct {
	mu    sync.Mutex
	dial  Dialer
	conns map[string]sshutil.SSHClient
	dials int
}

// NewPool creates an empty pool that connects with dial.
func NewPool(dial Dialer) *Pool {
	return &Pool{
		dial:  dial,
		conns: make(map[string]sshutil.SSHClient),
	}
}

// Get returns the cached connection for host as login, dialing it on
// first use. A cached connection that no longer accepts sessions is
// dropped and redialed.
func (p *Pool) Get(host, login string) (sshutil.SSHClient, bool, error) {
	target := sshutil.Target(login, host)

	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[target]; ok {
		if isAlive(conn) {
			return conn, true, nil
		}
		conn.Close() //nolint:errcheck // Cleanup, error not actionable
		delete(p.conns, target)
	}

	conn, err := p.dial(target)
	if err != nil {
		return nil, false, err
	}
	p.dials++
	p.conns[target] = conn
	return conn, false, nil
}

// Dials returns how many connections the pool has opened.
func (p *Pool) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// Targets returns the cached connection targets, sorted.
func (p *Pool) Targets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	targets := make([]string, 0, len(p.conns))
	for t := range p.conns {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// CloseAll closes every cached connection and empties the pool.
// The first close error is returned.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.conns, target)
	}
	return first
}

// isAlive checks if a real SSH connection still accepts sessions.
// Other SSHClient implementations are assumed healthy.
func isAlive(conn sshutil.SSHClient) bool {
	c, ok := conn.(*sshutil.Client)
	if !ok {
		return true
	}
	if c.Client == nil {
		return false
	}
	session, err := c.NewSession()
	if err != nil {
		return false
	}
	session.Close() //nolint:errcheck // Session close error is not meaningful in health check
	return true
}
