package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rileyhilliard/rollout/internal/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds dial and handshake when DialOptions.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Client is an open SSH connection to one deploy host.
type Client struct {
	*ssh.Client
	Host    string // target as given, e.g. "shop@web1"
	Address string // resolved host:port
}

// DialOptions controls how Dial connects.
type DialOptions struct {
	Timeout time.Duration

	// InsecureIgnoreHostKey skips known_hosts verification.
	InsecureIgnoreHostKey bool

	// KnownHosts overrides ~/.ssh/known_hosts.
	KnownHosts string
}

// Target joins a login user and a host entry. A user already present in
// host ("ops@web1") wins over login.
func Target(login, host string) string {
	if login == "" || strings.Contains(host, "@") {
		return host
	}
	return login + "@" + host
}

// Dial connects to target, which may be an ~/.ssh/config alias, a bare
// hostname, user@host, or host:port. Settings from ~/.ssh/config fill in
// whatever the target leaves out.
func Dial(target string, opts DialOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ep := resolve(target)

	auth, err := authMethods(ep)
	if err != nil {
		return nil, err
	}

	hostKeys, err := hostKeyCallback(opts)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't load known_hosts",
			"Check the permissions on ~/.ssh/known_hosts")
	}

	cfg := &ssh.ClientConfig{
		User:            ep.user,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         opts.Timeout,
	}

	addr := ep.address()
	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach %s at %s", target, addr),
			dialHint(err))
	}

	// ClientConfig.Timeout only covers the TCP dial, so bound the handshake too.
	_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with %s failed", target),
			handshakeHint(err, ep.lockedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    target,
		Address: addr,
	}, nil
}

// Close closes the connection. Safe on a zero Client.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *Client) GetHost() string    { return c.Host }
func (c *Client) GetAddress() string { return c.Address }

// Dial opens a connection from the remote end, e.g. to redis on the
// remote loopback interface.
func (c *Client) Dial(network, addr string) (net.Conn, error) {
	return c.Client.Dial(network, addr)
}
