// Package remote runs shell commands on the hosts of an environment.
//
// An Executor runs each command on its hosts in order and stops at the
// first failure. Connections are opened on first use and shared per
// (host, login) pair through a Pool, so a deploy touching one host twenty
// times pays for one SSH handshake per login.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/rollout/internal/logger"
	"github.com/rileyhilliard/rollout/internal/output"
	"github.com/rileyhilliard/rollout/internal/ui"
	"github.com/rileyhilliard/rollout/internal/util"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
)

// Options modify how a single command runs.
type Options struct {
	// AsUser is the sudo target user. Setting it implies Sudo.
	AsUser string

	// Sudo escalates with sudo after logging in as the project's sudo user.
	Sudo bool

	// Activation is a shell snippet that must succeed before the command,
	// typically "source <venv>/bin/activate".
	Activation string

	// Dir is the remote working directory.
	Dir string

	// WarnOnly turns a non-zero exit into a warning instead of an error.
	WarnOnly bool

	// Interactive attaches the operator's terminal to the command.
	Interactive bool
}

// Escalated reports whether the command runs through sudo.
func (o Options) Escalated() bool {
	return o.Sudo || o.AsUser != ""
}

// Result describes one command run on one host.
type Result struct {
	Host     string
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	DryRun   bool
}

// Failed reports a non-zero exit status.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Config configures an Executor.
type Config struct {
	// Hosts are the targets, run in order.
	Hosts []string

	// User is the login for plain commands.
	User string

	// SudoUser is the login for escalated commands. Defaults to User.
	SudoUser string

	// Dialer opens connections. Required unless DryRun is set.
	Dialer Dialer

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	Logger logger.Logger

	// DryRun prints commands instead of running them.
	DryRun bool

	// Quiet hides command prompts and remote output.
	Quiet bool

	// Animate shows a spinner while connecting. Only set it for terminals.
	Animate bool
}

// Executor runs commands on a set of hosts.
type Executor struct {
	cfg     Config
	hosts   []string
	pool    *Pool
	log     logger.Logger
	display *ui.PhaseDisplay
}

// New creates an Executor with its own connection pool.
func New(cfg Config) *Executor {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	if cfg.SudoUser == "" {
		cfg.SudoUser = cfg.User
	}
	if cfg.Dialer == nil {
		cfg.Dialer = func(target string) (sshutil.SSHClient, error) {
			return nil, fmt.Errorf("no dialer configured for %s", target)
		}
	}

	hosts := make([]string, len(cfg.Hosts))
	copy(hosts, cfg.Hosts)

	return &Executor{
		cfg:     cfg,
		hosts:   hosts,
		pool:    NewPool(cfg.Dialer),
		log:     cfg.Logger,
		display: ui.NewPhaseDisplay(cfg.Stdout),
	}
}

// ForHost returns an executor bound to a single host. It shares the
// parent's connection pool and settings.
func (e *Executor) ForHost(host string) *Executor {
	child := *e
	child.hosts = []string{host}
	return &child
}

// Hosts returns the hosts this executor targets.
func (e *Executor) Hosts() []string {
	hosts := make([]string, len(e.hosts))
	copy(hosts, e.hosts)
	return hosts
}

// DryRun reports whether commands are only printed.
func (e *Executor) DryRun() bool {
	return e.cfg.DryRun
}

// Pool returns the shared connection pool.
func (e *Executor) Pool() *Pool {
	return e.pool
}

// Compose builds the shell line for cmd under opts, without sudo wrapping.
func Compose(cmd string, opts Options) string {
	var dir string
	if opts.Dir != "" {
		dir = "cd " + util.ShellQuotePreserveTilde(opts.Dir)
	}
	return util.JoinCommands(opts.Activation, dir, cmd)
}

// Wrap returns the exact line sent to the remote shell.
func Wrap(cmd string, opts Options) string {
	line := Compose(cmd, opts)
	if !opts.Escalated() {
		return line
	}
	sudo := "sudo -H"
	if opts.AsUser != "" {
		sudo += " -u " + opts.AsUser
	}
	return sudo + " bash -c " + util.ShellQuote(line)
}

// Run executes cmd on every host in order and returns the result from the
// last host. A non-zero exit stops the run with an EXEC error unless
// opts.WarnOnly is set.
func (e *Executor) Run(ctx context.Context, cmd string, opts Options) (Result, error) {
	var last Result
	for _, host := range e.hosts {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		res, err := e.runOn(host, cmd, opts)
		if err != nil {
			return res, err
		}
		last = res
	}
	return last, nil
}

// Exists reports whether path exists on every host. It never fails on a
// missing path; only transport errors are returned. The probe is read-only,
// so it runs in dry-run mode too.
func (e *Executor) Exists(ctx context.Context, path string) (bool, error) {
	cmd := "test -e " + util.ShellQuote(path)
	for _, host := range e.hosts {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		client, err := e.connect(host, e.cfg.User)
		if err != nil {
			return false, err
		}
		_, _, code, err := client.Exec(cmd)
		if err != nil {
			return false, err
		}
		e.log.Debug("[%s] %s -> %d", host, cmd, code)
		if code != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Tunnel returns a connection to host that can dial from the remote side.
func (e *Executor) Tunnel(host string) (sshutil.Tunneler, error) {
	client, err := e.connect(host, e.cfg.User)
	if err != nil {
		return nil, err
	}
	t, ok := client.(sshutil.Tunneler)
	if !ok {
		return nil, fmt.Errorf("connection to %s cannot open tunnels", host)
	}
	return t, nil
}

// Close closes every pooled connection.
func (e *Executor) Close() error {
	return e.pool.CloseAll()
}

func (e *Executor) runOn(host, cmd string, opts Options) (Result, error) {
	shown := Compose(cmd, opts)
	line := Wrap(cmd, opts)
	res := Result{Host: host, Command: shown}

	verb := "run"
	if opts.Escalated() {
		verb = "sudo"
	}
	if !e.cfg.Quiet {
		e.display.CommandPrompt(host, verb, shown)
	}

	if e.cfg.DryRun {
		res.DryRun = true
		e.log.Debug("dry run: [%s] %s", host, line)
		return res, nil
	}

	login := e.cfg.User
	if opts.Escalated() {
		login = e.cfg.SudoUser
	}
	client, err := e.connect(host, login)
	if err != nil {
		return res, err
	}

	e.log.Debug("[%s] as %s: %s", host, login, line)

	var stdout, stderr bytes.Buffer
	var code int
	if opts.Interactive {
		code, err = client.ExecInteractive(line, e.cfg.Stdin,
			io.MultiWriter(&stdout, e.cfg.Stdout), io.MultiWriter(&stderr, e.cfg.Stderr))
	} else {
		code, err = e.stream(client, host, line, &stdout, &stderr)
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.ExitCode = code
	if err != nil {
		return res, err
	}

	if code == 0 {
		return res, nil
	}
	if opts.WarnOnly {
		e.log.Warn("[%s] %s exited %d, continuing", host, shown, code)
		if !e.cfg.Quiet {
			e.display.RenderWarning(fmt.Sprintf("[%s] exit code %d, continuing", host, code))
		}
		return res, nil
	}
	return res, commandError(host, shown, res.Stderr, code)
}

// stream runs line with output prefixed by host, capturing a copy.
func (e *Executor) stream(client sshutil.SSHClient, host, line string, stdout, stderr *bytes.Buffer) (int, error) {
	if e.cfg.Quiet {
		return client.ExecStream(line, stdout, stderr)
	}

	h := output.NewHostStream(host, e.cfg.Stdout, e.cfg.Stderr)
	outW, errW := h.Stdout(), h.Stderr()
	code, err := client.ExecStream(line, io.MultiWriter(stdout, outW), io.MultiWriter(stderr, errW))
	outW.Flush() //nolint:errcheck // Display only
	errW.Flush() //nolint:errcheck // Display only
	return code, err
}

// connect returns the pooled connection for host as login.
func (e *Executor) connect(host, login string) (sshutil.SSHClient, error) {
	var spinner *ui.Spinner
	if e.cfg.Animate && !e.cfg.Quiet {
		spinner = ui.NewSpinner(e.cfg.Stderr, "Connecting to "+sshutil.Target(login, host))
	}

	start := time.Now()
	client, reused, err := e.getWithSpinner(host, login, spinner)
	if err != nil {
		e.log.Debug("connect %s failed: %v", sshutil.Target(login, host), err)
		return nil, err
	}
	if !reused {
		e.log.Debug("connected to %s in %s", sshutil.Target(login, host), time.Since(start).Round(time.Millisecond))
	}
	return client, nil
}

func (e *Executor) getWithSpinner(host, login string, spinner *ui.Spinner) (sshutil.SSHClient, bool, error) {
	if spinner == nil || e.hasConnection(host, login) {
		return e.pool.Get(host, login)
	}

	spinner.Start()
	client, reused, err := e.pool.Get(host, login)
	if err != nil {
		spinner.Fail()
		return nil, false, err
	}
	spinner.Success()
	return client, reused, nil
}

func (e *Executor) hasConnection(host, login string) bool {
	target := sshutil.Target(login, host)
	for _, t := range e.pool.Targets() {
		if t == target {
			return true
		}
	}
	return false
}

// Describe returns "user@host" targets for display, e.g. in dry-run plans.
func (e *Executor) Describe() string {
	targets := make([]string, len(e.hosts))
	for i, h := range e.hosts {
		targets[i] = sshutil.Target(e.cfg.User, h)
	}
	return strings.Join(targets, ", ")
}
