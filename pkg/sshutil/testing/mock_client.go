package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// DefaultPrograms are the programs a freshly provisioned deploy host has on
// its PATH. Anything else exits 127 unless a canned response matches.
var DefaultPrograms = []string{
	"bash", "sh", "sudo", "source", ".", "cd", "echo", "printf", "true", "false", "exit",
	"test", "command", "ls", "cat", "cp", "mv", "rm", "ln", "mkdir", "touch", "chmod", "chown",
	"whoami", "hostname", "uname", "id", "pwd", "env", "sleep",
	"git", "python", "python3", "pip", "virtualenv", "psql", "redis-cli",
	"supervisorctl", "service", "nginx", "uwsgi", "celery",
}

// MockClient simulates an SSH connection for testing.
// It parses the shell commands a deploy sends (mkdir, touch, test, ln,
// git clone, sudo wrappers, && chains) and executes them against a
// virtual filesystem. Every command is recorded in order.
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	fs        *MockFS
	closed    bool
	commands  map[string]CommandResponse // pattern -> response
	installed map[string]bool
	history   []string
}

// NewMockClient creates a new mock SSH client with an empty filesystem and
// DefaultPrograms installed.
func NewMockClient(host string) *MockClient {
	m := &MockClient{
		host:      host,
		address:   host + ":22",
		fs:        NewMockFS(),
		commands:  make(map[string]CommandResponse),
		installed: make(map[string]bool),
	}
	m.Install(DefaultPrograms...)
	return m
}

// Install puts programs on the host's PATH.
func (m *MockClient) Install(programs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range programs {
		m.installed[p] = true
	}
}

// Uninstall removes programs from the host's PATH.
func (m *MockClient) Uninstall(programs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range programs {
		delete(m.installed, p)
	}
}

// Exec runs a command against the virtual filesystem.
// Canned responses are checked first: exact matches, then regex patterns
// in sorted order so results are stable.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}

	m.history = append(m.history, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	patterns := make([]string, 0, len(m.commands))
	for pattern := range m.commands {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			resp := m.commands[pattern]
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}

	return m.parseAndExecute(cmd)
}

// ExecStream runs a command and writes output to the provided writers.
func (m *MockClient) ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	return m.ExecStreamContext(context.Background(), cmd, stdout, stderr)
}

// ExecStreamContext runs a command with context cancellation support.
func (m *MockClient) ExecStreamContext(ctx context.Context, cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	select {
	case <-ctx.Done():
		return 130, ctx.Err()
	default:
	}

	out, errOut, code, execErr := m.Exec(cmd)
	if execErr != nil {
		return -1, execErr
	}

	if stdout != nil && len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	if stderr != nil && len(errOut) > 0 {
		_, _ = stderr.Write(errOut)
	}

	return code, nil
}

// ExecInteractive behaves like ExecStream; stdin is ignored.
func (m *MockClient) ExecInteractive(cmd string, _ io.Reader, stdout, stderr io.Writer) (exitCode int, err error) {
	return m.ExecStream(cmd, stdout, stderr)
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// Commands returns every command received, in order.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// GetFS returns the mock filesystem for direct manipulation in tests.
func (m *MockClient) GetFS() *MockFS {
	return m.fs
}

var sudoPrefix = regexp.MustCompile(`^sudo(?: -H)?(?: -u \S+)? bash -c (.+)$`)

// parseAndExecute runs a command line. An && chain stops at the first
// non-zero segment, like a real shell.
func (m *MockClient) parseAndExecute(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	cmd = strings.TrimSpace(cmd)

	if match := sudoPrefix.FindStringSubmatch(cmd); match != nil {
		cmd = unquote(match[1])
	}

	var out, errOut []byte
	for _, segment := range strings.Split(cmd, " && ") {
		o, e, code, _ := m.execSegment(segment)
		out = append(out, o...)
		errOut = append(errOut, e...)
		if code != 0 {
			return out, errOut, code, nil
		}
	}
	return out, errOut, 0, nil
}

func (m *MockClient) execSegment(cmd string) ([]byte, []byte, int, error) {
	cmd = strings.TrimSuffix(cmd, " 2>/dev/null")
	cmd = strings.TrimSuffix(cmd, " 2>&1")
	cmd = strings.TrimSpace(cmd)

	switch {
	case strings.HasPrefix(cmd, "mkdir "):
		return m.handleMkdir(cmd)
	case strings.HasPrefix(cmd, "touch "):
		return m.handleTouch(cmd)
	case strings.HasPrefix(cmd, "cat "):
		return m.handleCatRead(cmd)
	case strings.HasPrefix(cmd, "rm -rf "):
		return m.handleRm(cmd)
	case strings.HasPrefix(cmd, "ln -s "):
		return m.handleLink(cmd)
	case strings.HasPrefix(cmd, "test -"):
		return m.handleTest(cmd)
	case strings.HasPrefix(cmd, "git clone "):
		return m.handleClone(cmd)
	case strings.HasPrefix(cmd, "cd "):
		return m.handleCd(cmd)
	case strings.HasPrefix(cmd, "command -v "):
		return m.handleCommandV(cmd)
	}

	for _, stage := range strings.Split(cmd, " | ") {
		if stderr, code := m.lookupProgram(stage); code != 0 {
			return nil, stderr, code, nil
		}
	}
	return nil, nil, 0, nil
}

// lookupProgram resolves the first word of a simple command the way a shell
// does: 127 when nothing runnable is found, 126 when the word names a
// directory.
func (m *MockClient) lookupProgram(stage string) ([]byte, int) {
	fields := strings.Fields(stage)
	for len(fields) > 0 && strings.Contains(fields[0], "=") && !strings.HasPrefix(fields[0], "'") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return nil, 0
	}
	word := unquote(fields[0])

	if !strings.Contains(word, "/") {
		if m.installed[word] {
			return nil, 0
		}
		return []byte(fmt.Sprintf("bash: %s: command not found\n", word)), 127
	}
	if m.fs.IsDir(word) {
		return []byte(fmt.Sprintf("bash: %s: Is a directory\n", word)), 126
	}
	if m.installed[path.Base(word)] || m.fs.IsFile(word) {
		return nil, 0
	}
	return []byte(fmt.Sprintf("bash: %s: No such file or directory\n", word)), 127
}

// handleCommandV processes: command -v program
func (m *MockClient) handleCommandV(cmd string) ([]byte, []byte, int, error) {
	prog := extractPath(strings.TrimPrefix(cmd, "command -v "))
	if m.installed[prog] {
		return []byte("/usr/bin/" + prog + "\n"), nil, 0, nil
	}
	return nil, nil, 1, nil
}

// handleMkdir processes: mkdir [-p] path... with brace expansion.
func (m *MockClient) handleMkdir(cmd string) ([]byte, []byte, int, error) {
	args := strings.Fields(strings.TrimPrefix(cmd, "mkdir "))

	createParents := false
	if len(args) > 0 && args[0] == "-p" {
		createParents = true
		args = args[1:]
	}
	if len(args) == 0 {
		return nil, []byte("mkdir: missing operand"), 1, nil
	}

	for _, p := range expandAll(args) {
		if createParents {
			_ = m.fs.MkdirAll(p)
			continue
		}
		if !m.fs.IsDir(path.Dir(p)) {
			return nil, []byte(fmt.Sprintf("mkdir: cannot create directory '%s': No such file or directory", p)), 1, nil
		}
		if err := m.fs.Mkdir(p); err != nil {
			return nil, []byte("mkdir: cannot create directory: " + err.Error()), 1, nil
		}
	}
	return nil, nil, 0, nil
}

// handleTouch creates empty files, keeping existing content.
func (m *MockClient) handleTouch(cmd string) ([]byte, []byte, int, error) {
	args := strings.Fields(strings.TrimPrefix(cmd, "touch "))
	for _, p := range expandAll(args) {
		if !m.fs.IsDir(path.Dir(p)) {
			return nil, []byte(fmt.Sprintf("touch: cannot touch '%s': No such file or directory", p)), 1, nil
		}
		if !m.fs.IsFile(p) {
			_ = m.fs.WriteFile(p, nil)
		}
	}
	return nil, nil, 0, nil
}

// handleCatRead processes: cat "path" or cat path
func (m *MockClient) handleCatRead(cmd string) ([]byte, []byte, int, error) {
	p := extractPath(strings.TrimPrefix(cmd, "cat "))
	if p == "" {
		return nil, []byte("cat: missing file operand"), 1, nil
	}

	content, err := m.fs.ReadFile(p)
	if err != nil {
		return nil, []byte("cat: " + p + ": No such file or directory"), 1, nil
	}
	return content, nil, 0, nil
}

// handleRm processes: rm -rf "path"
func (m *MockClient) handleRm(cmd string) ([]byte, []byte, int, error) {
	p := extractPath(strings.TrimPrefix(cmd, "rm -rf "))
	if p == "" {
		return nil, []byte("rm: missing operand"), 1, nil
	}

	_ = m.fs.Remove(p)
	return nil, nil, 0, nil
}

// handleLink processes: ln -s target name. The link is stored as a file
// holding its target.
func (m *MockClient) handleLink(cmd string) ([]byte, []byte, int, error) {
	args := strings.Fields(strings.TrimPrefix(cmd, "ln -s "))
	if len(args) != 2 {
		return nil, []byte("ln: missing destination file operand"), 1, nil
	}
	name := extractPath(args[1])
	if m.fs.Exists(name) {
		return nil, []byte(fmt.Sprintf("ln: failed to create symbolic link '%s': File exists", name)), 1, nil
	}
	_ = m.fs.WriteFile(name, []byte(extractPath(args[0])))
	return nil, nil, 0, nil
}

// handleTest processes: test -e|-d|-f path
func (m *MockClient) handleTest(cmd string) ([]byte, []byte, int, error) {
	fields := strings.SplitN(cmd, " ", 3)
	if len(fields) != 3 {
		return nil, nil, 2, nil
	}
	p := extractPath(fields[2])

	var ok bool
	switch fields[1] {
	case "-e":
		ok = m.fs.Exists(p)
	case "-d":
		ok = m.fs.IsDir(p)
	case "-f":
		ok = m.fs.IsFile(p)
	default:
		return nil, nil, 2, nil
	}
	if ok {
		return nil, nil, 0, nil
	}
	return nil, nil, 1, nil
}

// handleClone processes: git clone <url> <dir>
func (m *MockClient) handleClone(cmd string) ([]byte, []byte, int, error) {
	args := strings.Fields(strings.TrimPrefix(cmd, "git clone "))
	if len(args) < 2 {
		return nil, []byte("fatal: You must specify a repository to clone."), 128, nil
	}
	_ = m.fs.MkdirAll(extractPath(args[len(args)-1]))
	return nil, nil, 0, nil
}

// handleCd fails for absolute directories that don't exist.
func (m *MockClient) handleCd(cmd string) ([]byte, []byte, int, error) {
	dir := extractPath(strings.TrimPrefix(cmd, "cd "))
	if strings.HasPrefix(dir, "/") && !m.fs.IsDir(dir) {
		return nil, []byte(fmt.Sprintf("cd: %s: No such file or directory", dir)), 1, nil
	}
	return nil, nil, 0, nil
}

// expandAll applies brace expansion and strips quotes from each argument.
func expandAll(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, p := range expandBraces(arg) {
			out = append(out, extractPath(p))
		}
	}
	return out
}

// expandBraces expands a single {a,b,c} group the way bash does.
func expandBraces(arg string) []string {
	open := strings.Index(arg, "{")
	closeIdx := strings.Index(arg, "}")
	if open == -1 || closeIdx < open {
		return []string{arg}
	}
	prefix, suffix := arg[:open], arg[closeIdx+1:]
	var out []string
	for _, alt := range strings.Split(arg[open+1:closeIdx], ",") {
		out = append(out, prefix+alt+suffix)
	}
	return out
}

// unquote reverses util.ShellQuote for a single argument.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `'\''`, "'")
}

// extractPath extracts a path from a command argument.
// Handles both quoted and unquoted paths.
func extractPath(arg string) string {
	arg = strings.TrimSpace(arg)

	if strings.HasPrefix(arg, "\"") {
		endQuote := strings.Index(arg[1:], "\"")
		if endQuote != -1 {
			return arg[1 : endQuote+1]
		}
	}
	if strings.HasPrefix(arg, "'") {
		endQuote := strings.Index(arg[1:], "'")
		if endQuote != -1 {
			return arg[1 : endQuote+1]
		}
	}

	parts := strings.Fields(arg)
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}
