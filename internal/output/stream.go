package output

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// StreamHandler multiplexes stdout and stderr from a remote command,
// with line buffering and ANSI passthrough.
type StreamHandler struct {
	stdout io.Writer
	stderr io.Writer
	mu     sync.Mutex

	// formatter processes each line before output.
	// If nil, lines pass through unchanged.
	formatter Formatter

	stdoutLines int
	stderrLines int
}

// NewStreamHandler creates a handler that writes to the given stdout/stderr.
func NewStreamHandler(stdout, stderr io.Writer) *StreamHandler {
	return &StreamHandler{
		stdout: stdout,
		stderr: stderr,
	}
}

// NewHostStream creates a handler that prefixes lines with "[host] out:".
func NewHostStream(host string, stdout, stderr io.Writer) *StreamHandler {
	h := NewStreamHandler(stdout, stderr)
	h.formatter = NewHostFormatter(host)
	return h
}

// SetFormatter sets the line formatter.
func (h *StreamHandler) SetFormatter(f Formatter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formatter = f
}

// Stdout returns a line-buffered writer for stdout.
func (h *StreamHandler) Stdout() *StreamWriter {
	return &StreamWriter{handler: h}
}

// Stderr returns a line-buffered writer for stderr.
func (h *StreamHandler) Stderr() *StreamWriter {
	return &StreamWriter{handler: h, isStderr: true}
}

// StdoutLines returns the number of stdout lines processed.
func (h *StreamHandler) StdoutLines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdoutLines
}

// StderrLines returns the number of stderr lines processed.
func (h *StreamHandler) StderrLines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderrLines
}

// WriteStdout writes a line to stdout after processing.
func (h *StreamHandler) WriteStdout(line string) error {
	return h.writeLine(line, false)
}

// WriteStderr writes a line to stderr after processing.
func (h *StreamHandler) WriteStderr(line string) error {
	return h.writeLine(line, true)
}

// WriteSummary writes the formatter's exit summary, if any, to stderr.
func (h *StreamHandler) WriteSummary(exitCode int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.formatter == nil {
		return nil
	}
	summary := h.formatter.Summary(exitCode)
	if summary == "" {
		return nil
	}
	_, err := io.WriteString(h.stderr, summary+"\n")
	return err
}

func (h *StreamHandler) writeLine(line string, stderr bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w := h.stdout
	if stderr {
		w = h.stderr
		h.stderrLines++
	} else {
		h.stdoutLines++
	}

	if h.formatter != nil {
		line = h.formatter.ProcessLine(line, stderr)
	}

	_, err := io.WriteString(w, line+"\n")
	return err
}

// StreamWriter adapts one side of a StreamHandler to io.Writer.
type StreamWriter struct {
	handler  *StreamHandler
	isStderr bool
	buf      []byte
}

// Write implements io.Writer with line buffering.
// Incomplete lines are buffered until a newline arrives.
func (w *StreamWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	w.buf = append(w.buf, p...)

	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}

		line := string(bytes.TrimSuffix(w.buf[:idx], []byte{'\r'}))
		w.buf = w.buf[idx+1:]

		if err := w.handler.writeLine(line, w.isStderr); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Flush writes any remaining buffered content as a final line.
func (w *StreamWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	line := string(w.buf)
	w.buf = nil
	return w.handler.writeLine(line, w.isStderr)
}

// CopyLines copies from r to h line by line, processing each line.
func CopyLines(r io.Reader, h *StreamHandler, isStderr bool) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := h.writeLine(scanner.Text(), isStderr); err != nil {
			return err
		}
	}
	return scanner.Err()
}
