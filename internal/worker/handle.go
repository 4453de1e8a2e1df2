// Package worker owns the external worker process: launching it with
// captured stdin/stdout, and the handle through which exactly one
// executor at a time reads and writes those streams.
package worker

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Handle is exclusive ownership of one running worker process and its
// stream endpoints. Exactly one component holds a handle at a time:
// the bridge state cell, or a streaming call for its duration. The
// holder is the only reader and writer of the streams.
type Handle struct {
	log    *slog.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader
	pid    int
}

// NewHandle wraps an already-started process. cmd may be nil for
// handles backed by plain pipes (tests).
func NewHandle(log *slog.Logger, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser, pid int) *Handle {
	return &Handle{
		log:    log,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReader(stdout),
		pid:    pid,
	}
}

// PID returns the OS process identifier, or 0 for pipe-backed handles.
func (h *Handle) PID() int {
	return h.pid
}

// WriteLine writes one encoded request line to the worker's stdin.
// Pipe writes are unbuffered, so the line is flushed when this returns.
func (h *Handle) WriteLine(data []byte) error {
	_, err := h.stdin.Write(data)

	return err
}

// ReadLine reads one line from the worker's stdout, blocking until a
// full line arrives or the stream ends. A final unterminated line is
// returned as-is; io.EOF means the worker closed its output with no
// pending data.
func (h *Handle) ReadLine() ([]byte, error) {
	line, err := h.reader.ReadBytes('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}

		return nil, err
	}

	return line, nil
}

// Kill forcefully terminates the worker process and reaps it in the
// background. Safe to call on pipe-backed handles.
func (h *Handle) Kill() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	h.log.Debug("Killing worker process", "pid", h.pid)

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	h.reap()

	return nil
}

// Discard releases a handle whose process is already dead or dying,
// without reinstalling it anywhere. Used by a failed streaming call so
// the taken-then-not-restored path does not leak the OS process.
func (h *Handle) Discard() {
	h.log.Debug("Discarding worker handle", "pid", h.pid)

	_ = h.stdin.Close()
	_ = h.stdout.Close()
	h.reap()
}

// Release shuts the worker down cooperatively: stdin is closed so the
// worker sees end of input and exits on its own. The process is not
// force-killed on normal shutdown.
func (h *Handle) Release() error {
	h.log.Debug("Releasing worker handle", "pid", h.pid)

	err := h.stdin.Close()
	h.reap()

	return err
}

// reap waits for the process in the background to avoid zombies.
func (h *Handle) reap() {
	if h.cmd == nil {
		return
	}

	cmd := h.cmd
	go func() { _ = cmd.Wait() }()
}
