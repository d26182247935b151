// Package ffmpeg runs the ffmpeg processes of the pipeline: one-shot
// invocations (concat, audio mixing) and the long-running decode and
// encode processes that stream raw frames over pipes.
package ffmpeg

import (
	"bgremove/command"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// stderrTailSize bounds how much ffmpeg stderr is kept for error reports.
const stderrTailSize = 4096

// Runner executes a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd command.Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Binary defaults to command.Binary when empty
	Binary string
	Logger *slog.Logger
}

// NewExecRunner creates a runner for binary ("" means ffmpeg on PATH).
func NewExecRunner(binary string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Binary: binary, Logger: logger}
}

func (r *ExecRunner) binary() string {
	if r.Binary == "" {
		return command.Binary
	}
	return r.Binary
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run executes cmd and waits for it. A non-zero exit is returned as an
// *ExitError carrying the tail of stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd command.Command) error {
	args := cmd.BuildArgs()
	r.logger().Debug("running ffmpeg", "task", cmd.GetTaskType(), "output", cmd.GetOutputPath())

	c := exec.CommandContext(ctx, r.binary(), args...)
	stderr := &tailBuffer{max: stderrTailSize}
	c.Stderr = stderr

	if err := c.Run(); err != nil {
		return newExitError(r.binary(), args, stderr, err)
	}
	return nil
}

// Available reports whether the binary can be found.
func (r *ExecRunner) Available() bool {
	_, err := exec.LookPath(r.binary())
	return err == nil
}

// ExitError describes a failed ffmpeg process.
type ExitError struct {
	Binary   string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func newExitError(binary string, args []string, stderr *tailBuffer, err error) *ExitError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExitError{
		Binary:   binary,
		Args:     args,
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
}

// tailBuffer is an io.Writer that keeps only the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
