package ffmpeg

import (
	"bgremove/command"
	"bgremove/models"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// ErrTruncatedFrame is returned by FrameReader.Next when the stream ends in
// the middle of a frame. The reader is exhausted afterwards.
var ErrTruncatedFrame = fmt.Errorf("%w: truncated frame", models.ErrDecode)

// FrameReader pulls fixed-size raw RGBA frames from a decode process.
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	args   []string

	width  int
	height int
	next   int
	done   bool
	closed bool
}

// StartReader launches the decode command. Frames are width x height,
// which must match the command's output size.
func (r *ExecRunner) StartReader(ctx context.Context, cmd command.Command, width, height int) (*FrameReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", models.ErrDecode, width, height)
	}

	args := cmd.BuildArgs()
	c := exec.CommandContext(ctx, r.binary(), args...)
	stderr := &tailBuffer{max: stderrTailSize}
	c.Stderr = stderr

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", models.ErrDecode, r.binary(), err)
	}

	r.logger().Debug("decoder started", "input", cmd.GetInputPath(), "width", width, "height", height)

	return &FrameReader{
		cmd:    c,
		stdout: stdout,
		stderr: stderr,
		args:   args,
		width:  width,
		height: height,
	}, nil
}

// Next reads the next frame into dst, which must be sized for the reader.
// It returns io.EOF once the stream is exhausted.
func (fr *FrameReader) Next(dst *models.RawFrame) error {
	if fr.done {
		return io.EOF
	}
	if dst.Width != fr.width || dst.Height != fr.height || len(dst.Pix) != models.FrameBytes(fr.width, fr.height) {
		return fmt.Errorf("%w: frame buffer is %dx%d, stream is %dx%d",
			models.ErrDecode, dst.Width, dst.Height, fr.width, fr.height)
	}

	_, err := io.ReadFull(fr.stdout, dst.Pix)
	switch {
	case err == nil:
		dst.Index = fr.next
		fr.next++
		return nil
	case errors.Is(err, io.EOF):
		fr.done = true
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		fr.done = true
		fr.next++
		return ErrTruncatedFrame
	default:
		fr.done = true
		return fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
}

// Close stops the decoder and waits for it. The exit status is only
// reported once the stream was read to the end; abandoning a stream early
// is not an error.
func (fr *FrameReader) Close() error {
	if fr.closed {
		return nil
	}
	fr.closed = true

	exhausted := fr.done
	fr.stdout.Close()
	err := fr.cmd.Wait()
	if err != nil && exhausted {
		return fmt.Errorf("%w: %w", models.ErrDecode, newExitError(fr.cmd.Path, fr.args, fr.stderr, err))
	}
	return nil
}
