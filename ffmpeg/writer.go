package ffmpeg

import (
	"bgremove/command"
	"bgremove/models"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// FrameWriter feeds raw RGB24 frames to an encode process.
type FrameWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	args   []string
	output string
	cancel context.CancelFunc

	closed bool
}

// StartWriter launches the encode command, which must read from pipe:0.
func (r *ExecRunner) StartWriter(ctx context.Context, cmd command.Command) (*FrameWriter, error) {
	ctx, cancel := context.WithCancel(ctx)

	args := cmd.BuildArgs()
	c := exec.CommandContext(ctx, r.binary(), args...)
	stderr := &tailBuffer{max: stderrTailSize}
	c.Stderr = stderr

	stdin, err := c.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", models.ErrChunkEncode, err)
	}
	if err := c.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to start %s: %v", models.ErrChunkEncode, r.binary(), err)
	}

	r.logger().Debug("encoder started", "output", cmd.GetOutputPath())

	return &FrameWriter{
		cmd:    c,
		stdin:  stdin,
		stderr: stderr,
		args:   args,
		output: cmd.GetOutputPath(),
		cancel: cancel,
	}, nil
}

// Write sends one frame to the encoder.
func (fw *FrameWriter) Write(frame *models.CompositedFrame) error {
	if fw.closed {
		return fmt.Errorf("write to closed encoder")
	}
	if _, err := fw.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("encoder write failed: %w", err)
	}
	return nil
}

// Close ends the input stream and waits for the encoder to finish the file.
func (fw *FrameWriter) Close() error {
	if fw.closed {
		return nil
	}
	fw.closed = true
	defer fw.cancel()

	fw.stdin.Close()
	if err := fw.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrChunkEncode, newExitError(fw.cmd.Path, fw.args, fw.stderr, err))
	}
	return nil
}

// Abort kills the encoder and removes whatever it wrote.
func (fw *FrameWriter) Abort() {
	if !fw.closed {
		fw.closed = true
		fw.cancel()
		fw.stdin.Close()
		fw.cmd.Wait()
	}
	os.Remove(fw.output)
}
