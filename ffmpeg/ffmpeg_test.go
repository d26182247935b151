package ffmpeg

import (
	"bgremove/command"
	"bgremove/models"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// shellCommand runs a shell script in place of ffmpeg.
type shellCommand struct {
	script string
	output string
}

func (s shellCommand) BuildArgs() []string           { return []string{"-c", s.script} }
func (s shellCommand) DryRun() (string, error)       { return s.script, nil }
func (s shellCommand) GetTaskType() command.TaskType { return command.TaskTypeDecode }
func (s shellCommand) GetInputPath() string          { return "" }
func (s shellCommand) GetOutputPath() string         { return s.output }

func shellRunner(t *testing.T) *ExecRunner {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return NewExecRunner(sh, nil)
}

func TestExecRunner_Run(t *testing.T) {
	runner := shellRunner(t)

	if err := runner.Run(context.Background(), shellCommand{script: "exit 0"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	err := runner.Run(context.Background(), shellCommand{script: "echo boom >&2; exit 3"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected *ExitError, got %v", err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", exitErr.ExitCode)
	}
	if exitErr.Stderr != "boom" {
		t.Errorf("Expected stderr 'boom', got %q", exitErr.Stderr)
	}
	if !strings.Contains(exitErr.Error(), "boom") {
		t.Errorf("Error() should contain stderr, got %q", exitErr.Error())
	}
	var osExit *exec.ExitError
	if !errors.As(err, &osExit) {
		t.Error("ExitError should unwrap to *exec.ExitError")
	}
}

func TestExecRunner_Defaults(t *testing.T) {
	runner := NewExecRunner("", nil)
	if runner.binary() != "ffmpeg" {
		t.Errorf("Expected default binary ffmpeg, got %s", runner.binary())
	}
	if runner.Logger == nil {
		t.Error("Expected default logger")
	}

	missing := NewExecRunner("/nonexistent/ffmpeg-binary", nil)
	if missing.Available() {
		t.Error("Expected missing binary to be unavailable")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 8}
	tb.Write([]byte("hello"))
	tb.Write([]byte(" world"))
	if got := tb.String(); got != "lo world" {
		t.Errorf("Expected last 8 bytes, got %q", got)
	}

	tb.Write([]byte("0123456789"))
	if got := tb.String(); got != "23456789" {
		t.Errorf("Expected oversized write to be truncated, got %q", got)
	}
}

func TestFrameReader_ReadsWholeFrames(t *testing.T) {
	runner := shellRunner(t)

	// 2x1 RGBA frames are 8 bytes; 20 bytes is two frames plus a partial one
	reader, err := runner.StartReader(context.Background(), shellCommand{script: "head -c 20 /dev/zero"}, 2, 1)
	if err != nil {
		t.Fatalf("StartReader() error = %v", err)
	}

	frame := models.NewRawFrame(2, 1)
	for i := 0; i < 2; i++ {
		if err := reader.Next(frame); err != nil {
			t.Fatalf("Next() frame %d error = %v", i, err)
		}
		if frame.Index != i {
			t.Errorf("Expected index %d, got %d", i, frame.Index)
		}
	}

	if err := reader.Next(frame); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("Expected ErrTruncatedFrame, got %v", err)
	}
	if !errors.Is(ErrTruncatedFrame, models.ErrDecode) {
		t.Error("ErrTruncatedFrame should be a decode error")
	}
	if err := reader.Next(frame); err != io.EOF {
		t.Fatalf("Expected io.EOF after truncation, got %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFrameReader_ExitStatus(t *testing.T) {
	runner := shellRunner(t)

	reader, err := runner.StartReader(context.Background(), shellCommand{script: "head -c 8 /dev/zero; echo broken >&2; exit 2"}, 2, 1)
	if err != nil {
		t.Fatalf("StartReader() error = %v", err)
	}

	frame := models.NewRawFrame(2, 1)
	if err := reader.Next(frame); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := reader.Next(frame); err != io.EOF {
		t.Fatalf("Expected io.EOF, got %v", err)
	}

	err = reader.Close()
	if !errors.Is(err, models.ErrDecode) {
		t.Fatalf("Expected decode error, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 2 {
		t.Errorf("Expected exit code 2, got %v", err)
	}
}

func TestFrameReader_AbandonedStream(t *testing.T) {
	runner := shellRunner(t)

	reader, err := runner.StartReader(context.Background(), shellCommand{script: "cat /dev/zero"}, 2, 1)
	if err != nil {
		t.Fatalf("StartReader() error = %v", err)
	}

	frame := models.NewRawFrame(2, 1)
	if err := reader.Next(frame); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Errorf("Closing an unfinished stream should not fail, got %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Errorf("Second Close() should be a no-op, got %v", err)
	}
}

func TestFrameReader_BufferMismatch(t *testing.T) {
	runner := shellRunner(t)

	reader, err := runner.StartReader(context.Background(), shellCommand{script: "head -c 8 /dev/zero"}, 2, 1)
	if err != nil {
		t.Fatalf("StartReader() error = %v", err)
	}
	defer reader.Close()

	if err := reader.Next(models.NewRawFrame(4, 4)); !errors.Is(err, models.ErrDecode) {
		t.Errorf("Expected decode error for wrong buffer, got %v", err)
	}

	if _, err := runner.StartReader(context.Background(), shellCommand{script: "true"}, 0, 1); err == nil {
		t.Error("Expected error for zero frame size")
	}
}

func TestFrameWriter_WritesFrames(t *testing.T) {
	runner := shellRunner(t)
	output := filepath.Join(t.TempDir(), "chunk_0001.rgb")

	writer, err := runner.StartWriter(context.Background(), shellCommand{script: "cat > '" + output + "'", output: output})
	if err != nil {
		t.Fatalf("StartWriter() error = %v", err)
	}

	frame := models.NewCompositedFrame(2, 2)
	for i := 0; i < 3; i++ {
		if err := writer.Write(frame); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if info.Size() != 3*2*2*3 {
		t.Errorf("Expected %d bytes, got %d", 3*2*2*3, info.Size())
	}

	if err := writer.Write(frame); err == nil {
		t.Error("Expected error writing to closed encoder")
	}
}

func TestFrameWriter_EncoderFailure(t *testing.T) {
	runner := shellRunner(t)

	writer, err := runner.StartWriter(context.Background(), shellCommand{script: "cat > /dev/null; exit 1"})
	if err != nil {
		t.Fatalf("StartWriter() error = %v", err)
	}
	writer.Write(models.NewCompositedFrame(2, 2))

	if err := writer.Close(); !errors.Is(err, models.ErrChunkEncode) {
		t.Errorf("Expected ErrChunkEncode, got %v", err)
	}
}

func TestFrameWriter_Abort(t *testing.T) {
	runner := shellRunner(t)
	output := filepath.Join(t.TempDir(), "partial.rgb")

	writer, err := runner.StartWriter(context.Background(), shellCommand{script: "cat > '" + output + "'", output: output})
	if err != nil {
		t.Fatalf("StartWriter() error = %v", err)
	}
	writer.Write(models.NewCompositedFrame(2, 2))
	writer.Abort()

	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("Expected partial output to be removed, got %v", err)
	}
}
