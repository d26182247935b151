// Package decode builds the ffmpeg command that turns one chunk window of
// the source into a stream of raw RGBA frames on stdout.
package decode

import (
	"bgremove/command"
	"bgremove/internal/timeutil"
	"bgremove/models"
	"fmt"
)

// PixelFormat is the raw layout written to stdout, matching models.RawFrame.
const PixelFormat = "rgba"

// DecodeBuilder decodes [Start, End) of a chunk's source to rawvideo.
//
// ffmpeg's autorotation is left on, so frames come out upright at the
// source's display size (models.VideoSource.Width x Height) and any scale
// set with SetScale applies after the rotation.
type DecodeBuilder struct {
	chunk *models.Chunk

	// Optional downscale; zero keeps the native size
	scaleWidth  int
	scaleHeight int

	threads   int
	extraArgs []string
}

// NewDecodeBuilder creates a decode command for chunk.
func NewDecodeBuilder(chunk *models.Chunk) *DecodeBuilder {
	return &DecodeBuilder{chunk: chunk}
}

// SetScale resizes decoded frames to width x height.
func (d *DecodeBuilder) SetScale(width, height int) *DecodeBuilder {
	d.scaleWidth = width
	d.scaleHeight = height
	return d
}

// SetThreads limits decoder threads (0 lets ffmpeg decide).
func (d *DecodeBuilder) SetThreads(n int) *DecodeBuilder {
	d.threads = n
	return d
}

// AddExtraArgs adds custom output arguments before the pipe target.
func (d *DecodeBuilder) AddExtraArgs(args ...string) *DecodeBuilder {
	d.extraArgs = append(d.extraArgs, args...)
	return d
}

// BuildArgs constructs the decode arguments.
//
// -ss and -t are input options so ffmpeg seeks before decoding; output
// starts at the first frame at or after Start.
func (d *DecodeBuilder) BuildArgs() []string {
	args := []string{
		"-hide_banner", "-nostdin",
		"-loglevel", "error",
	}

	if d.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", d.threads))
	}

	args = append(args,
		"-ss", timeutil.Offset(d.chunk.Window.Start),
		"-t", timeutil.Offset(d.chunk.Window.Duration()),
		"-i", d.chunk.SourcePath,
		"-map", "0:v:0",
		"-an", "-sn",
	)

	if d.scaleWidth > 0 && d.scaleHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d:flags=bicubic", d.scaleWidth, d.scaleHeight))
	}

	args = append(args, d.extraArgs...)

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", PixelFormat,
		"pipe:1",
	)

	return args
}

// DryRun returns the command that would be executed.
func (d *DecodeBuilder) DryRun() (string, error) {
	if d.chunk == nil {
		return "", fmt.Errorf("decode builder has no chunk")
	}
	if err := d.chunk.Validate(); err != nil {
		return "", fmt.Errorf("decode builder: %w", err)
	}
	return command.Preview(d.BuildArgs()), nil
}

// GetTaskType returns the task type identifier.
func (d *DecodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeDecode
}

// GetInputPath returns the source path.
func (d *DecodeBuilder) GetInputPath() string {
	return d.chunk.SourcePath
}

// GetOutputPath returns the pipe the frames are written to.
func (d *DecodeBuilder) GetOutputPath() string {
	return "pipe:1"
}
