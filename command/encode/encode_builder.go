// Package encode builds the ffmpeg command that encodes raw RGB24 frames
// read from stdin into a chunk video.
//
// Every chunk of a job is encoded with the same builder settings, which is
// what makes the later stream-copy concatenation valid.
package encode

import (
	"bgremove/command"
	"fmt"
)

// PixelFormat is the raw layout read from stdin, matching
// models.CompositedFrame.
const PixelFormat = "rgb24"

// EncodeBuilder encodes a raw frame stream into outputPath.
type EncodeBuilder struct {
	outputPath string
	width      int
	height     int
	rate       string

	codec       string
	crf         int
	preset      string
	pixelFormat string
	extraArgs   []string
}

// NewEncodeBuilder creates an encoder for width x height frames at rate
// (an ffmpeg rate such as "25" or "30000/1001").
func NewEncodeBuilder(outputPath string, width, height int, rate string) *EncodeBuilder {
	return &EncodeBuilder{
		outputPath:  outputPath,
		width:       width,
		height:      height,
		rate:        rate,
		codec:       "libx264",
		crf:         23,
		preset:      "veryfast",
		pixelFormat: "yuv420p",
	}
}

// SetCodec sets the video codec (e.g., "libx264", "libx265").
func (e *EncodeBuilder) SetCodec(codec string) *EncodeBuilder {
	e.codec = codec
	return e
}

// SetCRF sets the Constant Rate Factor (0-51, lower is better quality).
// A negative value omits -crf.
func (e *EncodeBuilder) SetCRF(crf int) *EncodeBuilder {
	e.crf = crf
	return e
}

// SetPreset sets the encoder preset (ultrafast ... veryslow).
func (e *EncodeBuilder) SetPreset(preset string) *EncodeBuilder {
	e.preset = preset
	return e
}

// SetPixelFormat sets the output pixel format (e.g., "yuv420p").
func (e *EncodeBuilder) SetPixelFormat(pixfmt string) *EncodeBuilder {
	e.pixelFormat = pixfmt
	return e
}

// AddExtraArgs adds custom output arguments.
func (e *EncodeBuilder) AddExtraArgs(args ...string) *EncodeBuilder {
	e.extraArgs = append(e.extraArgs, args...)
	return e
}

// BuildArgs constructs the encode arguments.
func (e *EncodeBuilder) BuildArgs() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", PixelFormat,
		"-s", fmt.Sprintf("%dx%d", e.width, e.height),
		"-r", e.rate,
		"-i", "pipe:0",
		"-an",
	}

	// 4:2:0 subsampling needs even dimensions
	if (e.width%2 == 1 || e.height%2 == 1) && e.pixelFormat == "yuv420p" {
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2")
	}

	args = append(args, "-c:v", e.codec)

	if e.crf >= 0 && e.crf <= 51 {
		args = append(args, "-crf", fmt.Sprintf("%d", e.crf))
	}
	if e.preset != "" {
		args = append(args, "-preset", e.preset)
	}
	if e.pixelFormat != "" {
		args = append(args, "-pix_fmt", e.pixelFormat)
	}

	args = append(args, e.extraArgs...)
	args = append(args, "-y", e.outputPath)

	return args
}

// DryRun returns the command that would be executed.
func (e *EncodeBuilder) DryRun() (string, error) {
	if e.outputPath == "" {
		return "", fmt.Errorf("encode builder has no output path")
	}
	if e.width <= 0 || e.height <= 0 {
		return "", fmt.Errorf("encode builder has invalid size %dx%d", e.width, e.height)
	}
	if e.rate == "" {
		return "", fmt.Errorf("encode builder has no frame rate")
	}
	return command.Preview(e.BuildArgs()), nil
}

// GetTaskType returns the task type identifier.
func (e *EncodeBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeEncode
}

// GetInputPath returns the pipe frames are read from.
func (e *EncodeBuilder) GetInputPath() string {
	return "pipe:0"
}

// GetOutputPath returns the chunk video path.
func (e *EncodeBuilder) GetOutputPath() string {
	return e.outputPath
}
