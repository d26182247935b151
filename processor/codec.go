package processor

import (
	"bgremove/command/decode"
	"bgremove/command/encode"
	"bgremove/ffmpeg"
	"bgremove/models"
	"context"
)

// FrameSource yields decoded frames in order. Next returns io.EOF once the
// stream is exhausted.
type FrameSource interface {
	Next(dst *models.RawFrame) error
	Close() error
}

// FrameSink consumes composited frames and produces the chunk video.
type FrameSink interface {
	Write(frame *models.CompositedFrame) error
	Close() error
	Abort()
}

// Decoder opens a frame stream for one chunk window at width x height.
type Decoder interface {
	OpenDecoder(ctx context.Context, src *models.VideoSource, chunk *models.Chunk, width, height int) (FrameSource, error)
}

// Encoder opens a chunk video for writing.
type Encoder interface {
	OpenEncoder(ctx context.Context, path string, width, height int, rate string) (FrameSink, error)
}

// VideoSettings are the encode parameters shared by every chunk of a job.
type VideoSettings struct {
	Codec       string
	CRF         int
	Preset      string
	PixelFormat string
}

// FFmpegCodec decodes and encodes chunks with ffmpeg processes.
type FFmpegCodec struct {
	Runner  *ffmpeg.ExecRunner
	Video   VideoSettings
	Threads int
}

// OpenDecoder starts an ffmpeg process decoding chunk to raw RGBA.
func (c *FFmpegCodec) OpenDecoder(ctx context.Context, src *models.VideoSource, chunk *models.Chunk, width, height int) (FrameSource, error) {
	cmd := decode.NewDecodeBuilder(chunk).SetThreads(c.Threads)
	if width != src.Width || height != src.Height {
		cmd.SetScale(width, height)
	}
	return c.Runner.StartReader(ctx, cmd, width, height)
}

// OpenEncoder starts an ffmpeg process encoding raw RGB24 into path.
func (c *FFmpegCodec) OpenEncoder(ctx context.Context, path string, width, height int, rate string) (FrameSink, error) {
	cmd := encode.NewEncodeBuilder(path, width, height, rate)
	if c.Video.Codec != "" {
		cmd.SetCodec(c.Video.Codec)
	}
	if c.Video.Preset != "" {
		cmd.SetPreset(c.Video.Preset)
	}
	if c.Video.PixelFormat != "" {
		cmd.SetPixelFormat(c.Video.PixelFormat)
	}
	cmd.SetCRF(c.Video.CRF)
	return c.Runner.StartWriter(ctx, cmd)
}
