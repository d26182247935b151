// Package processor turns one chunk of the source into a chunk video with
// the background replaced.
package processor

import (
	"bgremove/compositor"
	"bgremove/engine"
	"bgremove/matter"
	"bgremove/models"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// maxConsecutiveDecodeErrors stops reading a stream that keeps failing
// without ever reporting io.EOF.
const maxConsecutiveDecodeErrors = 8

// Options configures a Processor.
type Options struct {
	Background models.Color
	MaxHeight  int // 0 keeps the source height
}

// Processor decodes, mattes, composites and encodes the frames of a chunk.
// It owns its frame buffers and its Matter, so a Processor handles one
// chunk at a time.
type Processor struct {
	matter  *matter.Matter
	decoder Decoder
	encoder Encoder
	opts    Options
	logger  *slog.Logger

	frame *models.RawFrame
	mask  *models.AlphaMask
	out   *models.CompositedFrame
}

// New creates a processor using e for inference.
func New(e engine.Engine, dec Decoder, enc Encoder, opts Options, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := matter.New(e)
	if err != nil {
		return nil, err
	}
	return &Processor{
		matter:  m,
		decoder: dec,
		encoder: enc,
		opts:    opts,
		logger:  logger,
	}, nil
}

// ChunkPath is where the video for chunk is written inside dir.
func ChunkPath(dir string, chunk *models.Chunk) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%04d.mp4", chunk.Index))
}

// Process runs the chunk and always returns a result. Frames that fail to
// decode, matte or composite are dropped; a chunk with no surviving frames
// fails with models.ErrChunkEncode. Cancellation is checked between frames.
func (p *Processor) Process(ctx context.Context, src *models.VideoSource, chunk *models.Chunk, dir string) *models.ChunkResult {
	width, height := src.FrameSize(p.opts.MaxHeight)
	path := ChunkPath(dir, chunk)
	log := p.logger.With("chunk", chunk.Index, "window", chunk.Window.String())

	stats := models.ChunkResult{}
	fail := func(err error) *models.ChunkResult {
		res, _ := models.NewChunkResultFailure(chunk, err)
		res.FramesDecoded = stats.FramesDecoded
		res.FramesWritten = stats.FramesWritten
		res.FramesDropped = stats.FramesDropped
		log.Error("chunk failed", "error", err, "decoded", stats.FramesDecoded, "dropped", stats.FramesDropped)
		return res
	}

	p.ensureBuffers(width, height)

	source, err := p.decoder.OpenDecoder(ctx, src, chunk, width, height)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", models.ErrChunkEncode, err))
	}

	var sink FrameSink
	abort := func() {
		source.Close()
		if sink != nil {
			sink.Abort()
		}
	}

	decodeErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			abort()
			return fail(err)
		}

		err := source.Next(p.frame)
		if errors.Is(err, io.EOF) {
			break
		}
		stats.FramesDecoded++
		if err != nil {
			stats.FramesDropped++
			decodeErrors++
			log.Warn("frame dropped", "stage", "decode", "error", err)
			if decodeErrors >= maxConsecutiveDecodeErrors {
				break
			}
			continue
		}
		decodeErrors = 0

		if err := p.renderFrame(); err != nil {
			stats.FramesDropped++
			log.Warn("frame dropped", "frame", p.frame.Index, "error", err)
			p.release()
			continue
		}

		if sink == nil {
			sink, err = p.encoder.OpenEncoder(ctx, path, width, height, src.RateArg())
			if err != nil {
				source.Close()
				return fail(fmt.Errorf("%w: %w", models.ErrChunkEncode, err))
			}
		}
		if err := sink.Write(p.out); err != nil {
			abort()
			return fail(fmt.Errorf("%w: %w", models.ErrChunkEncode, err))
		}
		stats.FramesWritten++
		p.release()
	}

	if err := source.Close(); err != nil {
		log.Warn("decoder exited with error", "error", err)
		if sink == nil {
			return fail(fmt.Errorf("%w: %w", models.ErrChunkEncode, err))
		}
	}

	if sink == nil {
		return fail(models.ErrChunkEncode)
	}
	if err := sink.Close(); err != nil {
		os.Remove(path)
		return fail(err)
	}

	res, err := models.NewChunkResultSuccess(chunk, path)
	if err != nil {
		return fail(err)
	}
	res.FramesDecoded = stats.FramesDecoded
	res.FramesWritten = stats.FramesWritten
	res.FramesDropped = stats.FramesDropped

	log.Info("chunk encoded",
		"output", path,
		"frames", stats.FramesWritten,
		"dropped", stats.FramesDropped)

	return res
}

// renderFrame mattes and composites the current frame into p.out.
func (p *Processor) renderFrame() error {
	if err := p.matter.Matte(p.frame, p.mask); err != nil {
		return err
	}
	return compositor.Composite(p.frame, p.mask, p.opts.Background, p.out)
}

// release clears the per-frame state before the next frame is decoded.
func (p *Processor) release() {
	p.frame.Release()
	p.mask.Release()
	p.out.Release()
}

func (p *Processor) ensureBuffers(width, height int) {
	if p.frame != nil && p.frame.Width == width && p.frame.Height == height {
		return
	}
	p.frame = models.NewRawFrame(width, height)
	p.mask = models.NewAlphaMask(width, height)
	p.out = models.NewCompositedFrame(width, height)
}
