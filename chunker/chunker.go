package chunker

import (
	"bgremove/models"
	"fmt"
	"math"
)

const (
	// DefaultChunkDuration is the default window length in seconds.
	DefaultChunkDuration = 15.0

	// MinChunkDuration is the shortest allowed window length in seconds.
	MinChunkDuration = 1.0

	// MaxChunkDuration is the longest allowed window length in seconds (1 hour).
	MaxChunkDuration = 3600.0

	// tailEpsilon folds a trailing window shorter than this into its
	// predecessor; such slivers come from float noise in probed durations
	// and hold no decodable frame.
	tailEpsilon = 1e-3

	// gapEpsilon is the tolerance used when checking contiguity.
	gapEpsilon = 1e-9
)

// Plan partitions [0, total) into consecutive windows of length seconds.
//
// Windows are [0, L), [L, 2L), ... and the last one is truncated to total,
// so its length is total mod L (or L when it divides evenly). Boundaries
// are computed as i*L on both sides, which keeps the sequence gap-free.
//
// A tail shorter than 1ms is merged into the window before it, which then
// runs L+tail seconds; Plan(30.0004, 15) is [0, 15), [15, 30.0004).
func Plan(total, length float64) ([]models.TimeWindow, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return nil, fmt.Errorf("invalid duration: %.3f seconds", total)
	}
	if math.IsNaN(length) || length < MinChunkDuration {
		return nil, fmt.Errorf("chunk duration must be at least %.0f seconds", MinChunkDuration)
	}
	if length > MaxChunkDuration {
		return nil, fmt.Errorf("chunk duration cannot exceed %.0f seconds", MaxChunkDuration)
	}

	count := int(math.Ceil(total / length))
	if count == 0 {
		count = 1
	}

	windows := make([]models.TimeWindow, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * length
		end := float64(i+1) * length
		if end > total {
			end = total
		}
		if start >= end {
			break
		}
		windows = append(windows, models.TimeWindow{Start: start, End: end})
	}

	if n := len(windows); n > 1 && windows[n-1].Duration() < tailEpsilon {
		windows[n-2].End = windows[n-1].End
		windows = windows[:n-1]
	}

	return windows, nil
}

// Chunker turns a probed source into the ordered chunks of a job.
type Chunker struct {
	sourcePath    string
	chunkDuration float64
}

// NewChunker creates a Chunker with the default chunk duration.
func NewChunker(sourcePath string) *Chunker {
	return &Chunker{
		sourcePath:    sourcePath,
		chunkDuration: DefaultChunkDuration,
	}
}

// SetChunkDuration sets the window length in seconds.
func (c *Chunker) SetChunkDuration(seconds float64) *Chunker {
	c.chunkDuration = seconds
	return c
}

// ChunkDuration returns the configured window length in seconds.
func (c *Chunker) ChunkDuration() float64 {
	return c.chunkDuration
}

// CreateChunks plans the windows for mediaInfo and wraps them into
// 1-based chunks.
//
// Example:
//
//	source, _ := prober.Probe(ctx, "/videos/talk.mp4")
//	chunks, err := chunker.NewChunker(source.Path).SetChunkDuration(15).CreateChunks(source)
func (c *Chunker) CreateChunks(mediaInfo MediaInfo) ([]*models.Chunk, error) {
	if c.sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	if mediaInfo == nil {
		return nil, fmt.Errorf("media info cannot be nil")
	}

	duration, err := mediaInfo.GetDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to get duration: %w", err)
	}

	windows, err := Plan(duration, c.chunkDuration)
	if err != nil {
		return nil, err
	}

	chunks := make([]*models.Chunk, 0, len(windows))
	for i, w := range windows {
		chunk, err := models.NewChunk(uint(i+1), w.Start, w.End, c.sourcePath)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// ValidateChunks checks a planned sequence: every chunk valid, one source,
// sequential 1-based indexes, starting at 0 and with no gaps or overlaps.
func ValidateChunks(chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("chunk list is empty")
	}

	firstSource := chunks[0].SourcePath
	for i, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("chunk %d is invalid: %w", i+1, err)
		}
		if chunk.SourcePath != firstSource {
			return fmt.Errorf("chunk %d has different source path: expected %s, got %s",
				i+1, firstSource, chunk.SourcePath)
		}
		if chunk.Index != uint(i+1) {
			return fmt.Errorf("chunk %d has incorrect index: expected %d, got %d",
				i+1, i+1, chunk.Index)
		}
	}

	if start := chunks[0].Window.Start; math.Abs(start) > gapEpsilon {
		return fmt.Errorf("first chunk starts at %.3f, expected 0", start)
	}

	for i := 0; i < len(chunks)-1; i++ {
		currentEnd := chunks[i].Window.End
		nextStart := chunks[i+1].Window.Start

		if currentEnd > nextStart+gapEpsilon {
			return fmt.Errorf("chunks %d and %d overlap: chunk %d ends at %.3f, chunk %d starts at %.3f",
				i+1, i+2, i+1, currentEnd, i+2, nextStart)
		}
		if nextStart > currentEnd+gapEpsilon {
			return fmt.Errorf("gap between chunks %d and %d: chunk %d ends at %.3f, chunk %d starts at %.3f",
				i+1, i+2, i+1, currentEnd, i+2, nextStart)
		}
	}

	return nil
}
