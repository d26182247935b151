// Package models provides the core data structures of the background
// removal pipeline.
package models

import (
	"fmt"
	"strings"
)

// TimeWindow is a half-open [Start, End) span of a video in seconds.
type TimeWindow struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration returns the window length in seconds.
func (w TimeWindow) Duration() float64 {
	return w.End - w.Start
}

// Validate checks 0 <= Start < End.
func (w TimeWindow) Validate() error {
	if w.Start < 0 {
		return fmt.Errorf("start must not be negative")
	}
	if w.End <= 0 {
		return fmt.Errorf("end must be greater than 0")
	}
	if w.Start >= w.End {
		return fmt.Errorf("start must be less than end")
	}
	return nil
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", w.Start, w.End)
}

// Chunk is one planned time window of a source video.
//
// Chunks are created by the chunker and never modified afterwards; the
// processor reports its output in a ChunkResult.
// Index is 1-based and equals the chunk's position in the plan.
type Chunk struct {
	Index      uint       `json:"index"`
	Window     TimeWindow `json:"window"`
	SourcePath string     `json:"source_path"`
}

// NewChunk creates a validated Chunk.
//
// Example:
//
//	chunk, err := models.NewChunk(1, 0, 15, "/videos/talk.mp4")
func NewChunk(index uint, start, end float64, sourcePath string) (*Chunk, error) {
	c := &Chunk{
		Index:      index,
		Window:     TimeWindow{Start: start, End: end},
		SourcePath: sourcePath,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk: %w", err)
	}
	return c, nil
}

// Validate checks that the chunk has a source and a non-empty window.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.SourcePath) == "" {
		return fmt.Errorf("source_path cannot be empty")
	}
	if c.Index == 0 {
		return fmt.Errorf("index must be 1-based")
	}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("window %s: %w", c.Window, err)
	}
	return nil
}
