package models

import (
	"fmt"
	"strings"
)

// ChunkResult is the outcome of processing a single chunk.
//
// Successful results carry an output path and no error; failed results
// carry an error and no output path. A failed chunk is simply absent from
// the merge, it never fails the job on its own.
type ChunkResult struct {
	Index      uint       `json:"index"`
	Window     TimeWindow `json:"window"`
	OutputPath string     `json:"output_path"`
	Success    bool       `json:"success"`
	Error      error      `json:"-"`

	FramesDecoded int `json:"frames_decoded"`
	FramesWritten int `json:"frames_written"`
	FramesDropped int `json:"frames_dropped"`
}

// NewChunkResultSuccess creates a successful result for chunk.
func NewChunkResultSuccess(chunk *Chunk, outputPath string) (*ChunkResult, error) {
	cr := &ChunkResult{
		Index:      chunk.Index,
		Window:     chunk.Window,
		OutputPath: outputPath,
		Success:    true,
	}
	if err := cr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk result: %w", err)
	}
	return cr, nil
}

// NewChunkResultFailure creates a failed result for chunk. err must not be nil.
func NewChunkResultFailure(chunk *Chunk, err error) (*ChunkResult, error) {
	if err == nil {
		return nil, fmt.Errorf("invalid chunk result: error cannot be nil for failed result")
	}
	return &ChunkResult{
		Index:   chunk.Index,
		Window:  chunk.Window,
		Success: false,
		Error:   err,
	}, nil
}

// Validate checks the success/error/output-path invariants.
func (cr *ChunkResult) Validate() error {
	if cr.Success && cr.Error != nil {
		return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
	}
	if !cr.Success && cr.Error == nil {
		return fmt.Errorf("failed result must have an error")
	}
	if cr.Success && strings.TrimSpace(cr.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}
	if !cr.Success && strings.TrimSpace(cr.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}
	if cr.FramesWritten+cr.FramesDropped > cr.FramesDecoded {
		return fmt.Errorf("written (%d) + dropped (%d) exceeds decoded (%d)",
			cr.FramesWritten, cr.FramesDropped, cr.FramesDecoded)
	}
	return nil
}

// Status returns "ok" or "failed".
func (cr *ChunkResult) Status() string {
	if cr.Success {
		return "ok"
	}
	return "failed"
}

// Successful returns the successful results in their original order.
func Successful(results []*ChunkResult) []*ChunkResult {
	out := make([]*ChunkResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Success {
			out = append(out, r)
		}
	}
	return out
}
