// Package concatenator merges chunk videos, in planned order, into one
// output file using ffmpeg's concat demuxer.
package concatenator

import (
	"bgremove/command/concat"
	"bgremove/ffmpeg"
	"bgremove/models"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Concatenator handles merging encoded chunks into a final output file
type Concatenator struct {
	runner     ffmpeg.Runner
	strictMode bool // If true, fail if any chunk is missing. If false, skip missing chunks.
	logger     *slog.Logger
}

// NewConcatenator creates a new concatenator
func NewConcatenator(runner ffmpeg.Runner, strictMode bool, logger *slog.Logger) *Concatenator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Concatenator{
		runner:     runner,
		strictMode: strictMode,
		logger:     logger,
	}
}

// Concatenate merges the successful results into finalOutputPath. The
// manifest is written to workDir and removed afterwards. Every error is a
// models.ErrMerge.
func (c *Concatenator) Concatenate(ctx context.Context, results []*models.ChunkResult, workDir, finalOutputPath string) error {
	successful, failed, err := c.validateResults(results)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrMerge, err)
	}

	if len(failed) > 0 {
		if c.strictMode {
			return fmt.Errorf("%w: strict mode: %d chunks failed", models.ErrMerge, len(failed))
		}
		c.logger.Warn("skipping failed chunks", "failed", len(failed), "merging", len(successful))
	}

	if len(successful) == 0 {
		return fmt.Errorf("%w: no successful chunks to concatenate", models.ErrMerge)
	}

	if err := c.checkForGaps(successful); err != nil {
		if c.strictMode {
			return fmt.Errorf("%w: strict mode: %w", models.ErrMerge, err)
		}
		c.logger.Warn("output has gaps", "error", err)
	}

	manifest, err := c.createConcatFile(successful, workDir)
	if err != nil {
		return fmt.Errorf("%w: failed to create concat file: %w", models.ErrMerge, err)
	}
	defer os.Remove(manifest)

	if err := c.runner.Run(ctx, concat.NewConcatBuilder(manifest, finalOutputPath)); err != nil {
		return fmt.Errorf("%w: ffmpeg concat failed: %w", models.ErrMerge, err)
	}

	if _, err := os.Stat(finalOutputPath); err != nil {
		return fmt.Errorf("%w: output file not created: %w", models.ErrMerge, err)
	}

	c.logger.Info("chunks merged", "chunks", len(successful), "output", finalOutputPath)
	return nil
}

// validateResults separates successful and failed results, sorted by
// chunk index. A successful result whose file is missing counts as failed.
func (c *Concatenator) validateResults(results []*models.ChunkResult) (successful, failed []*models.ChunkResult, err error) {
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("no results provided")
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Success && result.OutputPath != "" {
			if _, err := os.Stat(result.OutputPath); err != nil {
				failed = append(failed, result)
			} else {
				successful = append(successful, result)
			}
		} else {
			failed = append(failed, result)
		}
	}

	sort.Slice(successful, func(i, j int) bool {
		return successful[i].Index < successful[j].Index
	})

	return successful, failed, nil
}

// checkForGaps reports chunk indexes missing from a sorted sequence,
// including any before the first successful chunk.
func (c *Concatenator) checkForGaps(successful []*models.ChunkResult) error {
	if len(successful) == 0 {
		return nil
	}

	gaps := []uint{}
	for id := uint(1); id < successful[0].Index; id++ {
		gaps = append(gaps, id)
	}
	for i := 0; i < len(successful)-1; i++ {
		currentID := successful[i].Index
		nextID := successful[i+1].Index
		for id := currentID + 1; id < nextID; id++ {
			gaps = append(gaps, id)
		}
	}

	if len(gaps) > 0 {
		return fmt.Errorf("missing chunks: %v", gaps)
	}

	return nil
}

// createConcatFile writes the manifest for the concat demuxer:
//
//	file '/abs/path/chunk_0001.mp4'
//	file '/abs/path/chunk_0003.mp4'
func (c *Concatenator) createConcatFile(successful []*models.ChunkResult, workDir string) (string, error) {
	tmpFile, err := os.CreateTemp(workDir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	for _, result := range successful {
		absPath, err := filepath.Abs(result.OutputPath)
		if err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to get absolute path for %s: %w", result.OutputPath, err)
		}
		if _, err := tmpFile.WriteString(concat.ManifestLine(absPath)); err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to write to concat file: %w", err)
		}
	}

	return tmpFile.Name(), nil
}
