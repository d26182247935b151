// Package orchestrator runs a background removal job end to end: probe,
// plan, process every chunk, merge the survivors and move the result into
// place.
package orchestrator

import (
	"bgremove/chunker"
	"bgremove/command/mixing"
	"bgremove/config"
	"bgremove/ffmpeg"
	"bgremove/models"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Prober reads the metadata of a source video.
type Prober interface {
	Probe(ctx context.Context, path string) (*models.VideoSource, error)
}

// ChunkProcessor renders one chunk into dir. *processor.Processor
// implements it. A ChunkProcessor is used by one goroutine at a time.
type ChunkProcessor interface {
	Process(ctx context.Context, src *models.VideoSource, chunk *models.Chunk, dir string) *models.ChunkResult
}

// Merger joins chunk videos into one file.
type Merger interface {
	Concatenate(ctx context.Context, results []*models.ChunkResult, workDir, finalOutputPath string) error
}

// Recorder persists finished jobs.
type Recorder interface {
	RecordJob(ctx context.Context, report *models.JobReport) error
}

// Options configures a job.
type Options struct {
	OutputPath    string  // empty = <input stem>_nobg.mp4
	ChunkDuration float64 // seconds
	TempDir       string  // parent of the job directory, empty = OS temp dir

	KeepAudio    bool
	AudioCodec   string
	AudioBitrate string
}

// Orchestrator owns a pool of chunk processors, one per worker.
type Orchestrator struct {
	prober     Prober
	processors chan ChunkProcessor
	workers    int
	merger     Merger
	runner     ffmpeg.Runner
	recorder   Recorder
	opts       Options
	logger     *slog.Logger

	progressMu sync.Mutex
	onProgress models.ProgressCallback
}

// New creates an orchestrator. The number of processors is the number of
// chunks processed at once. runner is used to mux the source audio back
// in and may be nil when audio is not kept.
func New(prober Prober, processors []ChunkProcessor, merger Merger, runner ffmpeg.Runner, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if prober == nil {
		return nil, fmt.Errorf("prober cannot be nil")
	}
	if merger == nil {
		return nil, fmt.Errorf("merger cannot be nil")
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("at least one processor is required")
	}
	if opts.KeepAudio && runner == nil {
		return nil, fmt.Errorf("runner is required to keep audio")
	}
	if opts.ChunkDuration == 0 {
		opts.ChunkDuration = chunker.DefaultChunkDuration
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := make(chan ChunkProcessor, len(processors))
	for _, p := range processors {
		if p == nil {
			return nil, fmt.Errorf("processor cannot be nil")
		}
		pool <- p
	}

	return &Orchestrator{
		prober:     prober,
		processors: pool,
		workers:    len(processors),
		merger:     merger,
		runner:     runner,
		opts:       opts,
		logger:     logger,
	}, nil
}

// SetRecorder enables the job ledger.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// SetProgressCallback sets a callback for progress updates. Calls are
// serialized.
func (o *Orchestrator) SetProgressCallback(callback models.ProgressCallback) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.onProgress = callback
}

// RemoveBackground replaces the background of inputPath and returns the
// path of the finished video.
//
// Chunks that fail are left out of the output; the job fails with
// models.ErrNoChunksProduced only when none survive. An unreadable source
// fails with models.ErrDecode and a failed merge with models.ErrMerge.
// The job directory is removed on every path.
func (o *Orchestrator) RemoveBackground(ctx context.Context, inputPath string) (outputPath string, err error) {
	output := o.opts.OutputPath
	if output == "" {
		output = config.DefaultOutputPath(inputPath)
	}

	job := models.NewJob(inputPath, output)
	log := o.logger.With("job", job.ID)
	report := &models.JobReport{
		JobID:     job.ID,
		InputPath: inputPath,
		Status:    models.JobStatusRunning,
		StartedAt: job.StartedAt,
	}
	progress := models.JobProgress{JobID: job.ID, StartTime: job.StartedAt}

	defer func() {
		o.finish(ctx, log, report, outputPath, err)
		state := models.ProgressStateCompleted
		if err != nil {
			state = models.ProgressStateFailed
		}
		progress.State = state
		progress.LastChunk = nil
		o.emit(progress)
	}()

	// Probe
	progress.State = models.ProgressStateProbing
	o.emit(progress)

	src, err := o.prober.Probe(ctx, inputPath)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if !errors.Is(err, models.ErrDecode) {
			err = fmt.Errorf("%w: %w", models.ErrDecode, err)
		}
		return "", err
	}
	if err := src.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrDecode, inputPath, err)
	}
	job.Source = src
	log.Info("source probed",
		"duration", src.Duration,
		"fps", src.FrameRate,
		"size", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"audio", src.HasAudio)

	// Plan
	chunks, err := chunker.NewChunker(src.Path).SetChunkDuration(o.opts.ChunkDuration).CreateChunks(src)
	if err != nil {
		return "", fmt.Errorf("chunking failed: %w", err)
	}
	if err := chunker.ValidateChunks(chunks); err != nil {
		return "", fmt.Errorf("chunk validation failed: %w", err)
	}
	job.Chunks = chunks
	log.Info("chunks planned", "chunks", len(chunks), "chunk_duration", o.opts.ChunkDuration, "workers", o.workers)

	dir, err := os.MkdirTemp(o.opts.TempDir, "bgremove-"+job.ID[:8]+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create job directory: %w", err)
	}
	job.TempDir = dir
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("failed to remove job directory", "dir", dir, "error", rmErr)
		}
	}()

	// Process
	progress.State = models.ProgressStateProcessing
	progress.TotalChunks = len(chunks)
	o.emit(progress)

	results := o.processChunks(ctx, job, &progress)
	report.Chunks = compact(results)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(models.Successful(results)) == 0 {
		return "", fmt.Errorf("%w: all %d chunks failed", models.ErrNoChunksProduced, len(chunks))
	}

	// Merge
	progress.State = models.ProgressStateMerging
	progress.LastChunk = nil
	o.emit(progress)

	merged := filepath.Join(dir, "merged.mp4")
	if err := o.merger.Concatenate(ctx, report.Chunks, dir, merged); err != nil {
		return "", err
	}

	final := merged
	if o.opts.KeepAudio && src.HasAudio {
		final = filepath.Join(dir, "muxed.mp4")
		if err := o.muxAudio(ctx, merged, src.Path, final); err != nil {
			return "", err
		}
	}

	if err := moveFile(final, output); err != nil {
		return "", fmt.Errorf("failed to move output to %s: %w", output, err)
	}

	return output, nil
}

// processChunks runs every chunk through the processor pool. Results are
// stored at the chunk's position, so their order is the planned order
// whatever the completion order. Chunks not started before ctx is done
// have a nil result.
func (o *Orchestrator) processChunks(ctx context.Context, job *models.Job, progress *models.JobProgress) []*models.ChunkResult {
	results := make([]*models.ChunkResult, len(job.Chunks))

	var g errgroup.Group
	g.SetLimit(o.workers)

	for i, chunk := range job.Chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p := <-o.processors
			defer func() { o.processors <- p }()

			res := p.Process(ctx, job.Source, chunk, job.TempDir)
			results[i] = res

			o.progressMu.Lock()
			progress.DoneChunks++
			if !res.Success {
				progress.FailedChunks++
			}
			progress.LastChunk = res
			snapshot := *progress
			o.progressMu.Unlock()

			o.emit(snapshot)
			return nil
		})
	}

	g.Wait()
	return results
}

// muxAudio copies the video of videoPath and the first audio track of
// audioSource into outputPath.
func (o *Orchestrator) muxAudio(ctx context.Context, videoPath, audioSource, outputPath string) error {
	cmd := mixing.NewMixingBuilder(videoPath, outputPath).
		AddAudioTrack(audioSource)
	if o.opts.AudioCodec != "" {
		cmd.SetAudioCodec(o.opts.AudioCodec)
	}
	if o.opts.AudioBitrate != "" {
		cmd.SetAudioBitrate(o.opts.AudioBitrate)
	}

	if err := o.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: audio mux: %w", models.ErrMerge, err)
	}
	return nil
}

// emit delivers progress to the callback, if any.
func (o *Orchestrator) emit(progress models.JobProgress) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.onProgress == nil {
		return
	}
	progress.UpdatedAt = time.Now()
	o.onProgress(progress)
}

// finish fills in the terminal state of report and records it.
func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, report *models.JobReport, outputPath string, err error) {
	report.FinishedAt = time.Now()
	report.OutputPath = outputPath

	switch {
	case err == nil && report.ChunksSucceeded() < len(report.Chunks):
		report.Status = models.JobStatusPartial
	case err == nil:
		report.Status = models.JobStatusSucceeded
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		report.Status = models.JobStatusCancelled
	default:
		report.Status = models.JobStatusFailed
	}
	if err != nil {
		report.Error = err.Error()
	}

	attrs := []any{
		"status", report.Status,
		"chunks", len(report.Chunks),
		"succeeded", report.ChunksSucceeded(),
		"frames", report.FramesWritten(),
		"elapsed", report.Elapsed().Round(time.Millisecond),
	}
	if err != nil {
		log.Error("job failed", append(attrs, "error", err)...)
	} else {
		log.Info("job finished", append(attrs, "output", outputPath)...)
	}

	if o.recorder == nil {
		return
	}
	if recErr := o.recorder.RecordJob(context.WithoutCancel(ctx), report); recErr != nil {
		log.Warn("failed to record job", "error", recErr)
	}
}

func compact(results []*models.ChunkResult) []*models.ChunkResult {
	out := make([]*models.ChunkResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// moveFile renames src to dst, copying when they are on different
// filesystems.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
