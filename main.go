package main

import (
	"bgremove/chunker"
	"bgremove/command/decode"
	"bgremove/command/encode"
	"bgremove/concatenator"
	"bgremove/config"
	"bgremove/engine"
	"bgremove/ffmpeg"
	"bgremove/ffprobe"
	"bgremove/ledger"
	"bgremove/models"
	"bgremove/orchestrator"
	"bgremove/processor"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// Step 1: Load configuration (CLI flags > environment > config file > defaults)
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Step 2: Cancel on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 3: Handle history and dry-run modes
	if cfg.History > 0 {
		if err := printHistory(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "❌ History failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if cfg.DryRun {
		if err := dryRun(ctx, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Dry run failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Step 4: Run the pipeline
	output, err := runPipeline(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\n⚠️  Background removal cancelled by user")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "\n❌ Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Background removed: %s\n", output)
}

// runPipeline loads the engines and runs one job.
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	startTime := time.Now()

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  BGREMOVE - PIPELINE START                     ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Printf("Input:      %s\n", cfg.Input)
	fmt.Printf("Output:     %s\n", cfg.Output)
	fmt.Printf("Background: %s\n", cfg.Background)
	fmt.Println()

	bg, err := models.ParseColor(cfg.Background)
	if err != nil {
		return "", err
	}

	runner := ffmpeg.NewExecRunner("", logger)
	if !runner.Available() {
		return "", fmt.Errorf("ffmpeg not found in PATH")
	}

	// PHASE 1: Model loading
	fmt.Println("🧠 Phase 1: Model Loading")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	device, err := resolveDevice(ctx, cfg.Model.Device)
	if err != nil {
		return "", err
	}

	engines := make([]engine.Engine, 0, cfg.Workers)
	defer func() {
		for _, e := range engines {
			e.Close()
		}
	}()

	codec := &processor.FFmpegCodec{
		Runner: runner,
		Video: processor.VideoSettings{
			Codec:       cfg.Video.Codec,
			CRF:         cfg.Video.CRF,
			Preset:      cfg.Video.Preset,
			PixelFormat: cfg.Video.PixelFormat,
		},
	}

	processors := make([]orchestrator.ChunkProcessor, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		e, err := engine.NewONNXEngine(engine.Options{
			ModelPath:   cfg.Model.Path,
			LibraryPath: cfg.Model.LibraryPath,
			InputSize:   cfg.Model.InputSize,
			InputName:   cfg.Model.InputName,
			OutputName:  cfg.Model.OutputName,
			Device:      device,
			Threads:     cfg.Model.Threads,
		}, logger.With("worker", i+1))
		if err != nil {
			return "", fmt.Errorf("failed to load model: %w", err)
		}
		engines = append(engines, e)

		p, err := processor.New(e, codec, codec, processor.Options{
			Background: bg,
			MaxHeight:  cfg.Video.MaxHeight,
		}, logger.With("worker", i+1))
		if err != nil {
			return "", err
		}
		processors = append(processors, p)
	}

	fmt.Printf("  Model:      %s\n", cfg.Model.Path)
	fmt.Printf("  Device:     %s\n", device)
	fmt.Printf("  Workers:    %d\n", cfg.Workers)
	fmt.Println()

	orch, err := orchestrator.New(
		ffprobe.NewProber("", logger),
		processors,
		concatenator.NewConcatenator(runner, cfg.StrictMode, logger),
		runner,
		orchestrator.Options{
			OutputPath:    cfg.Output,
			ChunkDuration: cfg.ChunkDuration,
			TempDir:       cfg.TempDir,
			KeepAudio:     cfg.KeepAudio,
			AudioCodec:    cfg.Audio.Codec,
			AudioBitrate:  cfg.Audio.Bitrate,
		},
		logger,
	)
	if err != nil {
		return "", err
	}

	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			logger.Warn("job ledger disabled", "error", err)
		} else {
			defer l.Close()
			orch.SetRecorder(l)
		}
	}

	// PHASE 2: Processing
	fmt.Println("🎬 Phase 2: Background Removal")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	orch.SetProgressCallback(printProgress)

	output, err := orch.RemoveBackground(ctx, cfg.Input)
	fmt.Println()
	if err != nil {
		return "", err
	}

	// PHASE 3: Final Report
	elapsed := time.Since(startTime)
	outputSize := int64(0)
	if info, err := os.Stat(output); err == nil {
		outputSize = info.Size()
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("                     ✅ SUCCESS!")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Output:      %s\n", output)
	fmt.Printf("  Size:        %.2f MB\n", float64(outputSize)/(1024*1024))
	fmt.Printf("  Total time:  %.2fs\n", elapsed.Seconds())
	fmt.Println("═══════════════════════════════════════════════════════════")

	return output, nil
}

// printProgress renders an ffmpeg-style status line.
func printProgress(p models.JobProgress) {
	switch p.State {
	case models.ProgressStateProbing:
		fmt.Println("  Probing source...")
	case models.ProgressStateProcessing:
		eta := p.ETA().Round(time.Second)
		fmt.Printf("\r  chunk=%d/%d failed=%d progress=%.0f%% eta=%s",
			p.DoneChunks, p.TotalChunks, p.FailedChunks, p.Percent(), eta)
		if p.LastChunk != nil && !p.LastChunk.Success {
			fmt.Printf("\n  ⚠️  chunk %d skipped: %v\n", p.LastChunk.Index, p.LastChunk.Error)
		}
		os.Stdout.Sync()
	case models.ProgressStateMerging:
		fmt.Printf("\n  🔗 Merging %d chunks...\n", p.DoneChunks-p.FailedChunks)
	case models.ProgressStateCompleted:
		fmt.Println("  ✓ Done")
	}
}

// resolveDevice maps the configured device to one available on this host.
func resolveDevice(ctx context.Context, requested string) (engine.Device, error) {
	d, err := engine.ParseDevice(requested)
	if err != nil {
		return "", err
	}
	return engine.Select(d, engine.Detect(ctx, ""))
}

// printHistory lists the most recent jobs recorded in the ledger.
func printHistory(ctx context.Context, cfg *config.Config) error {
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	return l.WriteHistory(ctx, os.Stdout, cfg.History)
}

// dryRun prints the effective configuration and the commands that would
// run for the first chunk.
func dryRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("                      DRY RUN MODE")
	fmt.Println("═══════════════════════════════════════════════════════════")
	cfg.PrintConfig()

	src, err := ffprobe.NewProber("", logger).Probe(ctx, cfg.Input)
	if err != nil {
		return err
	}
	chunks, err := chunker.NewChunker(src.Path).SetChunkDuration(cfg.ChunkDuration).CreateChunks(src)
	if err != nil {
		return err
	}

	width, height := src.FrameSize(cfg.Video.MaxHeight)
	fmt.Printf("\nSource: %dx%d @ %s fps, %.2fs, %d chunks\n",
		src.Width, src.Height, src.RateArg(), src.Duration, len(chunks))

	dec := decode.NewDecodeBuilder(chunks[0])
	if width != src.Width || height != src.Height {
		dec.SetScale(width, height)
	}
	preview, err := dec.DryRun()
	if err != nil {
		return err
	}
	fmt.Printf("\nDecode (chunk 1):\n  %s\n", preview)

	enc := encode.NewEncodeBuilder(processor.ChunkPath(os.TempDir(), chunks[0]), width, height, src.RateArg()).
		SetCodec(cfg.Video.Codec).
		SetCRF(cfg.Video.CRF).
		SetPreset(cfg.Video.Preset).
		SetPixelFormat(cfg.Video.PixelFormat)
	preview, err = enc.DryRun()
	if err != nil {
		return err
	}
	fmt.Printf("\nEncode (chunk 1):\n  %s\n", preview)

	fmt.Println("\n✓ Configuration is valid. No processing will be performed.")
	return nil
}
