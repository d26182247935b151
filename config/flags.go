package config

import (
	"flag"
	"fmt"
	"os"
)

// MergeFromFlags parses command-line flags and overrides config values
func (c *Config) MergeFromFlags(args []string) error {
	fs := flag.NewFlagSet("bgremove", flag.ContinueOnError)
	fs.Usage = printUsage

	// Required fields
	input := fs.String("input", "", "Input video file path (required)")
	output := fs.String("output", "", "Output file path (default: <input>_nobg.mp4)")

	// Config file override (handled by Load before this function is called)
	_ = fs.String("config", "", "Path to config file (default: search standard locations)")

	// Model settings
	model := fs.String("model", "", "Matting model (.onnx) path (default: from config)")
	ortLibrary := fs.String("ort-library", "", "onnxruntime shared library path (default: from config)")
	device := fs.String("device", "", "Inference device: auto, cuda, cpu (default: from config)")
	inputSize := fs.Int("input-size", -1, "Model working resolution (default: from config)")

	// Execution settings
	workers := fs.Int("workers", -1, "Number of parallel chunk processors (default: from config)")
	chunkDuration := fs.Float64("chunk-duration", -1, "Duration of each chunk in seconds (default: from config)")
	background := fs.String("background", "", "Background color: name or #RRGGBB (default: from config)")
	tempDir := fs.String("temp-dir", "", "Directory for job scratch files (default: from config)")

	// Video settings
	videoCodec := fs.String("video-codec", "", "Chunk video codec (default: from config)")
	videoCRF := fs.Int("video-crf", -2, "Video CRF (0-51, lower = better quality, -1 = codec default)")
	videoPreset := fs.String("video-preset", "", "Video preset: ultrafast, veryfast, medium, slow (default: from config)")
	maxHeight := fs.Int("max-height", -1, "Cap processing height in pixels, 0 = original (default: from config)")

	// Audio and history
	keepAudio := fs.Bool("keep-audio", false, "Carry the source audio over to the output")
	ledgerPath := fs.String("ledger", "", "sqlite job history file (default: from config)")
	history := fs.Int("history", 0, "Print the N most recent jobs from the ledger and exit")

	// Behavioral flags
	strict := fs.Bool("strict", false, "Enable strict mode (fail if any chunk is missing)")
	noStrict := fs.Bool("no-strict", false, "Disable strict mode (skip failed chunks)")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	dryRun := fs.Bool("dry-run", false, "Show configuration and commands without processing")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// A bare positional argument is accepted as the input
	if *input == "" && fs.NArg() > 0 {
		*input = fs.Arg(0)
	}

	// Override with flag values (only if explicitly set)
	if *input != "" {
		c.Input = *input
	}
	if *output != "" {
		c.Output = *output
	}

	if *model != "" {
		c.Model.Path = *model
	}
	if *ortLibrary != "" {
		c.Model.LibraryPath = *ortLibrary
	}
	if *device != "" {
		c.Model.Device = *device
	}
	if *inputSize > 0 {
		c.Model.InputSize = *inputSize
	}

	// Execution settings (-1 means not set)
	if *workers >= 0 {
		c.Workers = *workers
	}
	if *chunkDuration > 0 {
		c.ChunkDuration = *chunkDuration
	}
	if *background != "" {
		c.Background = *background
	}
	if *tempDir != "" {
		c.TempDir = *tempDir
	}

	if *videoCodec != "" {
		c.Video.Codec = *videoCodec
	}
	if *videoCRF >= -1 {
		c.Video.CRF = *videoCRF
	}
	if *videoPreset != "" {
		c.Video.Preset = *videoPreset
	}
	if *maxHeight >= 0 {
		c.Video.MaxHeight = *maxHeight
	}

	if *keepAudio {
		c.KeepAudio = true
	}
	if *ledgerPath != "" {
		c.Ledger.Path = *ledgerPath
	}
	if *history != 0 {
		c.History = *history
	}

	if *strict {
		c.StrictMode = true
	}
	if *noStrict {
		c.StrictMode = false
	}
	if *verbose {
		c.Verbose = true
	}
	if *dryRun {
		c.DryRun = true
	}

	return nil
}

// printUsage prints help text
func printUsage() {
	fmt.Fprintf(os.Stderr, `bgremove - Replace the background of a video with a solid color

USAGE:
  bgremove -input FILE -model MODEL.onnx [OPTIONS]
  bgremove -ledger FILE -history N

REQUIRED FLAGS:
  -input string
        Input video file path (required)
  -model string
        Matting model in ONNX format (required)

OUTPUT:
  -output string
        Output file path (default: <input stem>_nobg.mp4 next to the input)
  -background string
        Background color: green, blue, red, white, black or #RRGGBB (default: #00FF00)
  --keep-audio
        Carry the source audio over to the output

CONFIGURATION:
  -config string
        Path to config file (default: search ./bgremove.yaml, ~/.bgremove/config.yaml, /etc/bgremove/config.yaml)

MODEL SETTINGS:
  -device string
        Inference device: auto, cuda, cpu (default: auto)
  -input-size int
        Model working resolution (default: 256)
  -ort-library string
        onnxruntime shared library path

EXECUTION SETTINGS:
  -workers int
        Number of parallel chunk processors, each loads its own model (default: 1)
  -chunk-duration float
        Duration of each chunk in seconds (default: 15)
  -temp-dir string
        Directory for job scratch files (default: OS temp dir)

VIDEO SETTINGS:
  -video-codec string
        Chunk video codec (default: libx264)
  -video-crf int
        Video CRF: 0-51, lower = better quality (default: 23)
  -video-preset string
        Video preset (default: veryfast)
  -max-height int
        Cap processing height, e.g. 540 (0 = original)

BEHAVIORAL FLAGS:
  --strict
        Enable strict mode: fail if any chunk is missing
  --no-strict
        Disable strict mode: merge the chunks that succeeded (default)
  -ledger string
        Record jobs in this sqlite file
  -history int
        Print the N most recent jobs from the ledger and exit (needs -ledger)
  --verbose
        Enable verbose logging
  --dry-run
        Show effective configuration and commands without processing

ENVIRONMENT:
  BGREMOVE_MODEL_PATH, BGREMOVE_ORT_LIBRARY, BGREMOVE_DEVICE, BGREMOVE_WORKERS,
  BGREMOVE_CHUNK_DURATION, BGREMOVE_BACKGROUND, BGREMOVE_TEMP_DIR,
  BGREMOVE_LEDGER_PATH (also read from ./.env), BGREMOVE_CONFIG (config file path)

EXAMPLES:
  # Basic usage
  bgremove -input talk.mp4 -model modnet.onnx

  # Blue background, keep the audio track
  bgremove -input talk.mp4 -model modnet.onnx -background blue --keep-audio

  # Two workers on the CPU, 540p processing
  bgremove -input talk.mp4 -model modnet.onnx -device cpu -workers 2 -max-height 540

  # Show effective configuration
  bgremove -input talk.mp4 -model modnet.onnx --dry-run

  # Last 10 jobs and their chunks
  bgremove -ledger jobs.db -history 10

CONFIGURATION FILES:
  Config files are searched in order:
    1. ./bgremove.yaml
    2. ~/.bgremove/config.yaml
    3. /etc/bgremove/config.yaml

  Priority: CLI flags > Environment > Config file > Defaults

`)
}

// PrintConfig prints the effective configuration
func (c *Config) PrintConfig() {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("                 Effective Configuration                  ")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("Input:          %s\n", c.Input)
	fmt.Printf("Output:         %s\n", c.Output)
	fmt.Printf("Background:     %s\n", c.Background)
	fmt.Printf("Workers:        %d\n", c.Workers)
	fmt.Printf("Chunk Duration: %g seconds\n", c.ChunkDuration)
	if c.TempDir != "" {
		fmt.Printf("Temp Dir:       %s\n", c.TempDir)
	}

	fmt.Println("\nModel Settings:")
	fmt.Printf("  Path:         %s\n", c.Model.Path)
	fmt.Printf("  Device:       %s\n", c.Model.Device)
	fmt.Printf("  Input Size:   %d\n", c.Model.InputSize)

	fmt.Println("\nVideo Settings:")
	fmt.Printf("  Codec:        %s\n", c.Video.Codec)
	fmt.Printf("  CRF:          %d\n", c.Video.CRF)
	fmt.Printf("  Preset:       %s\n", c.Video.Preset)
	if c.Video.MaxHeight > 0 {
		fmt.Printf("  Max Height:   %d\n", c.Video.MaxHeight)
	}

	fmt.Println("\nBehavioral Flags:")
	fmt.Printf("  Keep Audio:    %v\n", c.KeepAudio)
	fmt.Printf("  Strict Mode:   %v\n", c.StrictMode)
	fmt.Printf("  Verbose:       %v\n", c.Verbose)
	if c.Ledger.Path != "" {
		fmt.Printf("  Ledger:        %s\n", c.Ledger.Path)
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}
