package config

import (
	"path/filepath"
	"strings"
)

// Config holds all background removal options
type Config struct {
	// Required fields
	Input  string `yaml:"input"`
	Output string `yaml:"output"` // empty = <input stem>_nobg.mp4

	// Execution settings
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds per chunk
	Workers       int     `yaml:"workers"`        // parallel chunk processors, each with its own model
	Background    string  `yaml:"background"`     // color name or #RRGGBB
	TempDir       string  `yaml:"temp_dir"`       // empty = OS temp dir

	// Model settings
	Model ModelConfig `yaml:"model"`

	// Video settings
	Video VideoConfig `yaml:"video"`

	// Audio carry-over settings
	KeepAudio bool        `yaml:"keep_audio"`
	Audio     AudioConfig `yaml:"audio"`

	// Job history
	Ledger LedgerConfig `yaml:"ledger"`

	// Behavioral flags
	StrictMode bool `yaml:"strict_mode"` // Fail the merge if any chunk is missing
	Verbose    bool `yaml:"verbose"`     // Debug logging
	DryRun     bool `yaml:"dry_run"`     // Show config and commands without processing

	// History > 0 prints that many recorded jobs from the ledger and exits
	History int `yaml:"-"`
}

// ModelConfig holds matting model settings
type ModelConfig struct {
	Path        string `yaml:"path"`         // .onnx file
	LibraryPath string `yaml:"library_path"` // onnxruntime shared library (empty = platform default)
	InputSize   int    `yaml:"input_size"`   // square working resolution, must match the model
	InputName   string `yaml:"input_name"`   // empty = read from the model
	OutputName  string `yaml:"output_name"`  // empty = read from the model
	Device      string `yaml:"device"`       // "auto", "cuda", "cpu"
	Threads     int    `yaml:"threads"`      // intra-op threads (0 = onnxruntime default)
}

// VideoConfig holds chunk encoding settings
type VideoConfig struct {
	Codec       string `yaml:"codec"`        // e.g., "libx264", "libx265"
	CRF         int    `yaml:"crf"`          // Constant Rate Factor (0-51, lower = better quality)
	Preset      string `yaml:"preset"`       // e.g., "ultrafast", "veryfast", "medium"
	PixelFormat string `yaml:"pixel_format"` // e.g., "yuv420p"
	MaxHeight   int    `yaml:"max_height"`   // cap decode height (0 = keep original)
}

// AudioConfig holds settings for muxing the source audio back in
type AudioConfig struct {
	Codec   string `yaml:"codec"`   // e.g., "aac", "copy"
	Bitrate string `yaml:"bitrate"` // e.g., "128k", "192k"
}

// LedgerConfig holds job history settings
type LedgerConfig struct {
	Path string `yaml:"path"` // sqlite file (empty = disabled)
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		// Required - must be provided by user
		Input:  "",
		Output: "",

		// Execution settings
		ChunkDuration: 15,
		Workers:       1, // one model in memory
		Background:    "#00FF00",

		Model: ModelConfig{
			InputSize: 256,
			Device:    "auto",
		},

		// Chunk encoding defaults (every chunk must match for stream-copy concat)
		Video: VideoConfig{
			Codec:       "libx264",
			CRF:         23,
			Preset:      "veryfast",
			PixelFormat: "yuv420p",
			MaxHeight:   0,
		},

		KeepAudio: false,
		Audio: AudioConfig{
			Codec:   "aac",
			Bitrate: "128k",
		},

		// Behavioral defaults
		StrictMode: false, // Skip failed chunks
		Verbose:    false,
		DryRun:     false,
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	copy.Model = c.Model
	copy.Video = c.Video
	copy.Audio = c.Audio
	copy.Ledger = c.Ledger
	return &copy
}

// DeviceValues returns valid device values
func DeviceValues() []string {
	return []string{"auto", "cuda", "cpu"}
}

// IsValidDevice checks if device is valid
func IsValidDevice(device string) bool {
	for _, valid := range DeviceValues() {
		if device == valid {
			return true
		}
	}
	return false
}

// DefaultOutputPath returns <dir>/<stem>_nobg.mp4 for input.
func DefaultOutputPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+"_nobg.mp4")
}
