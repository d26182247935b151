package config

import (
	"bgremove/chunker"
	"bgremove/models"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.History != 0 {
		return c.validateHistory()
	}

	var errors []string

	// Required fields
	if c.Input == "" {
		errors = append(errors, "input file is required")
	} else if _, err := os.Stat(c.Input); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("input file does not exist: %s", c.Input))
	}

	if c.Output == "" {
		errors = append(errors, "output file is required")
	} else if c.Input != "" && filepath.Clean(c.Input) == filepath.Clean(c.Output) {
		errors = append(errors, "output file must differ from input file")
	}

	if c.ChunkDuration < chunker.MinChunkDuration || c.ChunkDuration > chunker.MaxChunkDuration {
		errors = append(errors, fmt.Sprintf("chunk duration must be between %g and %g seconds",
			chunker.MinChunkDuration, chunker.MaxChunkDuration))
	}

	if c.Workers < 1 {
		errors = append(errors, "workers must be at least 1")
	}

	if _, err := models.ParseColor(c.Background); err != nil {
		errors = append(errors, fmt.Sprintf("background: %v", err))
	}

	if err := c.Model.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("model config: %v", err))
	}

	if err := c.Video.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("video config: %v", err))
	}

	if c.KeepAudio {
		if err := c.Audio.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("audio config: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validateHistory checks a history listing, which needs nothing but the
// ledger.
func (c *Config) validateHistory() error {
	var errors []string

	if c.History < 0 {
		errors = append(errors, "history must be a positive number of jobs")
	}
	if c.Ledger.Path == "" {
		errors = append(errors, "history requires a ledger path")
	} else if _, err := os.Stat(c.Ledger.Path); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("ledger file does not exist: %s", c.Ledger.Path))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// Validate checks if model configuration is valid
func (mc *ModelConfig) Validate() error {
	var errors []string

	if mc.Path == "" {
		errors = append(errors, "model path is required")
	} else if _, err := os.Stat(mc.Path); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("model file does not exist: %s", mc.Path))
	}

	if mc.InputSize <= 0 {
		errors = append(errors, "input size must be positive")
	} else if mc.InputSize%32 != 0 {
		errors = append(errors, "input size must be a multiple of 32")
	}

	if !IsValidDevice(mc.Device) {
		errors = append(errors, fmt.Sprintf("invalid device '%s', must be one of: %s",
			mc.Device, strings.Join(DeviceValues(), ", ")))
	}

	if mc.Threads < 0 {
		errors = append(errors, "threads cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if video configuration is valid
func (vc *VideoConfig) Validate() error {
	var errors []string

	if vc.Codec == "" {
		errors = append(errors, "codec is required")
	}

	// -1 leaves quality to the codec
	if vc.CRF < -1 || vc.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51 (or -1)")
	}

	if vc.MaxHeight < 0 {
		errors = append(errors, "max height cannot be negative (use 0 for original)")
	} else if vc.MaxHeight%2 == 1 {
		errors = append(errors, "max height must be even")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if audio configuration is valid
func (ac *AudioConfig) Validate() error {
	if ac.Codec == "" {
		return fmt.Errorf("codec is required")
	}
	return nil
}
