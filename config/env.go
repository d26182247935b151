package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BGREMOVE_"

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// MergeFromEnv overrides config values with BGREMOVE_* variables.
func (c *Config) MergeFromEnv() error {
	overrides := map[string]*string{
		"INPUT":       &c.Input,
		"OUTPUT":      &c.Output,
		"MODEL_PATH":  &c.Model.Path,
		"ORT_LIBRARY": &c.Model.LibraryPath,
		"DEVICE":      &c.Model.Device,
		"BACKGROUND":  &c.Background,
		"TEMP_DIR":    &c.TempDir,
		"LEDGER_PATH": &c.Ledger.Path,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS %q: %w", EnvPrefix, v, err)
		}
		c.Workers = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "CHUNK_DURATION"); ok && v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sCHUNK_DURATION %q: %w", EnvPrefix, v, err)
		}
		c.ChunkDuration = d
	}
	if v, ok := os.LookupEnv(EnvPrefix + "INPUT_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sINPUT_SIZE %q: %w", EnvPrefix, v, err)
		}
		c.Model.InputSize = n
	}

	return nil
}
