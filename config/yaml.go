package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile loads configuration from a YAML file on top of the
// defaults. Unknown keys are rejected. Relative model, library and ledger
// paths are resolved against the file's directory.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&cfg.Model.Path, &cfg.Model.LibraryPath, &cfg.Ledger.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	return cfg, nil
}

// FindConfigFile returns $BGREMOVE_CONFIG if set, otherwise the first
// existing file of the standard locations.
// Returns empty string if not found (non-fatal)
func FindConfigFile() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./bgremove.yaml",
		"./bgremove.yml",
		filepath.Join(home, ".bgremove", "config.yaml"),
		filepath.Join(home, ".bgremove", "config.yml"),
		"/etc/bgremove/config.yaml",
		"/etc/bgremove/config.yml",
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile writes the reusable part of cfg to a YAML file. Per-run
// fields (input, output, dry run) are left out.
func SaveConfigFile(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := cfg.Copy()
	out.Input = ""
	out.Output = ""
	out.DryRun = false

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
