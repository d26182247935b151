package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration with priority:
// CLI flags > environment (.env, BGREMOVE_*) > config file > defaults
func Load(args []string) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Check if -config flag was provided (quick scan to extract it)
	configPath := ""
	for i, arg := range args {
		if (arg == "-config" || arg == "--config") && i+1 < len(args) {
			configPath = args[i+1]
			break
		}
		if v, ok := strings.CutPrefix(arg, "-config="); ok {
			configPath = v
			break
		}
	}

	// If no config flag, try to find config file in standard locations
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Environment
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.MergeFromEnv(); err != nil {
		return nil, err
	}

	// 4. CLI flags (highest priority, overwrites everything)
	if err := cfg.MergeFromFlags(args); err != nil {
		return nil, err
	}

	if cfg.Output == "" && cfg.Input != "" && cfg.History == 0 {
		cfg.Output = DefaultOutputPath(cfg.Input)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
