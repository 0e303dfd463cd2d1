// Package config holds the runtime configuration for gridDB.
//
// The block geometry (BlockSize, BlockCount) and the print window
// (PrintCount) are fixed for the lifetime of an engine instance: every block
// file on disk is laid out against them, so changing them under a live
// catalog would corrupt every loaded object. They are read once at startup
// from defaults, an optional YAML file, and command-line flags, in that
// order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration. All sizes are fixed at startup.
type Config struct {
	// BlockSize is the block capacity in kilobytes (1 KB = 1000 bytes of
	// int32 cells). Default 1.
	BlockSize int `yaml:"block_size"`

	// BlockBytes, when positive, overrides BlockSize at byte granularity.
	// Meant for experiments and fixtures that need blocks smaller than a
	// kilobyte; leave zero otherwise.
	BlockBytes int `yaml:"block_bytes"`

	// BlockCount is the buffer pool capacity in pages. Default 10.
	BlockCount int `yaml:"block_count"`

	// PrintCount is the number of rows shown by PRINT. Default 20.
	PrintCount int `yaml:"print_count"`

	// DataDir is the directory holding permanent CSVs. Block files live
	// under DataDir/temp. Default "data".
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error. Default "info".
	LogLevel string `yaml:"log_level"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		BlockSize:  1,
		BlockCount: 10,
		PrintCount: 20,
		DataDir:    "data",
		LogLevel:   "info",
	}
}

// Load reads a YAML config file and overlays it on the defaults. A missing
// field keeps its default; a missing file is an error.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BlockCapacityBytes returns the effective block capacity in bytes.
func (c *Config) BlockCapacityBytes() int {
	if c.BlockBytes > 0 {
		return c.BlockBytes
	}
	return c.BlockSize * 1000
}

// Validate rejects geometries the storage layer cannot work with.
func (c *Config) Validate() error {
	if c.BlockSize < 1 && c.BlockBytes <= 0 {
		return fmt.Errorf("block_size must be at least 1 KB, got %d", c.BlockSize)
	}
	// Pair operations (off-diagonal tile transpose, merge input+output)
	// need two resident pages at once.
	if c.BlockCount < 2 {
		return fmt.Errorf("block_count must be at least 2, got %d", c.BlockCount)
	}
	if c.PrintCount < 1 {
		return fmt.Errorf("print_count must be at least 1, got %d", c.PrintCount)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// TempDir returns the directory holding block files.
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "temp")
}
