// Package griddb provides a small, embeddable relational + matrix query
// engine over CSV data.
//
// gridDB partitions loaded CSVs into fixed-size disk blocks (one block =
// one file) and executes a line-oriented command language over them through
// a bounded FIFO buffer pool: load, project, select, join, sort, cross,
// distinct, group-by, order-by, index, rename, transpose, symmetry-check,
// compute, export, print. Cells are 32-bit signed integers throughout.
//
// # Basic Usage
//
// Create an engine over a data directory and run commands:
//
//	cfg := griddb.DefaultConfig()
//	cfg.DataDir = "data"
//	eng, err := griddb.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.Run("LOAD employees")
//	eng.Run("top = SELECT Salary >= 90000 FROM employees")
//	eng.Run("SORT top BY Salary IN DESC")
//	eng.Run("EXPORT top")
//
// # Memory discipline
//
// The engine never holds more than BlockCount blocks resident, plus one
// working block per blockifier and the output block of a merge. Every block
// read and write is observable through the buffer pool counters.
package griddb

import (
	"github.com/SimonWaldherr/gridDB/internal/config"
	"github.com/SimonWaldherr/gridDB/internal/engine"
)

// Config is the engine configuration.
type Config = config.Config

// Engine executes commands over a data directory.
type Engine = engine.Engine

// ErrQuit is returned by Run when the session should end (QUIT/EXIT).
var ErrQuit = engine.ErrQuit

// DefaultConfig returns the stock configuration: 1 KB blocks, a ten-page
// pool, twenty print rows, data under ./data.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Open creates an engine over cfg.DataDir, which must exist.
func Open(cfg *Config) (*Engine, error) {
	return engine.New(cfg)
}
