// Package storage implements the paged block layer of gridDB.
//
// What: Fixed-size disk blocks of int32 cells (one block = one file), a
// bounded FIFO buffer pool with dirty write-back, a forward row cursor, and
// the process-wide catalog of loaded objects.
// How: Blocks serialize as plain text (one row per line, space-separated
// cells) under <data>/temp/<owner>_Page<index>. The pool is the only gate
// between logical operators and disk; its counters make I/O observable.
// Why: Bounded memory with explicit block I/O keeps every operator above the
// pool honest about its working set.
package storage

import "fmt"

// cellBytes is the on-disk accounting size of one cell (int32).
const cellBytes = 4

// Policy derives block geometry from the configured block size. The size is
// carried in bytes; the configuration surface speaks KB (1 KB = 1000 bytes)
// and multiplies on the way in.
type Policy struct {
	// BlockBytes is the block capacity in bytes.
	BlockBytes int
	// BlockCount is the buffer pool capacity in pages.
	BlockCount int
}

// CapacityCells returns how many int32 cells fit in one block.
func (p Policy) CapacityCells() int {
	return p.BlockBytes / cellBytes
}

// MaxRowsPerBlock returns how many rows of the given width fit in one block.
func (p Policy) MaxRowsPerBlock(columnCount int) (int, error) {
	if columnCount < 1 {
		return 0, fmt.Errorf("invalid column count %d", columnCount)
	}
	rows := p.CapacityCells() / columnCount
	if rows == 0 {
		return 0, fmt.Errorf("block size %d B cannot hold a single %d-column row", p.BlockBytes, columnCount)
	}
	return rows, nil
}

// TileDim returns the largest m with m*m <= CapacityCells, computed by
// integer square root so the result never drifts across platforms.
func (p Policy) TileDim() (int, error) {
	m := isqrt(p.CapacityCells())
	if m == 0 {
		return 0, fmt.Errorf("block size %d B cannot hold a single cell", p.BlockBytes)
	}
	return m, nil
}

// isqrt computes floor(sqrt(n)) by integer Newton iteration, then nudges the
// candidate by ±1. The nudge keeps the result exact even if the seed ever
// lands one off.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	for (x+1)*(x+1) <= n {
		x++
	}
	for x > 0 && x*x > n {
		x--
	}
	return x
}
