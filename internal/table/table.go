// Package table implements the row-oriented logical object of gridDB.
//
// What: Blockify from CSV, per-column statistics, forward scans, secondary
// indexes, rename, and a two-phase external-merge sort.
// How: Rows pack into fixed-capacity blocks written through the buffer
// manager; every mutation keeps the rows-per-block ledger in sync with the
// row count so operators can trust the block map.
// Why: The table never holds more than one working block in memory; all
// bulk behavior is expressed against the pool.
package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/SimonWaldherr/gridDB/internal/importer"
	"github.com/SimonWaldherr/gridDB/internal/storage"
)

// ErrEmpty is returned when a source CSV holds a header but no rows.
var ErrEmpty = errors.New("table has no rows")

// Table is a loaded row-oriented object. All block I/O goes through the
// buffer manager it was created with.
type Table struct {
	bm  *storage.Manager
	pol storage.Policy

	name       string
	sourcePath string

	columns  []string
	colIndex map[string]int

	rowCount        int
	blockCount      int
	maxRowsPerBlock int
	rowsPerBlock    []int

	// distinct[c] is the set of values seen in column c.
	distinct []map[int32]struct{}

	index *Index
}

// Load blockifies the CSV at path into block files owned by name. On
// failure every block written so far is deleted before the error returns.
func Load(bm *storage.Manager, pol storage.Policy, name, path string) (*Table, error) {
	r, err := importer.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	columns, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}
	t, err := newTable(bm, pol, name, columns)
	if err != nil {
		return nil, err
	}
	t.sourcePath = path

	var block [][]int32
	for {
		row, err := r.ReadRow(len(columns))
		if err == io.EOF {
			break
		}
		if err != nil {
			t.cleanup()
			return nil, err
		}
		t.noteRow(row)
		block = append(block, row)
		if len(block) == t.maxRowsPerBlock {
			if err := t.flushBlock(block); err != nil {
				t.cleanup()
				return nil, err
			}
			block = nil
		}
	}
	if len(block) > 0 {
		if err := t.flushBlock(block); err != nil {
			t.cleanup()
			return nil, err
		}
	}
	if t.rowCount == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return t, nil
}

func newTable(bm *storage.Manager, pol storage.Policy, name string, columns []string) (*Table, error) {
	maxRows, err := pol.MaxRowsPerBlock(len(columns))
	if err != nil {
		return nil, err
	}
	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := colIndex[c]; dup {
			return nil, fmt.Errorf("duplicate column %s", c)
		}
		colIndex[c] = i
	}
	distinct := make([]map[int32]struct{}, len(columns))
	for i := range distinct {
		distinct[i] = make(map[int32]struct{})
	}
	return &Table{
		bm:              bm,
		pol:             pol,
		name:            name,
		columns:         columns,
		colIndex:        colIndex,
		maxRowsPerBlock: maxRows,
		distinct:        distinct,
	}, nil
}

// noteRow updates the running statistics for one appended row.
func (t *Table) noteRow(row []int32) {
	for c, v := range row {
		t.distinct[c][v] = struct{}{}
	}
	t.rowCount++
}

// flushBlock writes the accumulated rows as the next block.
func (t *Table) flushBlock(block [][]int32) error {
	if err := t.bm.WritePage(t.name, t.blockCount, block); err != nil {
		return err
	}
	t.rowsPerBlock = append(t.rowsPerBlock, len(block))
	t.blockCount++
	return nil
}

// ObjectName implements storage.Object.
func (t *Table) ObjectName() string { return t.name }

// Kind implements storage.Object.
func (t *Table) Kind() storage.ObjectKind { return storage.KindTable }

// SourcePath returns the CSV the table was loaded from, if any.
func (t *Table) SourcePath() string { return t.sourcePath }

// SetSourcePath records the permanent CSV backing the table (set by
// EXPORT).
func (t *Table) SetSourcePath(path string) { t.sourcePath = path }

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string { return t.columns }

// ColumnIndex resolves a column name to its position.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return t.rowCount }

// BlockCount returns the number of blocks.
func (t *Table) BlockCount() int { return t.blockCount }

// RowsPerBlock returns the per-block row ledger. The slice is live.
func (t *Table) RowsPerBlock() []int { return t.rowsPerBlock }

// MaxRowsPerBlock returns the block row capacity for this table's width.
func (t *Table) MaxRowsPerBlock() int { return t.maxRowsPerBlock }

// DistinctCount returns how many distinct values column c holds.
func (t *Table) DistinctCount(c int) int { return len(t.distinct[c]) }

// NewCursor opens a forward row cursor over the table.
func (t *Table) NewCursor() *storage.Cursor {
	return storage.NewCursor(t.bm, t.name, t.blockCount)
}

// Rename renames every block file and resident page, then the table itself.
func (t *Table) Rename(newName string) error {
	for b := 0; b < t.blockCount; b++ {
		if err := t.bm.RenameFile(t.name, newName, b); err != nil {
			return err
		}
	}
	t.bm.RenamePagesInMemory(t.name, newName)
	t.name = newName
	return nil
}

// Drop deletes every block file and any resident pages of the table.
func (t *Table) Drop() {
	t.bm.DropOwner(t.name)
	for b := 0; b < t.blockCount; b++ {
		t.bm.DeleteFile(t.name, b)
	}
}

// cleanup is Drop plus the possibly half-written block beyond the ledger.
// Used on failed loads.
func (t *Table) cleanup() {
	t.Drop()
	t.bm.DeleteFile(t.name, t.blockCount)
}
