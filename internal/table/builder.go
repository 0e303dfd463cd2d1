package table

import (
	"github.com/google/uuid"

	"github.com/SimonWaldherr/gridDB/internal/storage"
)

// Builder accumulates rows for a derived table (the result of an
// assignment). Blocks are written under a throwaway owner name and renamed
// to the target in Finish, so a failed operator never leaves blocks behind
// under a catalog-visible name.
type Builder struct {
	t         *Table
	finalName string
	block     [][]int32
}

// NewBuilder starts a derived table with the given target name and columns.
func NewBuilder(bm *storage.Manager, pol storage.Policy, name string, columns []string) (*Builder, error) {
	scratch := "tmp_" + uuid.NewString()[:8]
	t, err := newTable(bm, pol, scratch, columns)
	if err != nil {
		return nil, err
	}
	return &Builder{t: t, finalName: name}, nil
}

// Append copies one row into the builder, flushing a block when full.
func (b *Builder) Append(row []int32) error {
	cp := append([]int32(nil), row...)
	b.t.noteRow(cp)
	b.block = append(b.block, cp)
	if len(b.block) == b.t.maxRowsPerBlock {
		if err := b.t.flushBlock(b.block); err != nil {
			return err
		}
		b.block = nil
	}
	return nil
}

// Finish flushes the partial block and renames the result to the target
// name. A builder with zero appended rows yields a legitimate empty table
// (no block files).
func (b *Builder) Finish() (*Table, error) {
	if len(b.block) > 0 {
		if err := b.t.flushBlock(b.block); err != nil {
			b.Abort()
			return nil, err
		}
		b.block = nil
	}
	if err := b.t.Rename(b.finalName); err != nil {
		b.Abort()
		return nil, err
	}
	return b.t, nil
}

// Abort deletes everything written so far.
func (b *Builder) Abort() {
	b.t.Drop()
}
