package table

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/gridDB/internal/storage"
)

// Direction is an explicit per-key sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// SortKey is one entry of a lexicographic key vector.
type SortKey struct {
	Column int
	Dir    Direction
}

// compareRows orders a and b by the key vector: earlier keys dominate,
// each key honoring its own direction. Returns <0, 0, >0.
func compareRows(a, b []int32, keys []SortKey) int {
	for _, k := range keys {
		av, bv := a[k.Column], b[k.Column]
		if av == bv {
			continue
		}
		if k.Dir == Descending {
			av, bv = bv, av
		}
		if av < bv {
			return -1
		}
		return 1
	}
	return 0
}

// Sort orders the table in place by the key vector using a two-phase
// external-merge sort.
//
// Phase one turns every block into a sorted run: each block is loaded fully,
// sorted in memory, and written straight back. Phase two runs ⌈log₂ B⌉
// passes; each pass merges pairs of adjacent runs of the current size into
// runs twice as long, writing output blocks through WritePage (bypassing
// the pool) as they fill. The merge reads through two input frames at a
// time and holds its output block outside the pool, so the pool never
// exceeds its capacity. Ties across runs keep the row from
// the lower run, making the sort stable.
//
// Any secondary index is dropped: row positions move.
func (t *Table) Sort(keys []SortKey) error {
	for _, k := range keys {
		if k.Column < 0 || k.Column >= len(t.columns) {
			return fmt.Errorf("sort key column %d out of range", k.Column)
		}
	}
	t.index = nil

	// Sorting phase: one sorted run per block.
	for b := 0; b < t.blockCount; b++ {
		p, err := t.bm.GetPage(t.name, b)
		if err != nil {
			return err
		}
		cells := p.CloneCells()
		sort.SliceStable(cells, func(i, j int) bool {
			return compareRows(cells[i], cells[j], keys) < 0
		})
		if err := t.bm.WritePage(t.name, b, cells); err != nil {
			return err
		}
	}

	// Merging phase: every block is a run of one; each pass merges adjacent
	// run pairs until a single run covers the table. Run boundaries are
	// carried explicitly so underfull blocks never skew the pairing.
	runs := make([]runBounds, t.blockCount)
	for b := range runs {
		runs[b] = runBounds{lo: b, hi: b + 1}
	}
	for len(runs) > 1 {
		next, err := t.mergePass(runs, keys)
		if err != nil {
			return err
		}
		runs = next
	}
	return nil
}

// runBounds is a half-open block range [lo, hi) holding one sorted run.
type runBounds struct{ lo, hi int }

// mergePass merges adjacent run pairs into a scratch owner and substitutes
// the scratch files for the table's. An odd trailing run streams through
// unmerged. Each merged run flushes its final partial block so runs stay
// block-aligned for the next pass.
func (t *Table) mergePass(runs []runBounds, keys []SortKey) ([]runBounds, error) {
	scratch := "tmp_" + uuid.NewString()[:8]
	out := mergeWriter{bm: t.bm, owner: scratch, maxRows: t.maxRowsPerBlock}
	var next []runBounds

	for i := 0; i < len(runs); i += 2 {
		startBlock := out.nextIndex
		left := runReader{bm: t.bm, owner: t.name, block: runs[i].lo, limit: runs[i].hi}
		if i+1 == len(runs) {
			// Odd run out: copy it through to keep the pass uniform.
			for row, ok := left.next(); ok; row, ok = left.next() {
				if err := out.append(row); err != nil {
					return nil, err
				}
			}
		} else {
			right := runReader{bm: t.bm, owner: t.name, block: runs[i+1].lo, limit: runs[i+1].hi}
			lrow, lok := left.next()
			rrow, rok := right.next()
			for lok || rok {
				// On equal keys the left (lower) run wins.
				if lok && (!rok || compareRows(lrow, rrow, keys) <= 0) {
					if err := out.append(lrow); err != nil {
						return nil, err
					}
					lrow, lok = left.next()
				} else {
					if err := out.append(rrow); err != nil {
						return nil, err
					}
					rrow, rok = right.next()
				}
			}
		}
		if err := out.flush(); err != nil {
			return nil, err
		}
		next = append(next, runBounds{lo: startBlock, hi: out.nextIndex})
	}

	// Substitute: drop the old blocks, adopt the scratch blocks.
	for b := 0; b < t.blockCount; b++ {
		t.bm.DeleteFile(t.name, b)
	}
	for b := 0; b < len(out.rowsPerBlock); b++ {
		if err := t.bm.RenameFile(scratch, t.name, b); err != nil {
			return nil, err
		}
	}
	t.bm.RenamePagesInMemory(scratch, t.name)
	t.blockCount = len(out.rowsPerBlock)
	t.rowsPerBlock = out.rowsPerBlock
	return next, nil
}

// runReader walks the rows of a run: blocks [block, limit) of owner.
type runReader struct {
	bm    *storage.Manager
	owner string
	block int
	limit int
	page  *storage.Page
	row   int
}

func (r *runReader) next() ([]int32, bool) {
	for {
		if r.block >= r.limit {
			return nil, false
		}
		if r.page == nil {
			p, err := r.bm.GetPage(r.owner, r.block)
			if err != nil {
				return nil, false
			}
			r.page = p
			r.row = 0
		}
		if r.row < r.page.Rows() {
			row := r.page.Row(r.row)
			r.row++
			return row, true
		}
		r.page = nil
		r.block++
	}
}

// mergeWriter packs merged rows into full output blocks, written through
// the pool-bypassing write path.
type mergeWriter struct {
	bm           *storage.Manager
	owner        string
	maxRows      int
	block        [][]int32
	nextIndex    int
	rowsPerBlock []int
}

func (w *mergeWriter) append(row []int32) error {
	w.block = append(w.block, append([]int32(nil), row...))
	if len(w.block) == w.maxRows {
		return w.flush()
	}
	return nil
}

func (w *mergeWriter) flush() error {
	if len(w.block) == 0 {
		return nil
	}
	if err := w.bm.WritePage(w.owner, w.nextIndex, w.block); err != nil {
		return err
	}
	w.rowsPerBlock = append(w.rowsPerBlock, len(w.block))
	w.nextIndex++
	w.block = nil
	return nil
}
