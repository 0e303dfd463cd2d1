package table

import (
	"fmt"
	"sort"
)

// IndexStrategy selects the secondary index layout.
type IndexStrategy int

const (
	IndexNone IndexStrategy = iota
	IndexBTree
	IndexHash
)

func (s IndexStrategy) String() string {
	switch s {
	case IndexBTree:
		return "BTREE"
	case IndexHash:
		return "HASH"
	default:
		return "NOTHING"
	}
}

// RowRef locates a row inside the table's block sequence.
type RowRef struct {
	Block int
	Row   int
}

// indexEntry pairs a key value with the row holding it.
type indexEntry struct {
	value int32
	ref   RowRef
}

// Index is a secondary index over one column. The hash layout answers
// equality probes; the btree layout (a sorted run with binary search, the
// moral equivalent for a read-only table) also answers range probes.
type Index struct {
	Column   int
	Strategy IndexStrategy

	hash map[int32][]RowRef
	tree []indexEntry // sorted by value, scan order within equal values
}

// BuildIndex scans the table once and builds an index on the named column.
// Any previous index is replaced; IndexNone drops without building.
func (t *Table) BuildIndex(column string, strategy IndexStrategy) error {
	col, ok := t.colIndex[column]
	if !ok {
		return fmt.Errorf("no column %s in table %s", column, t.name)
	}
	if strategy == IndexNone {
		t.index = nil
		return nil
	}

	idx := &Index{Column: col, Strategy: strategy}
	if strategy == IndexHash {
		idx.hash = make(map[int32][]RowRef, t.DistinctCount(col))
	}
	for b := 0; b < t.blockCount; b++ {
		p, err := t.bm.GetPage(t.name, b)
		if err != nil {
			return err
		}
		for r := 0; r < p.Rows(); r++ {
			v := p.Cell(r, col)
			ref := RowRef{Block: b, Row: r}
			switch strategy {
			case IndexHash:
				idx.hash[v] = append(idx.hash[v], ref)
			case IndexBTree:
				idx.tree = append(idx.tree, indexEntry{value: v, ref: ref})
			}
		}
	}
	if strategy == IndexBTree {
		sort.SliceStable(idx.tree, func(i, j int) bool {
			return idx.tree[i].value < idx.tree[j].value
		})
	}
	t.index = idx
	return nil
}

// IndexInfo returns the active index, or nil.
func (t *Table) IndexInfo() *Index { return t.index }

// IndexedOn reports whether the table has an index on the given column
// position.
func (t *Table) IndexedOn(col int) bool {
	return t.index != nil && t.index.Column == col
}

// LookupEqual returns the rows whose indexed column equals v, in table
// order.
func (idx *Index) LookupEqual(v int32) []RowRef {
	switch idx.Strategy {
	case IndexHash:
		return idx.hash[v]
	case IndexBTree:
		lo := sort.Search(len(idx.tree), func(i int) bool { return idx.tree[i].value >= v })
		var refs []RowRef
		for i := lo; i < len(idx.tree) && idx.tree[i].value == v; i++ {
			refs = append(refs, idx.tree[i].ref)
		}
		return refs
	default:
		return nil
	}
}

// LookupRange returns the rows with lo <= value <= hi (btree only), sorted
// back into table order so scans and index probes agree on output order.
func (idx *Index) LookupRange(lo, hi int32) []RowRef {
	if idx.Strategy != IndexBTree || lo > hi {
		return nil
	}
	start := sort.Search(len(idx.tree), func(i int) bool { return idx.tree[i].value >= lo })
	var refs []RowRef
	for i := start; i < len(idx.tree) && idx.tree[i].value <= hi; i++ {
		refs = append(refs, idx.tree[i].ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Block != refs[j].Block {
			return refs[i].Block < refs[j].Block
		}
		return refs[i].Row < refs[j].Row
	})
	return refs
}
