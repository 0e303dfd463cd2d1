package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Page is one resident block: a rectangular grid of int32 cells belonging to
// a named owner. Pages are created either by reading their block file or by
// being built in memory from a grid; the buffer manager writes dirty pages
// back on eviction.
type Page struct {
	owner string
	index int
	rows  int
	cols  int
	dirty bool
	cells [][]int32
}

// NewPage builds an in-memory page around the given grid. The grid is not
// copied; the caller hands over ownership.
func NewPage(owner string, index int, cells [][]int32) *Page {
	rows := len(cells)
	cols := 0
	if rows > 0 {
		cols = len(cells[0])
	}
	return &Page{owner: owner, index: index, rows: rows, cols: cols, cells: cells}
}

// PageFilePath returns the block file path for (owner, index).
func PageFilePath(tempDir, owner string, index int) string {
	return filepath.Join(tempDir, fmt.Sprintf("%s_Page%d", owner, index))
}

// ReadPage loads a block file into a fresh page. Dimensions are recovered
// from the file itself: one row per line, cells separated by spaces.
func ReadPage(tempDir, owner string, index int) (*Page, error) {
	path := PageFilePath(tempDir, owner, index)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read block %s: %w", path, err)
	}
	defer f.Close()

	var cells [][]int32
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]int32, len(fields))
		for i, fv := range fields {
			v, err := strconv.ParseInt(fv, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("block %s row %d: bad cell %q: %w", path, len(cells), fv, err)
			}
			row[i] = int32(v)
		}
		cells = append(cells, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read block %s: %w", path, err)
	}
	return NewPage(owner, index, cells), nil
}

// WriteFile serializes the page to its block file and clears the dirty flag.
func (p *Page) WriteFile(tempDir string) error {
	path := PageFilePath(tempDir, p.owner, p.index)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write block %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, row := range p.cells {
		for i, v := range row {
			if i > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatInt(int64(v), 10))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write block %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write block %s: %w", path, err)
	}
	p.dirty = false
	return nil
}

// Owner returns the page's owner name.
func (p *Page) Owner() string { return p.owner }

// Index returns the page's block index within its owner.
func (p *Page) Index() int { return p.index }

// Rows returns the number of rows stored in the page.
func (p *Page) Rows() int { return p.rows }

// Cols returns the number of cells per row.
func (p *Page) Cols() int { return p.cols }

// Dirty reports whether the page has unwritten mutations.
func (p *Page) Dirty() bool { return p.dirty }

// MarkDirty flags the page for write-back on eviction.
func (p *Page) MarkDirty() { p.dirty = true }

// setOwner rewrites the owner; used by the buffer manager during rename.
func (p *Page) setOwner(owner string) { p.owner = owner }

// Row returns the r-th row. The slice aliases page memory.
func (p *Page) Row(r int) []int32 { return p.cells[r] }

// Cell returns the cell at (r, c).
func (p *Page) Cell(r, c int) int32 { return p.cells[r][c] }

// SetCell stores v at (r, c) and marks the page dirty.
func (p *Page) SetCell(r, c int, v int32) {
	p.cells[r][c] = v
	p.dirty = true
}

// CloneCells returns a deep copy of the page grid.
func (p *Page) CloneCells() [][]int32 {
	out := make([][]int32, p.rows)
	for i, row := range p.cells {
		out[i] = append([]int32(nil), row...)
	}
	return out
}

// Transpose flips a square tile in place: cells[i][j] <-> cells[j][i].
func (p *Page) Transpose() {
	for i := 0; i < p.rows; i++ {
		for j := i + 1; j < p.cols; j++ {
			p.cells[i][j], p.cells[j][i] = p.cells[j][i], p.cells[i][j]
		}
	}
	p.dirty = true
}

// TransposeWith swaps-and-transposes an off-diagonal tile pair: p becomes
// otherᵀ and other becomes pᵀ, so the effect on the whole matrix is a single
// global transpose. Dimensions swap accordingly on border tiles.
func (p *Page) TransposeWith(other *Page) {
	origP := p.cells
	p.cells = transposed(other.cells, other.rows, other.cols)
	other.cells = transposed(origP, p.rows, p.cols)
	p.rows, p.cols, other.rows, other.cols = other.cols, other.rows, p.cols, p.rows
	p.dirty = true
	other.dirty = true
}

// SubtractTranspose computes A <- A - Aᵀ for a square diagonal tile.
func (p *Page) SubtractTranspose() {
	for i := 0; i < p.rows; i++ {
		for j := i + 1; j < p.cols; j++ {
			a, b := p.cells[i][j], p.cells[j][i]
			p.cells[i][j] = a - b
			p.cells[j][i] = b - a
		}
		p.cells[i][i] = 0
	}
	p.dirty = true
}

// SubtractTransposeWith computes (A, B) <- (A - Bᵀ, B - Aᵀ) for an
// off-diagonal tile pair. A is r×c, B is c×r.
func (p *Page) SubtractTransposeWith(other *Page) {
	origP := p.CloneCells()
	for i := 0; i < p.rows; i++ {
		for j := 0; j < p.cols; j++ {
			p.cells[i][j] -= other.cells[j][i]
		}
	}
	for i := 0; i < other.rows; i++ {
		for j := 0; j < other.cols; j++ {
			other.cells[i][j] -= origP[j][i]
		}
	}
	p.dirty = true
	other.dirty = true
}

// transposed returns a fresh cols×rows grid holding the transpose of g.
func transposed(g [][]int32, rows, cols int) [][]int32 {
	out := make([][]int32, cols)
	for i := range out {
		out[i] = make([]int32, rows)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j][i] = g[i][j]
		}
	}
	return out
}
