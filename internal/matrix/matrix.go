// Package matrix implements the square-tiled logical object of gridDB.
//
// What: Blockify an N×N integer CSV into m×m tiles, in-place blocked
// transpose, symmetry testing with caching, and compute (A − Aᵀ) into a
// fresh matrix.
// How: Tile (i, j) lives at linear block index i·cb + j (cb = ⌈N/m⌉) and
// covers rows [i·m, min(N,(i+1)·m)) and columns [j·m, min(N,(j+1)·m)).
// Blockify keeps one row-stripe of cb tile buffers live and flushes the
// stripe every m input rows, so the CSV is read exactly once.
// Why: Pairing tile (i, j) with (j, i) makes transpose, symmetry, and
// compute touch each pair exactly once with two resident pages.
package matrix

import (
	"errors"
	"fmt"
	"io"

	"github.com/SimonWaldherr/gridDB/internal/importer"
	"github.com/SimonWaldherr/gridDB/internal/storage"
)

// ErrNotSquare is returned when the source CSV is not N×N.
var ErrNotSquare = errors.New("matrix is not square")

// TileDims records one tile's row and column extent.
type TileDims struct {
	Rows int
	Cols int
}

// Matrix is a loaded square-tiled object.
type Matrix struct {
	bm  *storage.Manager
	pol storage.Policy

	name         string
	originalName string
	sourcePath   string

	n  int // dimension
	m  int // tile edge
	cb int // concurrent blocks: tiles per row-stripe, ⌈n/m⌉

	blockCount int
	dims       []TileDims

	// symmetric caches the last symmetry verdict; nil means unknown.
	symmetric *bool
}

// Load blockifies the CSV at path into tile files owned by name. On failure
// every tile written so far is deleted before the error returns.
func Load(bm *storage.Manager, pol storage.Policy, name, path string) (*Matrix, error) {
	r, err := importer.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	first, err := r.ReadRow(0)
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file %s", importer.ErrParse, path)
	}
	if err != nil {
		return nil, err
	}
	n := len(first)

	m, err := pol.TileDim()
	if err != nil {
		return nil, err
	}
	if m > n {
		m = n
	}
	cb := (n + m - 1) / m

	mx := &Matrix{
		bm:           bm,
		pol:          pol,
		name:         name,
		originalName: name,
		sourcePath:   path,
		n:            n,
		m:            m,
		cb:           cb,
		blockCount:   cb * cb,
		dims:         make([]TileDims, cb*cb),
	}

	// One row-stripe of live tile buffers.
	stripe := make([][][]int32, cb)
	stripeRows := 0
	stripeIndex := 0

	flushStripe := func() error {
		for j := 0; j < cb; j++ {
			idx := stripeIndex*cb + j
			if err := bm.WritePage(name, idx, stripe[j]); err != nil {
				return err
			}
			mx.dims[idx] = TileDims{Rows: len(stripe[j]), Cols: mx.tileExtent(j)}
			stripe[j] = nil
		}
		stripeRows = 0
		stripeIndex++
		return nil
	}

	row := first
	rowNum := 0
	for {
		if rowNum >= n {
			mx.dropPartial(stripeIndex * cb)
			return nil, fmt.Errorf("%w: %s has more than %d rows", ErrNotSquare, path, n)
		}
		for j := 0; j < cb; j++ {
			lo := j * mx.m
			hi := lo + mx.tileExtent(j)
			stripe[j] = append(stripe[j], append([]int32(nil), row[lo:hi]...))
		}
		stripeRows++
		rowNum++
		if stripeRows == mx.m {
			if err := flushStripe(); err != nil {
				mx.dropPartial((stripeIndex + 1) * cb)
				return nil, err
			}
		}

		row, err = r.ReadRow(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			mx.dropPartial((stripeIndex + 1) * cb)
			return nil, err
		}
	}
	if stripeRows > 0 {
		if err := flushStripe(); err != nil {
			mx.dropPartial((stripeIndex + 1) * cb)
			return nil, err
		}
	}
	if rowNum != n {
		mx.Drop()
		return nil, fmt.Errorf("%w: %s has %d rows for %d columns", ErrNotSquare, path, rowNum, n)
	}
	return mx, nil
}

// tileExtent returns the column width of tile-column j (narrower on the
// border).
func (mx *Matrix) tileExtent(j int) int {
	hi := (j + 1) * mx.m
	if hi > mx.n {
		hi = mx.n
	}
	return hi - j*mx.m
}

// tileIndex maps stripe coordinates to the linear block index.
func (mx *Matrix) tileIndex(i, j int) int { return i*mx.cb + j }

// dropPartial deletes the first written tiles after a failed load.
func (mx *Matrix) dropPartial(written int) {
	mx.bm.DropOwner(mx.name)
	for idx := 0; idx < written; idx++ {
		mx.bm.DeleteFile(mx.name, idx)
	}
}

// ObjectName implements storage.Object.
func (mx *Matrix) ObjectName() string { return mx.name }

// Kind implements storage.Object.
func (mx *Matrix) Kind() storage.ObjectKind { return storage.KindMatrix }

// OriginalName returns the name the matrix was first loaded under.
func (mx *Matrix) OriginalName() string { return mx.originalName }

// SourcePath returns the CSV the matrix was loaded from, if any.
func (mx *Matrix) SourcePath() string { return mx.sourcePath }

// SetSourcePath records the permanent CSV backing the matrix (set by
// EXPORT).
func (mx *Matrix) SetSourcePath(path string) { mx.sourcePath = path }

// Dimension returns N.
func (mx *Matrix) Dimension() int { return mx.n }

// TileEdge returns the tile edge length m.
func (mx *Matrix) TileEdge() int { return mx.m }

// ConcurrentBlocks returns the number of tiles per row-stripe.
func (mx *Matrix) ConcurrentBlocks() int { return mx.cb }

// BlockCount returns the total number of tiles.
func (mx *Matrix) BlockCount() int { return mx.blockCount }

// Dims returns the per-tile extent ledger. The slice is live.
func (mx *Matrix) Dims() []TileDims { return mx.dims }

// Rename renames every tile file and resident page, then the matrix itself.
func (mx *Matrix) Rename(newName string) error {
	for idx := 0; idx < mx.blockCount; idx++ {
		if err := mx.bm.RenameFile(mx.name, newName, idx); err != nil {
			return err
		}
	}
	mx.bm.RenamePagesInMemory(mx.name, newName)
	mx.name = newName
	return nil
}

// Drop deletes every tile file and any resident pages of the matrix.
func (mx *Matrix) Drop() {
	mx.bm.DropOwner(mx.name)
	for idx := 0; idx < mx.blockCount; idx++ {
		mx.bm.DeleteFile(mx.name, idx)
	}
}

// Row assembles global row r by visiting every tile of its stripe.
func (mx *Matrix) Row(r int) ([]int32, error) {
	i := r / mx.m
	local := r % mx.m
	out := make([]int32, 0, mx.n)
	for j := 0; j < mx.cb; j++ {
		p, err := mx.bm.GetPage(mx.name, mx.tileIndex(i, j))
		if err != nil {
			return nil, err
		}
		out = append(out, p.Row(local)...)
	}
	return out, nil
}

// Transpose flips the matrix in place, tile by tile. Diagonal tiles
// transpose within themselves; each off-diagonal pair (i, j), (j, i) with
// i < j is swap-transposed in one step. A cached symmetric verdict makes
// this a no-op. Dirty tiles reach disk through eviction or Flush.
func (mx *Matrix) Transpose() error {
	if mx.symmetric != nil && *mx.symmetric {
		return nil
	}
	for i := 0; i < mx.cb; i++ {
		p, err := mx.bm.GetPage(mx.name, mx.tileIndex(i, i))
		if err != nil {
			return err
		}
		p.Transpose()
		for j := i + 1; j < mx.cb; j++ {
			// Both tiles acquired back to back: FIFO keeps the two newest
			// insertions resident for the duration of the pair operation.
			// A hit on (i, j) is not a fresh insertion, so reading (j, i)
			// may evict it; acquiring (i, j) again makes both tiles resident.
			a, err := mx.bm.GetPage(mx.name, mx.tileIndex(i, j))
			if err != nil {
				return err
			}
			b, err := mx.bm.GetPage(mx.name, mx.tileIndex(j, i))
			if err != nil {
				return err
			}
			if a, err = mx.bm.GetPage(mx.name, mx.tileIndex(i, j)); err != nil {
				return err
			}
			a.TransposeWith(b)
		}
	}
	return nil
}

// Flush writes back every dirty resident tile.
func (mx *Matrix) Flush() { mx.bm.FlushOwner(mx.name) }

// IsSymmetric tests M == Mᵀ, short-circuiting on the first mismatch. The
// verdict is cached on the matrix.
//
// Diagonal tiles only compare cells above their local diagonal — (k, l)
// with l > k — since (l, k) is the mirror cell within the same tile. An
// off-diagonal tile (i, j), i < j, lies entirely above the matrix diagonal,
// so every one of its cells is compared against the mirror tile (j, i),
// local diagonal included.
func (mx *Matrix) IsSymmetric() (bool, error) {
	if mx.symmetric != nil {
		return *mx.symmetric, nil
	}
	sym := true
Scan:
	for i := 0; i < mx.cb; i++ {
		p, err := mx.bm.GetPage(mx.name, mx.tileIndex(i, i))
		if err != nil {
			return false, err
		}
		for k := 0; k < p.Rows() && sym; k++ {
			for l := k + 1; l < p.Cols(); l++ {
				if p.Cell(k, l) != p.Cell(l, k) {
					sym = false
					break
				}
			}
		}
		if !sym {
			break Scan
		}
		for j := i + 1; j < mx.cb; j++ {
			a, err := mx.bm.GetPage(mx.name, mx.tileIndex(i, j))
			if err != nil {
				return false, err
			}
			b, err := mx.bm.GetPage(mx.name, mx.tileIndex(j, i))
			if err != nil {
				return false, err
			}
			for k := 0; k < a.Rows() && sym; k++ {
				for l := 0; l < a.Cols(); l++ {
					if a.Cell(k, l) != b.Cell(l, k) {
						sym = false
						break
					}
				}
			}
			if !sym {
				break Scan
			}
		}
	}
	mx.symmetric = &sym
	return sym, nil
}

// Compute writes newName = M − Mᵀ tile by tile and returns the new matrix.
// The receiver's tiles are read through the pool but never mutated.
func (mx *Matrix) Compute(newName string) (*Matrix, error) {
	out := &Matrix{
		bm:           mx.bm,
		pol:          mx.pol,
		name:         newName,
		originalName: newName,
		n:            mx.n,
		m:            mx.m,
		cb:           mx.cb,
		blockCount:   mx.blockCount,
		dims:         append([]TileDims(nil), mx.dims...),
	}
	for i := 0; i < mx.cb; i++ {
		idx := mx.tileIndex(i, i)
		p, err := mx.bm.GetPage(mx.name, idx)
		if err != nil {
			out.Drop()
			return nil, err
		}
		grid := p.CloneCells()
		storage.NewPage(newName, idx, grid).SubtractTranspose()
		if err := mx.bm.WritePage(newName, idx, grid); err != nil {
			out.Drop()
			return nil, err
		}
		for j := i + 1; j < mx.cb; j++ {
			ai, bi := mx.tileIndex(i, j), mx.tileIndex(j, i)
			pa, err := mx.bm.GetPage(mx.name, ai)
			if err != nil {
				out.Drop()
				return nil, err
			}
			pb, err := mx.bm.GetPage(mx.name, bi)
			if err != nil {
				out.Drop()
				return nil, err
			}
			ga, gb := pa.CloneCells(), pb.CloneCells()
			storage.NewPage(newName, ai, ga).SubtractTransposeWith(storage.NewPage(newName, bi, gb))
			if err := mx.bm.WritePage(newName, ai, ga); err != nil {
				out.Drop()
				return nil, err
			}
			if err := mx.bm.WritePage(newName, bi, gb); err != nil {
				out.Drop()
				return nil, err
			}
		}
	}
	return out, nil
}
