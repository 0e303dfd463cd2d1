package storage

import "github.com/SimonWaldherr/gridDB/internal/logger"

// Cursor is a forward row iterator over a logical object's block sequence.
// Tables iterate rows with Next, which advances across block boundaries on
// its own. Matrices seek tiles with NextPage and read cells with Cell;
// sequential row iteration is not row-coherent across tiles and is not
// offered for them.
type Cursor struct {
	bm         *Manager
	owner      string
	blockCount int
	pageIndex  int
	rowIndex   int
	page       *Page
}

// NewCursor opens a cursor over the first blockCount blocks of owner. The
// first block is read lazily on the first access.
func NewCursor(bm *Manager, owner string, blockCount int) *Cursor {
	return &Cursor{bm: bm, owner: owner, blockCount: blockCount}
}

// Next returns the current row and advances. The second result is false
// after the last row of the last block. The returned slice aliases page
// memory and is only valid until the next pool call.
func (c *Cursor) Next() ([]int32, bool) {
	if c.blockCount == 0 {
		return nil, false
	}
	if c.page == nil {
		if err := c.NextPage(c.pageIndex); err != nil {
			logger.Errorf("cursor %s: %v", c.owner, err)
			return nil, false
		}
	}
	for c.rowIndex >= c.page.Rows() {
		if c.pageIndex+1 >= c.blockCount {
			return nil, false
		}
		if err := c.NextPage(c.pageIndex + 1); err != nil {
			logger.Errorf("cursor %s: %v", c.owner, err)
			return nil, false
		}
	}
	row := c.page.Row(c.rowIndex)
	c.rowIndex++
	return row, true
}

// NextPage seeks the cursor to block k, acquiring it through the pool (which
// may evict).
func (c *Cursor) NextPage(k int) error {
	p, err := c.bm.GetPage(c.owner, k)
	if err != nil {
		return err
	}
	c.page = p
	c.pageIndex = k
	c.rowIndex = 0
	return nil
}

// Page returns the currently loaded page, or nil before the first access.
func (c *Cursor) Page() *Page { return c.page }

// Cell reads cell (r, c) of the currently loaded page.
func (c *Cursor) Cell(r, col int) int32 { return c.page.Cell(r, col) }
