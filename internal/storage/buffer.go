package storage

import (
	"fmt"
	"os"

	"github.com/SimonWaldherr/gridDB/internal/logger"
)

// ───────────────────────────────────────────────────────────────────────────
// Buffer manager
// ───────────────────────────────────────────────────────────────────────────
//
// The Manager is the only gate between logical operators and disk. It keeps
// at most BlockCount pages resident and replaces them in FIFO insertion
// order — deliberately not LRU: the access patterns above (linear scans,
// stripe flushes, adjacent-run merges) gain nothing from recency tracking,
// and FIFO makes eviction order predictable enough to assert on.
//
// Borrow rule: a *Page returned by GetPage stays readable for its holder
// even after eviction (the evicted page is written back first), but any
// mutation made after eviction is lost. Operators therefore mutate only
// pages acquired since their last pool call; when two tiles must be held for
// a pair operation, both are acquired back to back — FIFO guarantees the two
// newest insertions survive any later eviction as long as BlockCount >= 2.

// Manager is a fixed-capacity FIFO cache of resident pages.
type Manager struct {
	tempDir  string
	capacity int
	pages    []*Page // insertion order: pages[0] is the eviction candidate

	blocksRead    int
	blocksWritten int
}

// NewManager creates a buffer manager over tempDir with the given capacity.
func NewManager(tempDir string, capacity int) *Manager {
	if capacity < 2 {
		capacity = 2
	}
	return &Manager{tempDir: tempDir, capacity: capacity}
}

// TempDir returns the directory holding block files.
func (m *Manager) TempDir() string { return m.tempDir }

// BlocksRead returns how many blocks were read from disk.
func (m *Manager) BlocksRead() int { return m.blocksRead }

// BlocksWritten returns how many blocks were written to disk.
func (m *Manager) BlocksWritten() int { return m.blocksWritten }

// ResetCounters zeroes the I/O counters (reported per command).
func (m *Manager) ResetCounters() { m.blocksRead, m.blocksWritten = 0, 0 }

// Resident returns the number of pages currently in the pool.
func (m *Manager) Resident() int { return len(m.pages) }

// GetPage returns the page (owner, index), reading it from disk on a miss.
// A hit touches no counters and keeps the insertion order unchanged.
func (m *Manager) GetPage(owner string, index int) (*Page, error) {
	for _, p := range m.pages {
		if p.owner == owner && p.index == index {
			return p, nil
		}
	}
	m.blocksRead++
	p, err := ReadPage(m.tempDir, owner, index)
	if err != nil {
		return nil, err
	}
	if len(m.pages) >= m.capacity {
		m.evictOldest()
	}
	m.pages = append(m.pages, p)
	return p, nil
}

// evictOldest drops the oldest insertion, writing it back first if dirty.
// Write-back failures are logged and swallowed; the pool must shrink either
// way so the engine can keep running on a full disk.
func (m *Manager) evictOldest() {
	victim := m.pages[0]
	m.pages = m.pages[1:]
	if victim.dirty {
		if err := victim.WriteFile(m.tempDir); err != nil {
			logger.Errorf("evict %s_Page%d: %v", victim.owner, victim.index, err)
		}
		m.blocksWritten++
	}
}

// WritePage builds a transient page around the grid, writes it immediately,
// and does not add it to the pool. A stale resident copy of the same block
// is dropped so later reads see the new contents.
func (m *Manager) WritePage(owner string, index int, cells [][]int32) error {
	m.dropResident(owner, index)
	p := NewPage(owner, index, cells)
	if err := p.WriteFile(m.tempDir); err != nil {
		return err
	}
	m.blocksWritten++
	return nil
}

// FlushOwner writes back every dirty resident page of owner, keeping the
// pages resident.
func (m *Manager) FlushOwner(owner string) {
	for _, p := range m.pages {
		if p.owner == owner && p.dirty {
			if err := p.WriteFile(m.tempDir); err != nil {
				logger.Errorf("flush %s_Page%d: %v", p.owner, p.index, err)
			} else {
				m.blocksWritten++
			}
		}
	}
}

// FlushAll writes back every dirty resident page. Called on shutdown.
func (m *Manager) FlushAll() {
	for _, p := range m.pages {
		if p.dirty {
			if err := p.WriteFile(m.tempDir); err != nil {
				logger.Errorf("flush %s_Page%d: %v", p.Owner(), p.Index(), err)
			} else {
				m.blocksWritten++
			}
		}
	}
}

// DropOwner discards every resident page of owner without write-back. Used
// when the owner's blocks are being deleted.
func (m *Manager) DropOwner(owner string) {
	kept := m.pages[:0]
	for _, p := range m.pages {
		if p.owner != owner {
			kept = append(kept, p)
		}
	}
	m.pages = kept
}

// dropResident removes a single resident page without write-back.
func (m *Manager) dropResident(owner string, index int) {
	for i, p := range m.pages {
		if p.owner == owner && p.index == index {
			m.pages = append(m.pages[:i], m.pages[i+1:]...)
			return
		}
	}
}

// DeleteFile removes the block file for (owner, index) and drops any
// resident copy. Missing files are ignored.
func (m *Manager) DeleteFile(owner string, index int) {
	m.dropResident(owner, index)
	path := PageFilePath(m.tempDir, owner, index)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Errorf("delete %s: %v", path, err)
	}
}

// RenameFile renames the block file for one index from oldOwner to newOwner.
func (m *Manager) RenameFile(oldOwner, newOwner string, index int) error {
	oldPath := PageFilePath(m.tempDir, oldOwner, index)
	newPath := PageFilePath(m.tempDir, newOwner, index)
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename block %d of %s: %w", index, oldOwner, err)
	}
	return nil
}

// RenamePagesInMemory rewrites the owner field of every resident page that
// belongs to oldOwner. The owner is compared on its own, never as part of
// the composed file name, so a rename can never miss a resident page.
func (m *Manager) RenamePagesInMemory(oldOwner, newOwner string) {
	for _, p := range m.pages {
		if p.owner == oldOwner {
			p.setOwner(newOwner)
		}
	}
}
