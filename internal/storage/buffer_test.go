package storage

import (
	"os"
	"reflect"
	"testing"
)

// seedBlock writes a block file directly, without touching pool counters.
func seedBlock(t *testing.T, dir, owner string, index int, cells [][]int32) {
	t.Helper()
	if err := NewPage(owner, index, cells).WriteFile(dir); err != nil {
		t.Fatalf("seed %s_Page%d: %v", owner, index, err)
	}
}

func TestManager_FIFOEviction(t *testing.T) {
	dir := t.TempDir()
	const capacity = 4
	m := NewManager(dir, capacity)
	for i := 0; i < capacity+2; i++ {
		seedBlock(t, dir, "t", i, grid([]int32{int32(i)}))
	}

	// Open capacity+2 distinct pages sequentially.
	for i := 0; i < capacity+2; i++ {
		if _, err := m.GetPage("t", i); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if m.Resident() != capacity {
		t.Fatalf("resident: got %d want %d", m.Resident(), capacity)
	}
	if m.BlocksRead() != capacity+2 {
		t.Fatalf("blocksRead: got %d want %d", m.BlocksRead(), capacity+2)
	}
	// Clean pages evict without writes.
	if m.BlocksWritten() != 0 {
		t.Fatalf("blocksWritten: got %d want 0", m.BlocksWritten())
	}

	// Exactly the two oldest insertions (0 and 1) were evicted: reading
	// them again misses, while the most recent pages still hit.
	before := m.BlocksRead()
	if _, err := m.GetPage("t", capacity+1); err != nil {
		t.Fatal(err)
	}
	if m.BlocksRead() != before {
		t.Fatal("most recent page must still be resident")
	}
	if _, err := m.GetPage("t", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetPage("t", 1); err != nil {
		t.Fatal(err)
	}
	if m.BlocksRead() != before+2 {
		t.Fatalf("pages 0 and 1 must have been evicted, blocksRead=%d want %d", m.BlocksRead(), before+2)
	}
}

func TestManager_HitTouchesNoCounters(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4)
	seedBlock(t, dir, "t", 0, grid([]int32{1}))
	if _, err := m.GetPage("t", 0); err != nil {
		t.Fatal(err)
	}
	r, w := m.BlocksRead(), m.BlocksWritten()
	for i := 0; i < 3; i++ {
		if _, err := m.GetPage("t", 0); err != nil {
			t.Fatal(err)
		}
	}
	if m.BlocksRead() != r || m.BlocksWritten() != w {
		t.Fatalf("cache hits must not move counters: read %d->%d written %d->%d",
			r, m.BlocksRead(), w, m.BlocksWritten())
	}
}

func TestManager_DirtyWriteBackOnEviction(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2)
	seedBlock(t, dir, "t", 0, grid([]int32{1, 2}))
	seedBlock(t, dir, "t", 1, grid([]int32{3, 4}))
	seedBlock(t, dir, "t", 2, grid([]int32{5, 6}))

	p, err := m.GetPage("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	p.SetCell(0, 0, 99)

	// Fill the pool past capacity; page 0 is the FIFO victim.
	if _, err := m.GetPage("t", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetPage("t", 2); err != nil {
		t.Fatal(err)
	}
	if m.BlocksWritten() != 1 {
		t.Fatalf("blocksWritten: got %d want 1 (dirty eviction)", m.BlocksWritten())
	}
	reloaded, err := ReadPage(dir, "t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Cell(0, 0) != 99 {
		t.Fatalf("write-back lost the mutation: got %d", reloaded.Cell(0, 0))
	}
}

func TestManager_WritePageBypassesPool(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2)
	if err := m.WritePage("t", 0, grid([]int32{7})); err != nil {
		t.Fatal(err)
	}
	if m.Resident() != 0 {
		t.Fatal("WritePage must not populate the pool")
	}
	if m.BlocksWritten() != 1 {
		t.Fatalf("blocksWritten: got %d want 1", m.BlocksWritten())
	}
	p, err := ReadPage(dir, "t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Cell(0, 0) != 7 {
		t.Fatalf("cell: got %d want 7", p.Cell(0, 0))
	}
}

func TestManager_WritePageDropsStaleResident(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2)
	seedBlock(t, dir, "t", 0, grid([]int32{1}))
	if _, err := m.GetPage("t", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.WritePage("t", 0, grid([]int32{42})); err != nil {
		t.Fatal(err)
	}
	p, err := m.GetPage("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Cell(0, 0) != 42 {
		t.Fatalf("stale resident page survived WritePage: got %d", p.Cell(0, 0))
	}
}

// A resident page must follow its table through a rename: the owner field
// is compared on its own, so the match cannot miss on the composed file
// name.
func TestManager_RenamePagesInMemory(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4)
	seedBlock(t, dir, "old", 0, grid([]int32{1}))
	p, err := m.GetPage("old", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RenameFile("old", "new", 0); err != nil {
		t.Fatal(err)
	}
	m.RenamePagesInMemory("old", "new")

	// The resident page answers under the new name without a disk read.
	before := m.BlocksRead()
	p2, err := m.GetPage("new", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p2 != p {
		t.Fatal("expected the renamed resident page, not a fresh read")
	}
	if m.BlocksRead() != before {
		t.Fatal("rename must not force a re-read")
	}

	// A post-rename mutation writes back to the new file.
	p2.SetCell(0, 0, 8)
	m.FlushOwner("new")
	reloaded, err := ReadPage(dir, "new", 0)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Cell(0, 0) != 8 {
		t.Fatalf("write-back after rename: got %d want 8", reloaded.Cell(0, 0))
	}
}

func TestManager_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 2)
	seedBlock(t, dir, "t", 0, grid([]int32{1}))
	if _, err := m.GetPage("t", 0); err != nil {
		t.Fatal(err)
	}
	m.DeleteFile("t", 0)
	if m.Resident() != 0 {
		t.Fatal("DeleteFile must drop the resident copy")
	}
	if _, err := os.Stat(PageFilePath(dir, "t", 0)); !os.IsNotExist(err) {
		t.Fatal("block file must be gone")
	}
	// Deleting again is a no-op.
	m.DeleteFile("t", 0)
}

func TestManager_DropOwnerKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 4)
	seedBlock(t, dir, "a", 0, grid([]int32{1}))
	seedBlock(t, dir, "b", 0, grid([]int32{2}))
	if _, err := m.GetPage("a", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetPage("b", 0); err != nil {
		t.Fatal(err)
	}
	m.DropOwner("a")
	if m.Resident() != 1 {
		t.Fatalf("resident: got %d want 1", m.Resident())
	}
	before := m.BlocksRead()
	if _, err := m.GetPage("b", 0); err != nil {
		t.Fatal(err)
	}
	if m.BlocksRead() != before {
		t.Fatal("page of the surviving owner must still hit")
	}
}

func TestManager_PairAcquisitionSurvivesEviction(t *testing.T) {
	// Acquiring two pages back to back keeps both resident even at
	// minimum capacity: FIFO evicts older insertions first.
	dir := t.TempDir()
	m := NewManager(dir, 2)
	for i := 0; i < 3; i++ {
		seedBlock(t, dir, "t", i, grid([]int32{int32(i)}))
	}
	if _, err := m.GetPage("t", 0); err != nil {
		t.Fatal(err)
	}
	a, err := m.GetPage("t", 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.GetPage("t", 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Resident() != 2 {
		t.Fatalf("resident: got %d want 2", m.Resident())
	}
	got := [][]int32{a.Row(0), b.Row(0)}
	want := [][]int32{{1}, {2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pair pages: got %v want %v", got, want)
	}
}
