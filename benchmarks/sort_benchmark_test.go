// Package benchmarks measures the gridDB load+sort and scan paths, and an
// embedded SQLite doing the equivalent load and sort. SQLite is the
// yardstick, not a dependency of the engine itself.
package benchmarks

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SimonWaldherr/gridDB/internal/storage"
	"github.com/SimonWaldherr/gridDB/internal/table"

	_ "modernc.org/sqlite"
)

const benchRows = 2000

// benchCSV builds a deterministic three-column CSV with a scrambled key.
func benchCSV(b *testing.B, dir string) string {
	b.Helper()
	var sb strings.Builder
	sb.WriteString("A,B,C\n")
	for i := 0; i < benchRows; i++ {
		key := (i * 7919) % benchRows
		fmt.Fprintf(&sb, "%d,%d,%d\n", key, i, i%17)
	}
	path := filepath.Join(dir, "bench.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		b.Fatal(err)
	}
	return path
}

func tmpDir(b *testing.B) string {
	b.Helper()
	dir, err := os.MkdirTemp("", "griddb_bench_*")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func BenchmarkGridDB_LoadAndSort(b *testing.B) {
	dir := tmpDir(b)
	csv := benchCSV(b, dir)
	pol := storage.Policy{BlockBytes: 1000, BlockCount: 10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bm := storage.NewManager(dir, pol.BlockCount)
		t, err := table.Load(bm, pol, fmt.Sprintf("bench%d", i), csv)
		if err != nil {
			b.Fatal(err)
		}
		if err := t.Sort([]table.SortKey{{Column: 0, Dir: table.Ascending}}); err != nil {
			b.Fatal(err)
		}
		t.Drop()
	}
}

func BenchmarkGridDB_Scan(b *testing.B) {
	dir := tmpDir(b)
	csv := benchCSV(b, dir)
	pol := storage.Policy{BlockBytes: 1000, BlockCount: 10}
	bm := storage.NewManager(dir, pol.BlockCount)
	t, err := table.Load(bm, pol, "bench", csv)
	if err != nil {
		b.Fatal(err)
	}
	defer t.Drop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cur := t.NewCursor()
		n := 0
		for {
			if _, ok := cur.Next(); !ok {
				break
			}
			n++
		}
		if n != benchRows {
			b.Fatalf("scan returned %d rows", n)
		}
	}
}

func BenchmarkSQLite_InsertAndSort(b *testing.B) {
	dir := tmpDir(b)
	dbPath := filepath.Join(dir, "bench.sqlite3")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE bench (a INTEGER, b INTEGER, c INTEGER)"); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.Exec("DELETE FROM bench"); err != nil {
			b.Fatal(err)
		}
		tx, err := db.Begin()
		if err != nil {
			b.Fatal(err)
		}
		stmt, err := tx.Prepare("INSERT INTO bench VALUES (?, ?, ?)")
		if err != nil {
			b.Fatal(err)
		}
		for r := 0; r < benchRows; r++ {
			key := (r * 7919) % benchRows
			if _, err := stmt.Exec(key, r, r%17); err != nil {
				b.Fatal(err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			b.Fatal(err)
		}

		rows, err := db.Query("SELECT a, b, c FROM bench ORDER BY a")
		if err != nil {
			b.Fatal(err)
		}
		n := 0
		for rows.Next() {
			n++
		}
		rows.Close()
		if n != benchRows {
			b.Fatalf("sqlite returned %d rows", n)
		}
	}
}
