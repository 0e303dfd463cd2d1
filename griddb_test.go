package griddb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndRun(t *testing.T) {
	dir := t.TempDir()
	csv := "A,B\n3,1\n1,2\n2,3\n"
	if err := os.WriteFile(filepath.Join(dir, "emp.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.LogLevel = "error"
	eng, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	var out bytes.Buffer
	eng.Out = &out
	for _, cmd := range []string{
		"LOAD emp",
		"SORT emp BY A IN ASC",
		"PRINT emp",
	} {
		if err := eng.Run(cmd); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
	}
	want := "A B\n1 2\n2 3\n3 1\n"
	if out.String() != want {
		t.Fatalf("got %q want %q", out.String(), want)
	}
	if err := eng.Run("QUIT"); err != ErrQuit {
		t.Fatalf("QUIT must return ErrQuit, got %v", err)
	}
}

func TestOpen_MissingDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "missing")
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected startup error for missing data directory")
	}
}
