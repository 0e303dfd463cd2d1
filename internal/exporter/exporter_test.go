package exporter

import (
	"strings"
	"testing"
)

func source(rows [][]int32) RowSource {
	i := 0
	return func() ([]int32, bool) {
		if i >= len(rows) {
			return nil, false
		}
		r := rows[i]
		i++
		return r, true
	}
}

func TestWriteTable(t *testing.T) {
	var sb strings.Builder
	err := WriteTable(&sb, []string{"A", "B", "C"}, source([][]int32{{1, 2, 3}, {-4, 5, 6}}))
	if err != nil {
		t.Fatal(err)
	}
	want := "A, B, C\n1, 2, 3\n-4, 5, 6\n"
	if sb.String() != want {
		t.Fatalf("got %q want %q", sb.String(), want)
	}
}

func TestWriteTable_EmptyWritesHeaderOnly(t *testing.T) {
	var sb strings.Builder
	if err := WriteTable(&sb, []string{"A"}, source(nil)); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "A\n" {
		t.Fatalf("got %q", sb.String())
	}
}

func TestWriteMatrix(t *testing.T) {
	var sb strings.Builder
	err := WriteMatrix(&sb, source([][]int32{{1, 2}, {3, 4}}))
	if err != nil {
		t.Fatal(err)
	}
	if sb.String() != "1 2\n3 4\n" {
		t.Fatalf("got %q", sb.String())
	}
}
