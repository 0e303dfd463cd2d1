// Package exporter is the CSV output path for gridDB. Tables export with a
// header and ", "-separated cells; matrices export as bare space-separated
// rows.
package exporter

import (
	"bufio"
	"io"
	"strconv"
)

// RowSource yields one row per call and reports false when exhausted.
type RowSource func() ([]int32, bool)

// WriteTable writes a header line and every row from src as ", "-separated
// CSV.
func WriteTable(w io.Writer, columns []string, src RowSource) error {
	bw := bufio.NewWriter(w)
	for i, c := range columns {
		if i > 0 {
			bw.WriteString(", ")
		}
		bw.WriteString(c)
	}
	bw.WriteByte('\n')
	for {
		row, ok := src()
		if !ok {
			break
		}
		writeRow(bw, row, ", ")
	}
	return bw.Flush()
}

// WriteMatrix writes every row from src space-separated, no header.
func WriteMatrix(w io.Writer, src RowSource) error {
	bw := bufio.NewWriter(w)
	for {
		row, ok := src()
		if !ok {
			break
		}
		writeRow(bw, row, " ")
	}
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, row []int32, sep string) {
	for i, v := range row {
		if i > 0 {
			bw.WriteString(sep)
		}
		bw.WriteString(strconv.FormatInt(int64(v), 10))
	}
	bw.WriteByte('\n')
}
