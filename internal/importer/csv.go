// Package importer is the CSV input path for gridDB.
//
// What: Streams integer rows from comma-separated files into the blockifiers,
// with a header line for tables and bare data rows for matrices.
// How: A BOM-aware decoder (UTF-8, UTF-8 BOM, UTF-16LE/BE) feeds an
// encoding/csv reader; every cell is parsed as a 32-bit signed integer.
// Why: Keeping parsing in one place gives load a single, well-defined parse
// error surface (non-integer cell, ragged row) for the engine to report.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrParse tags cell- and shape-level parse failures.
var ErrParse = errors.New("parse error")

// Reader streams rows from one CSV file.
type Reader struct {
	f    *os.File
	cr   *csv.Reader
	line int
}

// Open opens a CSV file for reading. The byte stream is converted to UTF-8
// first: a leading UTF-16 BOM switches the decoder to UTF-16, and a UTF-8
// BOM is dropped.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(f, dec))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // row widths are validated by the caller's schema
	return &Reader{f: f, cr: cr}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// ReadHeader reads the first line as column names (comma separated, optional
// surrounding spaces).
func (r *Reader) ReadHeader() ([]string, error) {
	rec, err := r.cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrParse, err)
	}
	r.line++
	cols := make([]string, len(rec))
	for i, c := range rec {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", ErrParse, i+1)
		}
		cols[i] = c
	}
	return cols, nil
}

// ReadRow reads the next data row. wantCols > 0 enforces the row width;
// wantCols == 0 accepts any width (used for the first matrix row, which
// defines the dimension). Returns io.EOF after the last row.
func (r *Reader) ReadRow(wantCols int) ([]int32, error) {
	rec, err := r.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrParse, r.line+1, err)
	}
	r.line++
	if wantCols > 0 && len(rec) != wantCols {
		return nil, fmt.Errorf("%w: line %d has %d cells, want %d", ErrParse, r.line, len(rec), wantCols)
	}
	row := make([]int32, len(rec))
	for i, cell := range rec {
		v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d cell %d: %q is not a 32-bit integer", ErrParse, r.line, i+1, cell)
		}
		row[i] = int32(v)
	}
	return row, nil
}
