package engine

import (
	"fmt"
	"os"

	"github.com/SimonWaldherr/gridDB/internal/exporter"
	"github.com/SimonWaldherr/gridDB/internal/logger"
	"github.com/SimonWaldherr/gridDB/internal/matrix"
)

func (e *Engine) lookupMatrix(name string) (*matrix.Matrix, error) {
	obj, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("no such matrix %s", name)
	}
	mx, ok := obj.(*matrix.Matrix)
	if !ok {
		return nil, fmt.Errorf("%s is a table, not a matrix", name)
	}
	return mx, nil
}

func (e *Engine) printMatrix(name string) error {
	mx, err := e.lookupMatrix(name)
	if err != nil {
		return err
	}
	n := mx.Dimension()
	limit := n
	if limit > e.cfg.PrintCount {
		limit = e.cfg.PrintCount
	}
	for r := 0; r < limit; r++ {
		row, err := mx.Row(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.Out, joinRow(row[:limit], " "))
	}
	if limit < n {
		fmt.Fprintf(e.Out, "(%d of %d rows)\n", limit, n)
	}
	return nil
}

func (e *Engine) exportMatrix(name string) error {
	mx, err := e.lookupMatrix(name)
	if err != nil {
		return err
	}
	path := e.csvPath(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	r := 0
	werr := exporter.WriteMatrix(f, func() ([]int32, bool) {
		if r >= mx.Dimension() {
			return nil, false
		}
		row, err := mx.Row(r)
		if err != nil {
			logger.Errorf("export %s row %d: %v", name, r, err)
			return nil, false
		}
		r++
		return row, true
	})
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("export %s: %w", name, werr)
	}
	mx.SetSourcePath(path)
	return nil
}

func (e *Engine) execTranspose(st TransposeStmt) error {
	mx, err := e.lookupMatrix(st.Name)
	if err != nil {
		return err
	}
	return mx.Transpose()
}

func (e *Engine) execSymmetry(st SymmetryStmt) error {
	mx, err := e.lookupMatrix(st.Name)
	if err != nil {
		return err
	}
	sym, err := mx.IsSymmetric()
	if err != nil {
		return err
	}
	if sym {
		fmt.Fprintln(e.Out, "TRUE")
	} else {
		fmt.Fprintln(e.Out, "FALSE")
	}
	return nil
}

func (e *Engine) execCompute(st ComputeStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	mx, err := e.lookupMatrix(st.Matrix)
	if err != nil {
		return err
	}
	out, err := mx.Compute(st.Target)
	if err != nil {
		return err
	}
	return e.catalog.Insert(out)
}
