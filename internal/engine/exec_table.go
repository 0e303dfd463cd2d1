package engine

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/gridDB/internal/exporter"
	"github.com/SimonWaldherr/gridDB/internal/logger"
	"github.com/SimonWaldherr/gridDB/internal/matrix"
	"github.com/SimonWaldherr/gridDB/internal/storage"
	"github.com/SimonWaldherr/gridDB/internal/table"
)

func (e *Engine) lookupTable(name string) (*table.Table, error) {
	obj, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("no such table %s", name)
	}
	t, ok := obj.(*table.Table)
	if !ok {
		return nil, fmt.Errorf("%s is a matrix, not a table", name)
	}
	return t, nil
}

func (e *Engine) execLoad(st LoadStmt) error {
	if err := e.requireFree(st.Name); err != nil {
		return err
	}
	path := e.csvPath(st.Name)
	if st.Matrix {
		mx, err := matrix.Load(e.bm, e.pol, st.Name, path)
		if err != nil {
			return err
		}
		logger.Infof("loaded matrix %s: %d×%d in %d tiles", st.Name, mx.Dimension(), mx.Dimension(), mx.BlockCount())
		return e.catalog.Insert(mx)
	}
	t, err := table.Load(e.bm, e.pol, st.Name, path)
	if err != nil {
		return err
	}
	logger.Infof("loaded table %s: %d rows in %d blocks", st.Name, t.RowCount(), t.BlockCount())
	return e.catalog.Insert(t)
}

func (e *Engine) execList(st ListStmt) error {
	kind := storage.KindTable
	if st.Matrices {
		kind = storage.KindMatrix
	}
	for _, name := range e.catalog.List(kind) {
		fmt.Fprintln(e.Out, name)
	}
	return nil
}

func (e *Engine) execPrint(st PrintStmt) error {
	if st.Matrix {
		return e.printMatrix(st.Name)
	}
	t, err := e.lookupTable(st.Name)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.Out, strings.Join(t.Columns(), " "))
	cur := t.NewCursor()
	shown := 0
	for shown < e.cfg.PrintCount {
		row, ok := cur.Next()
		if !ok {
			break
		}
		fmt.Fprintln(e.Out, joinRow(row, " "))
		shown++
	}
	if shown < t.RowCount() {
		fmt.Fprintf(e.Out, "(%d of %d rows)\n", shown, t.RowCount())
	}
	return nil
}

func joinRow(row []int32, sep string) string {
	var sb strings.Builder
	for i, v := range row {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
	return sb.String()
}

func (e *Engine) execRename(st RenameStmt) error {
	obj, ok := e.catalog.Get(st.Old)
	if !ok {
		return fmt.Errorf("no such object %s", st.Old)
	}
	wantKind := storage.KindTable
	if st.Matrix {
		wantKind = storage.KindMatrix
	}
	if obj.Kind() != wantKind {
		return fmt.Errorf("%s is a %s", st.Old, obj.Kind())
	}
	return e.catalog.Rename(st.Old, st.New)
}

func (e *Engine) execExport(st ExportStmt) error {
	if st.Matrix {
		return e.exportMatrix(st.Name)
	}
	t, err := e.lookupTable(st.Name)
	if err != nil {
		return err
	}
	path := e.csvPath(st.Name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", st.Name, err)
	}
	cur := t.NewCursor()
	werr := exporter.WriteTable(f, t.Columns(), func() ([]int32, bool) { return cur.Next() })
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("export %s: %w", st.Name, werr)
	}
	t.SetSourcePath(path)
	return nil
}

func (e *Engine) execClear(st ClearStmt) error {
	obj, ok := e.catalog.Remove(st.Name)
	if !ok {
		return fmt.Errorf("no such object %s", st.Name)
	}
	obj.Drop()
	return nil
}

func (e *Engine) execIndex(st IndexStmt) error {
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	return t.BuildIndex(st.Column, st.Strategy)
}

func (e *Engine) execSort(st SortStmt) error {
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	keys := make([]table.SortKey, len(st.Columns))
	for i, c := range st.Columns {
		col, ok := t.ColumnIndex(c)
		if !ok {
			return fmt.Errorf("no column %s in table %s", c, st.Table)
		}
		keys[i] = table.SortKey{Column: col, Dir: st.Dirs[i]}
	}
	return t.Sort(keys)
}

func compareCells(a int32, op CompareOp, b int32) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpGt:
		return a > b
	case OpLe:
		return a <= b
	case OpGe:
		return a >= b
	}
	return false
}

func (e *Engine) execSelect(st SelectStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	col, ok := t.ColumnIndex(st.Column)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.Column, st.Table)
	}
	var rhsCol int
	if st.IsCol {
		rhsCol, ok = t.ColumnIndex(st.RHSCol)
		if !ok {
			return fmt.Errorf("no column %s in table %s", st.RHSCol, st.Table)
		}
	}

	b, err := table.NewBuilder(e.bm, e.pol, st.Target, t.Columns())
	if err != nil {
		return err
	}

	// Column-to-constant predicates probe the index when one covers the
	// column; everything else scans.
	if !st.IsCol && t.IndexedOn(col) {
		if refs, ok := indexProbe(t.IndexInfo(), st.Op, st.Value); ok {
			logger.Debugf("SELECT %s: index probe, %d candidates", st.Table, len(refs))
			if err := e.appendRefs(t, b, refs, st.Op, st.Value, col); err != nil {
				b.Abort()
				return err
			}
			return e.finishBuild(b)
		}
	}

	cur := t.NewCursor()
	for {
		row, rok := cur.Next()
		if !rok {
			break
		}
		rhs := st.Value
		if st.IsCol {
			rhs = row[rhsCol]
		}
		if compareCells(row[col], st.Op, rhs) {
			if err := b.Append(row); err != nil {
				b.Abort()
				return err
			}
		}
	}
	return e.finishBuild(b)
}

// indexProbe answers a predicate from an index when the layout supports
// the operator: equality on either layout, ranges on the btree. != always
// falls back to a scan.
func indexProbe(idx *table.Index, op CompareOp, v int32) ([]table.RowRef, bool) {
	switch op {
	case OpEq:
		return idx.LookupEqual(v), true
	case OpNe:
		return nil, false
	}
	if idx.Strategy != table.IndexBTree {
		return nil, false
	}
	switch op {
	case OpLt:
		if v == math.MinInt32 {
			return nil, true
		}
		return idx.LookupRange(math.MinInt32, v-1), true
	case OpLe:
		return idx.LookupRange(math.MinInt32, v), true
	case OpGt:
		if v == math.MaxInt32 {
			return nil, true
		}
		return idx.LookupRange(v+1, math.MaxInt32), true
	case OpGe:
		return idx.LookupRange(v, math.MaxInt32), true
	}
	return nil, false
}

// appendRefs fetches the referenced rows block by block and re-checks the
// predicate, so a stale index entry can narrow but never corrupt a result.
func (e *Engine) appendRefs(t *table.Table, b *table.Builder, refs []table.RowRef, op CompareOp, v int32, col int) error {
	for _, ref := range refs {
		p, err := e.bm.GetPage(t.ObjectName(), ref.Block)
		if err != nil {
			return err
		}
		row := p.Row(ref.Row)
		if compareCells(row[col], op, v) {
			if err := b.Append(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) finishBuild(b *table.Builder) error {
	t, err := b.Finish()
	if err != nil {
		return err
	}
	return e.catalog.Insert(t)
}

func (e *Engine) execProject(st ProjectStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	cols := make([]int, len(st.Columns))
	for i, c := range st.Columns {
		col, ok := t.ColumnIndex(c)
		if !ok {
			return fmt.Errorf("no column %s in table %s", c, st.Table)
		}
		cols[i] = col
	}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, st.Columns)
	if err != nil {
		return err
	}
	cur := t.NewCursor()
	out := make([]int32, len(cols))
	for {
		row, ok := cur.Next()
		if !ok {
			break
		}
		for i, c := range cols {
			out[i] = row[c]
		}
		if err := b.Append(out); err != nil {
			b.Abort()
			return err
		}
	}
	return e.finishBuild(b)
}

// joinColumns merges the column lists of two tables, disambiguating
// clashes with the right table's name.
func joinColumns(left *table.Table, right *table.Table, rightName string) ([]string, error) {
	cols := append([]string(nil), left.Columns()...)
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	for _, c := range right.Columns() {
		name := c
		if seen[name] {
			name = rightName + "_" + c
		}
		if seen[name] {
			return nil, fmt.Errorf("column %s is ambiguous even after qualification", name)
		}
		seen[name] = true
		cols = append(cols, name)
	}
	return cols, nil
}

func (e *Engine) execJoin(st JoinStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	lt, err := e.lookupTable(st.Left)
	if err != nil {
		return err
	}
	rt, err := e.lookupTable(st.Right)
	if err != nil {
		return err
	}
	lcol, ok := lt.ColumnIndex(st.LeftCol)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.LeftCol, st.Left)
	}
	rcol, ok := rt.ColumnIndex(st.RightCol)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.RightCol, st.Right)
	}
	cols, err := joinColumns(lt, rt, st.Right)
	if err != nil {
		return err
	}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, cols)
	if err != nil {
		return err
	}

	// Block nested-loop join: the outer row is copied before the inner
	// scan starts so inner page faults cannot invalidate it.
	outer := lt.NewCursor()
	combined := make([]int32, len(cols))
	for {
		lrow, ok := outer.Next()
		if !ok {
			break
		}
		lcopy := append([]int32(nil), lrow...)
		inner := rt.NewCursor()
		for {
			rrow, ok := inner.Next()
			if !ok {
				break
			}
			if compareCells(lcopy[lcol], st.Op, rrow[rcol]) {
				copy(combined, lcopy)
				copy(combined[len(lcopy):], rrow)
				if err := b.Append(combined); err != nil {
					b.Abort()
					return err
				}
			}
		}
	}
	return e.finishBuild(b)
}

func (e *Engine) execCross(st CrossStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	lt, err := e.lookupTable(st.Left)
	if err != nil {
		return err
	}
	rt, err := e.lookupTable(st.Right)
	if err != nil {
		return err
	}
	cols, err := joinColumns(lt, rt, st.Right)
	if err != nil {
		return err
	}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, cols)
	if err != nil {
		return err
	}
	outer := lt.NewCursor()
	combined := make([]int32, len(cols))
	for {
		lrow, ok := outer.Next()
		if !ok {
			break
		}
		lcopy := append([]int32(nil), lrow...)
		inner := rt.NewCursor()
		for {
			rrow, ok := inner.Next()
			if !ok {
				break
			}
			copy(combined, lcopy)
			copy(combined[len(lcopy):], rrow)
			if err := b.Append(combined); err != nil {
				b.Abort()
				return err
			}
		}
	}
	return e.finishBuild(b)
}

func (e *Engine) execDistinct(st DistinctStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, t.Columns())
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, t.RowCount())
	cur := t.NewCursor()
	for {
		row, ok := cur.Next()
		if !ok {
			break
		}
		key := joinRow(row, ",")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if err := b.Append(row); err != nil {
			b.Abort()
			return err
		}
	}
	return e.finishBuild(b)
}

func (e *Engine) execOrderBy(st OrderByStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	col, ok := t.ColumnIndex(st.Column)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.Column, st.Table)
	}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, t.Columns())
	if err != nil {
		return err
	}
	cur := t.NewCursor()
	for {
		row, ok := cur.Next()
		if !ok {
			break
		}
		if err := b.Append(row); err != nil {
			b.Abort()
			return err
		}
	}
	out, err := b.Finish()
	if err != nil {
		return err
	}
	if err := out.Sort([]table.SortKey{{Column: col, Dir: st.Dir}}); err != nil {
		out.Drop()
		return err
	}
	return e.catalog.Insert(out)
}

// aggState accumulates one group's aggregate.
type aggState struct {
	min, max int32
	sum      int64
	count    int64
}

func (e *Engine) execGroupBy(st GroupByStmt) error {
	if err := e.requireFree(st.Target); err != nil {
		return err
	}
	t, err := e.lookupTable(st.Table)
	if err != nil {
		return err
	}
	grpCol, ok := t.ColumnIndex(st.GroupCol)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.GroupCol, st.Table)
	}
	aggCol, ok := t.ColumnIndex(st.AggCol)
	if !ok {
		return fmt.Errorf("no column %s in table %s", st.AggCol, st.Table)
	}

	groups := make(map[int32]*aggState)
	cur := t.NewCursor()
	for {
		row, rok := cur.Next()
		if !rok {
			break
		}
		g, v := row[grpCol], row[aggCol]
		s, seen := groups[g]
		if !seen {
			s = &aggState{min: v, max: v}
			groups[g] = s
		} else {
			if v < s.min {
				s.min = v
			}
			if v > s.max {
				s.max = v
			}
		}
		s.sum += int64(v)
		s.count++
	}

	keys := make([]int32, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	cols := []string{st.GroupCol, string(st.Agg) + st.AggCol}
	b, err := table.NewBuilder(e.bm, e.pol, st.Target, cols)
	if err != nil {
		return err
	}
	for _, g := range keys {
		s := groups[g]
		var out int32
		switch st.Agg {
		case AggMin:
			out = s.min
		case AggMax:
			out = s.max
		case AggSum:
			out = int32(s.sum)
		case AggAvg:
			out = int32(s.sum / s.count)
		case AggCount:
			out = int32(s.count)
		}
		if err := b.Append([]int32{g, out}); err != nil {
			b.Abort()
			return err
		}
	}
	return e.finishBuild(b)
}
