package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/gridDB/internal/table"
)

func mustParse(t *testing.T, line string) Statement {
	t.Helper()
	st, err := Parse(line)
	require.NoError(t, err, "line %q", line)
	return st
}

func TestParse_BlankAndComment(t *testing.T) {
	for _, line := range []string{"", "   ", "-- a comment", "  -- indented"} {
		st, err := Parse(line)
		require.NoError(t, err)
		require.Nil(t, st)
	}
}

func TestParse_Load(t *testing.T) {
	require.Equal(t, LoadStmt{Name: "emp"}, mustParse(t, "LOAD emp"))
	require.Equal(t, LoadStmt{Name: "M", Matrix: true}, mustParse(t, "LOAD MATRIX M"))
	// Keywords are case-insensitive; names keep their case.
	require.Equal(t, LoadStmt{Name: "Emp"}, mustParse(t, "load Emp"))
}

func TestParse_ListPrintRenameExportClear(t *testing.T) {
	require.Equal(t, ListStmt{}, mustParse(t, "LIST TABLES"))
	require.Equal(t, ListStmt{Matrices: true}, mustParse(t, "LIST MATRICES"))
	require.Equal(t, PrintStmt{Name: "emp"}, mustParse(t, "PRINT emp"))
	require.Equal(t, PrintStmt{Name: "M", Matrix: true}, mustParse(t, "PRINT MATRIX M"))
	require.Equal(t, RenameStmt{Old: "a", New: "b"}, mustParse(t, "RENAME a b"))
	require.Equal(t, RenameStmt{Old: "a", New: "b", Matrix: true}, mustParse(t, "RENAME MATRIX a b"))
	require.Equal(t, ExportStmt{Name: "emp"}, mustParse(t, "EXPORT emp"))
	require.Equal(t, ClearStmt{Name: "emp"}, mustParse(t, "CLEAR emp"))
}

func TestParse_Index(t *testing.T) {
	require.Equal(t,
		IndexStmt{Column: "Salary", Table: "emp", Strategy: table.IndexBTree},
		mustParse(t, "INDEX ON Salary FROM emp USING BTREE"))
	require.Equal(t,
		IndexStmt{Column: "Dept", Table: "emp", Strategy: table.IndexHash},
		mustParse(t, "INDEX ON Dept FROM emp USING HASH"))
	require.Equal(t,
		IndexStmt{Column: "Dept", Table: "emp", Strategy: table.IndexNone},
		mustParse(t, "INDEX ON Dept FROM emp USING NOTHING"))
}

func TestParse_Sort(t *testing.T) {
	require.Equal(t, SortStmt{
		Table:   "emp",
		Columns: []string{"B", "A"},
		Dirs:    []table.Direction{table.Descending, table.Ascending},
	}, mustParse(t, "SORT emp BY B, A IN DESC, ASC"))

	_, err := Parse("SORT emp BY A, B IN ASC")
	require.Error(t, err, "column/direction arity must match")
}

func TestParse_Select(t *testing.T) {
	require.Equal(t, SelectStmt{
		Target: "r", Column: "A", Op: OpGe, Value: -5, Table: "emp",
	}, mustParse(t, "r = SELECT A >= -5 FROM emp"))

	require.Equal(t, SelectStmt{
		Target: "r", Column: "A", Op: OpEq, RHSCol: "B", IsCol: true, Table: "emp",
	}, mustParse(t, "r = SELECT A == B FROM emp"))

	_, err := Parse("r = SELECT A = 5 FROM emp")
	require.Error(t, err, "single = is assignment, not comparison")
}

func TestParse_ProjectJoinCrossDistinct(t *testing.T) {
	require.Equal(t, ProjectStmt{Target: "r", Columns: []string{"A", "C"}, Table: "emp"},
		mustParse(t, "r = PROJECT A, C FROM emp"))
	require.Equal(t, JoinStmt{
		Target: "r", Left: "emp", Right: "dept",
		LeftCol: "DeptID", RightCol: "ID", Op: OpEq,
	}, mustParse(t, "r = JOIN emp, dept ON DeptID == ID"))
	require.Equal(t, CrossStmt{Target: "r", Left: "a", Right: "b"},
		mustParse(t, "r = CROSS a b"))
	require.Equal(t, DistinctStmt{Target: "r", Table: "emp"},
		mustParse(t, "r = DISTINCT emp"))
}

func TestParse_OrderByGroupBy(t *testing.T) {
	require.Equal(t, OrderByStmt{Target: "r", Column: "A", Dir: table.Descending, Table: "emp"},
		mustParse(t, "r = ORDERBY A DESC ON emp"))
	require.Equal(t, GroupByStmt{
		Target: "r", GroupCol: "Dept", Table: "emp", Agg: AggMax, AggCol: "Salary",
	}, mustParse(t, "r = GROUPBY Dept FROM emp RETURN MAX(Salary)"))
}

func TestParse_MatrixCommands(t *testing.T) {
	require.Equal(t, TransposeStmt{Name: "M"}, mustParse(t, "TRANSPOSE M"))
	require.Equal(t, SymmetryStmt{Name: "M"}, mustParse(t, "SYMMETRY M"))
	require.Equal(t, ComputeStmt{Target: "N", Matrix: "M"}, mustParse(t, "N = COMPUTE M"))
	require.Equal(t, SourceStmt{Name: "script"}, mustParse(t, "SOURCE script"))
	require.Equal(t, QuitStmt{}, mustParse(t, "QUIT"))
}

func TestParse_Errors(t *testing.T) {
	for _, line := range []string{
		"FROB x",
		"LOAD",
		"LIST",
		"r = SELECT A FROM emp",
		"r = GROUPBY Dept FROM emp RETURN MAX Salary",
		"SORT emp BY A IN UP",
		"PRINT emp extra",
		"r = ",
	} {
		_, err := Parse(line)
		require.Error(t, err, "line %q must not parse", line)
	}
}
