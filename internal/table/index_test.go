package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildIndex_Hash(t *testing.T) {
	tbl, _, _ := loadFixture(t, tinyPolicy, "A,B,C\n1,5,0\n2,5,0\n3,6,0\n")
	require.NoError(t, tbl.BuildIndex("B", IndexHash))
	idx := tbl.IndexInfo()
	require.NotNil(t, idx)
	require.Equal(t, IndexHash, idx.Strategy)

	refs := idx.LookupEqual(5)
	require.Equal(t, []RowRef{{Block: 0, Row: 0}, {Block: 0, Row: 1}}, refs)
	require.Empty(t, idx.LookupEqual(7))
}

func TestBuildIndex_BTreeRange(t *testing.T) {
	tbl, _, _ := loadFixture(t, tinyPolicy, "A,B,C\n1,5,0\n2,8,0\n3,6,0\n4,2,0\n")
	require.NoError(t, tbl.BuildIndex("B", IndexBTree))
	idx := tbl.IndexInfo()

	refs := idx.LookupRange(5, 6)
	require.Equal(t, []RowRef{{Block: 0, Row: 0}, {Block: 1, Row: 0}}, refs)
	require.Equal(t, []RowRef{{Block: 0, Row: 1}}, idx.LookupEqual(8))
	require.Empty(t, idx.LookupRange(9, 3))
}

func TestBuildIndex_UnknownColumn(t *testing.T) {
	tbl, _, _ := loadFixture(t, tinyPolicy, "A,B,C\n1,2,3\n")
	require.Error(t, tbl.BuildIndex("Z", IndexHash))
}

func TestBuildIndex_NothingDrops(t *testing.T) {
	tbl, _, _ := loadFixture(t, tinyPolicy, "A,B,C\n1,2,3\n")
	require.NoError(t, tbl.BuildIndex("B", IndexHash))
	require.NotNil(t, tbl.IndexInfo())
	require.NoError(t, tbl.BuildIndex("B", IndexNone))
	require.Nil(t, tbl.IndexInfo())
}

func TestSort_DropsIndex(t *testing.T) {
	tbl, _, _ := loadFixture(t, tinyPolicy, "A,B,C\n3,1,0\n1,2,0\n2,3,0\n")
	require.NoError(t, tbl.BuildIndex("A", IndexHash))
	aIdx, _ := tbl.ColumnIndex("A")
	require.NoError(t, tbl.Sort([]SortKey{{Column: aIdx, Dir: Ascending}}))
	require.Nil(t, tbl.IndexInfo(), "row positions moved; the index must not survive")
}
