package heap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/record"
)

// newTestTable builds users(id PK, email UNIQUE, name NOT NULL, note).
func newTestTable(t *testing.T) *Table {
	t.Helper()

	tbl, err := NewTable("users", []record.ColumnDef{
		{Name: "id", Type: "INT", Constraints: record.PrimaryKey},
		{Name: "email", Type: "STRING", Constraints: record.Unique},
		{Name: "name", Type: "STRING", Constraints: record.NotNull},
		{Name: "note", Type: "STRING"},
	})
	require.NoError(t, err)
	return tbl
}

func requireViolation(t *testing.T, err error, kind dberr.ConstraintKind) *dberr.ConstraintViolation {
	t.Helper()
	require.ErrorIs(t, err, dberr.ErrConstraint)
	var cv *dberr.ConstraintViolation
	require.True(t, errors.As(err, &cv))
	require.Equal(t, kind, cv.Kind)
	return cv
}

func TestNewTable_PrimaryKeyImpliesNotNull(t *testing.T) {
	tbl := newTestTable(t)
	assert.True(t, tbl.Schema.Cols[0].IsNotNull())

	// caller's slice is not aliased
	cols := []record.ColumnDef{{Name: "k", Type: "INT", Constraints: record.PrimaryKey}}
	tbl2, err := NewTable("k", cols)
	require.NoError(t, err)
	assert.Equal(t, record.PrimaryKey, cols[0].Constraints)
	assert.Equal(t, record.PrimaryKey|record.NotNull, tbl2.Columns()[0].Constraints)
}

func TestNewTable_RejectsBadSchemas(t *testing.T) {
	cases := map[string][]record.ColumnDef{
		"no columns": nil,
		"empty name": {{Name: "", Type: "INT"}},
		"dup column": {{Name: "a", Type: "INT"}, {Name: "a", Type: "STRING"}},
		"two pk":     {{Name: "a", Constraints: record.PrimaryKey}, {Name: "b", Constraints: record.PrimaryKey}},
	}
	for name, cols := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTable("t", cols)
			require.ErrorIs(t, err, dberr.ErrSchema)
		})
	}

	_, err := NewTable("", []record.ColumnDef{{Name: "a"}})
	require.ErrorIs(t, err, dberr.ErrSchema)
}

func TestNewTable_RejectsNamesBreakingFileLayout(t *testing.T) {
	for _, name := range []string{"../escaped", "a/b", `a\b`, "x\ny", "x\ry", "a,b", ".."} {
		_, err := NewTable(name, []record.ColumnDef{{Name: "a", Type: "INT"}})
		assert.ErrorIs(t, err, dberr.ErrSchema, "table name %q", name)
	}

	badCols := map[string]record.ColumnDef{
		"comma in column":   {Name: "a,b", Type: "INT"},
		"newline in column": {Name: "a\nb", Type: "INT"},
		"slash in column":   {Name: "a/b", Type: "INT"},
		"comma in type":     {Name: "a", Type: "DECIMAL(10,2)"},
		"newline in type":   {Name: "a", Type: "INT\n"},
		"return in type":    {Name: "a", Type: "INT\r"},
	}
	for name, col := range badCols {
		t.Run(name, func(t *testing.T) {
			_, err := NewTable("t", []record.ColumnDef{col})
			require.ErrorIs(t, err, dberr.ErrSchema)
		})
	}

	_, err := NewTable("order_items.v2", []record.ColumnDef{{Name: "id", Type: "INT"}})
	assert.NoError(t, err)
}

func TestInsert_RejectsLineBreaks(t *testing.T) {
	tbl := newTestTable(t)
	for _, v := range []string{"Al\nice", "Al\rice"} {
		_, err := tbl.Insert([]string{"1", "a@x", v, ""})
		cv := requireViolation(t, err, dberr.LineBreak)
		assert.Equal(t, "name", cv.Column)
	}
	assert.Equal(t, 0, tbl.RowCount())
	_, ok := tbl.Lookup("1")
	assert.False(t, ok)
}

func TestInsert_ArityError(t *testing.T) {
	tbl := newTestTable(t)

	_, err := tbl.Insert([]string{"1", "a@x"})
	require.ErrorIs(t, err, dberr.ErrArity)
	var ae *dberr.ArityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 4, ae.Want)
	assert.Equal(t, 2, ae.Got)
	assert.Equal(t, 0, tbl.RowCount())
}

func TestInsert_DuplicatePrimaryKey(t *testing.T) {
	tbl := newTestTable(t)

	id, err := tbl.Insert([]string{"1", "a@x", "Alice", ""})
	require.NoError(t, err)
	assert.Equal(t, RowID(0), id)

	_, err = tbl.Insert([]string{"1", "b@x", "Bob", ""})
	cv := requireViolation(t, err, dberr.DuplicatePrimaryKey)
	assert.Equal(t, "1", cv.Value)
	assert.Equal(t, 1, tbl.RowCount())

	// the rejected row's unique value was not recorded
	assert.False(t, tbl.HasValue("email", "b@x"))
}

func TestInsert_NotNull(t *testing.T) {
	tbl := newTestTable(t)

	_, err := tbl.Insert([]string{"1", "a@x", "", ""})
	cv := requireViolation(t, err, dberr.NotNull)
	assert.Equal(t, "name", cv.Column)

	// PK column rejects empty through its implied NOT NULL, before the PK check
	_, err = tbl.Insert([]string{"", "a@x", "Alice", ""})
	cv = requireViolation(t, err, dberr.NotNull)
	assert.Equal(t, "id", cv.Column)

	assert.Equal(t, 0, tbl.RowCount())
}

func TestInsert_NotNullIndependentOfOtherFlags(t *testing.T) {
	tbl, err := NewTable("t", []record.ColumnDef{
		{Name: "code", Type: "STRING", Constraints: record.Unique | record.NotNull},
	})
	require.NoError(t, err)

	_, err = tbl.Insert([]string{""})
	requireViolation(t, err, dberr.NotNull)
	_, err = tbl.Insert([]string{""})
	requireViolation(t, err, dberr.NotNull)
	assert.Equal(t, 0, tbl.RowCount())
}

func TestInsert_UniqueRejectsNonEmptyDuplicate(t *testing.T) {
	tbl := newTestTable(t)

	_, err := tbl.Insert([]string{"1", "a@x", "Alice", ""})
	require.NoError(t, err)

	_, err = tbl.Insert([]string{"2", "a@x", "Bob", ""})
	cv := requireViolation(t, err, dberr.DuplicateUnique)
	assert.Equal(t, "email", cv.Column)
	assert.Equal(t, "a@x", cv.Value)
	assert.Equal(t, 1, tbl.RowCount())

	// the rejected row's primary key was not recorded either
	_, ok := tbl.Lookup("2")
	assert.False(t, ok)
}

func TestInsert_UniqueAllowsRepeatedEmpty(t *testing.T) {
	tbl := newTestTable(t)

	_, err := tbl.Insert([]string{"1", "", "Alice", ""})
	require.NoError(t, err)
	_, err = tbl.Insert([]string{"2", "", "Bob", ""})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.RowCount())
	assert.True(t, tbl.HasValue("email", ""))
}

func TestInsert_ConstraintOrder(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Insert([]string{"1", "a@x", "Alice", ""})
	require.NoError(t, err)

	// NOT NULL wins over duplicate PK and duplicate UNIQUE
	_, err = tbl.Insert([]string{"1", "a@x", "", ""})
	requireViolation(t, err, dberr.NotNull)

	// duplicate PK wins over duplicate UNIQUE
	_, err = tbl.Insert([]string{"1", "a@x", "Bob", ""})
	requireViolation(t, err, dberr.DuplicatePrimaryKey)
}

func TestInsert_CopiesValues(t *testing.T) {
	tbl := newTestTable(t)
	vals := []string{"1", "a@x", "Alice", "n"}
	_, err := tbl.Insert(vals)
	require.NoError(t, err)

	vals[2] = "Mallory"
	row, ok := tbl.Get(0)
	require.True(t, ok)
	assert.Equal(t, "Alice", row[2])
}

func TestIndexes_TrackEveryInsertedValue(t *testing.T) {
	tbl := newTestTable(t)
	for i := 1; i <= 20; i++ {
		_, err := tbl.Insert([]string{fmt.Sprint(i), fmt.Sprintf("u%d@x", i), "n", ""})
		require.NoError(t, err)
	}

	for i := 1; i <= 20; i++ {
		row, ok := tbl.Lookup(fmt.Sprint(i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("u%d@x", i), row[1])
		assert.True(t, tbl.HasValue("id", fmt.Sprint(i)))
		assert.True(t, tbl.HasValue("email", fmt.Sprintf("u%d@x", i)))
	}
	assert.Len(t, tbl.pkIndex, 20)
	assert.Len(t, tbl.unique[1], 20)
	assert.Nil(t, tbl.unique[2])
	assert.False(t, tbl.HasValue("name", "n"))
}

func TestLookup_NoPrimaryKey(t *testing.T) {
	tbl, err := NewTable("log", []record.ColumnDef{{Name: "msg", Type: "STRING"}})
	require.NoError(t, err)
	_, err = tbl.Insert([]string{"x"})
	require.NoError(t, err)

	_, ok := tbl.Lookup("x")
	assert.False(t, ok)
}

func TestSelect_AllRowsAllColumns(t *testing.T) {
	tbl, err := NewTable("t", []record.ColumnDef{
		{Name: "id", Type: "INT", Constraints: record.PrimaryKey | record.NotNull},
		{Name: "name", Type: "STRING"},
	})
	require.NoError(t, err)

	_, err = tbl.Insert([]string{"1", "a"})
	require.NoError(t, err)
	_, err = tbl.Insert([]string{"1", "b"})
	requireViolation(t, err, dberr.DuplicatePrimaryKey)
	assert.Equal(t, 1, tbl.RowCount())

	rs := tbl.Select(nil, "")
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	assert.Equal(t, []record.Row{{"1", "a"}}, rs.Rows)
}

func TestSelect_WhereAndProjection(t *testing.T) {
	tbl := newTestTable(t)
	rows := [][]string{
		{"1", "a@x", "Alice", ""},
		{"2", "b@x", "Bob", "first"},
		{"3", "c@x", "Bob", "second"},
	}
	for _, r := range rows {
		_, err := tbl.Insert(r)
		require.NoError(t, err)
	}

	rs := tbl.Select([]string{"note", "id"}, `name="Bob"`)
	assert.Equal(t, []record.Row{{"first", "2"}, {"second", "3"}}, rs.Rows)

	// indexed column predicate still scans in insertion order
	rs = tbl.Select([]string{"name"}, "id=3")
	assert.Equal(t, []record.Row{{"Bob"}}, rs.Rows)

	assert.Empty(t, tbl.Select(nil, "ghost=1").Rows)
	assert.Len(t, tbl.Select(nil, "no equals sign").Rows, 3)
}

func TestSelect_ResultDoesNotAliasStorage(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Insert([]string{"1", "a@x", "Alice", ""})
	require.NoError(t, err)

	rs := tbl.Select(nil, "")
	rs.Rows[0][2] = "Mallory"

	assert.Equal(t, "Alice", tbl.Select(nil, "").Rows[0][2])
}

func TestScan_InsertionOrderAndStop(t *testing.T) {
	tbl := newTestTable(t)
	for i := 1; i <= 3; i++ {
		_, err := tbl.Insert([]string{fmt.Sprint(i), "", "n", ""})
		require.NoError(t, err)
	}

	var ids []string
	require.NoError(t, tbl.Scan(func(id RowID, row record.Row) error {
		ids = append(ids, row[0])
		return nil
	}))
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	stop := errors.New("stop")
	seen := 0
	err := tbl.Scan(func(id RowID, row record.Row) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)

	_, ok := tbl.Get(3)
	assert.False(t, ok)
	_, ok = tbl.Get(-1)
	assert.False(t, ok)
}
