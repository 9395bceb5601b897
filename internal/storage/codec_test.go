package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/heap"
	"github.com/tuannm99/soliddb/internal/record"
)

func newUsersTable(t *testing.T) *heap.Table {
	t.Helper()

	tbl, err := heap.NewTable("users", []record.ColumnDef{
		{Name: "id", Type: "INT", Constraints: record.PrimaryKey},
		{Name: "email", Type: "STRING", Constraints: record.Unique},
		{Name: "name", Type: "STRING", Constraints: record.NotNull},
	})
	require.NoError(t, err)

	for _, r := range [][]string{
		{"1", "a@x", "Alice"},
		{"2", "", "Bob"},
		{"3", "", "Carol"},
	} {
		_, err := tbl.Insert(r)
		require.NoError(t, err)
	}
	return tbl
}

func TestSerialize_ExactFormat(t *testing.T) {
	want := "users\n" +
		"3\n" +
		"id,INT,5\n" +
		"email,STRING,2\n" +
		"name,STRING,4\n" +
		"3\n" +
		"1,a@x,Alice\n" +
		"2,,Bob\n" +
		"3,,Carol\n"
	assert.Equal(t, want, string(Serialize(newUsersTable(t))))
}

func TestSerialize_EmptyTable(t *testing.T) {
	tbl, err := heap.NewTable("empty", []record.ColumnDef{{Name: "a", Type: "X"}})
	require.NoError(t, err)
	assert.Equal(t, "empty\n1\na,X,0\n0\n", string(Serialize(tbl)))
}

func TestRoundTrip(t *testing.T) {
	orig := newUsersTable(t)

	got, err := Deserialize(Serialize(orig))
	require.NoError(t, err)

	assert.Equal(t, orig.Name, got.Name)
	assert.Equal(t, orig.Columns(), got.Columns())
	assert.Equal(t, orig.Select(nil, "").Rows, got.Select(nil, "").Rows)

	// indexes were rebuilt by the replay
	row, ok := got.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "Bob", row[2])
	_, err = got.Insert([]string{"4", "a@x", "Dan"})
	assert.ErrorIs(t, err, dberr.ErrConstraint)
}

func TestRoundTrip_TrailingEmptyCell(t *testing.T) {
	tbl, err := heap.NewTable("notes", []record.ColumnDef{
		{Name: "k", Type: "INT"},
		{Name: "v", Type: "STRING"},
	})
	require.NoError(t, err)
	_, err = tbl.Insert([]string{"1", ""})
	require.NoError(t, err)
	_, err = tbl.Insert([]string{"", ""})
	require.NoError(t, err)

	got, err := Deserialize(Serialize(tbl))
	require.NoError(t, err)
	assert.Equal(t, tbl.Select(nil, "").Rows, got.Select(nil, "").Rows)
}

func TestDeserialize_ConstraintMaskDefaults(t *testing.T) {
	data := "t\n3\na,INT\nb,STRING,abc\nc,STRING,2,extra\n1\nx,y,z\n"

	tbl, err := Deserialize([]byte(data))
	require.NoError(t, err)

	cols := tbl.Columns()
	assert.Equal(t, record.ColumnDef{Name: "a", Type: "INT"}, cols[0])
	assert.Equal(t, record.ColumnDef{Name: "b", Type: "STRING"}, cols[1])
	assert.Equal(t, record.ColumnDef{Name: "c", Type: "STRING", Constraints: record.Unique}, cols[2])
	assert.Equal(t, 1, tbl.RowCount())
}

func TestDeserialize_PrimaryKeyGetsNotNull(t *testing.T) {
	tbl, err := Deserialize([]byte("t\n1\nid,INT,1\n0\n"))
	require.NoError(t, err)
	assert.Equal(t, record.PrimaryKey|record.NotNull, tbl.Columns()[0].Constraints)
}

func TestDeserialize_CorruptRowsAreReportedAndSkipped(t *testing.T) {
	// row 2 duplicates the PK, row 3 has the wrong arity
	data := "t\n2\nid,INT,5\nname,STRING,0\n4\n1,a\n1,b\n2,b,extra\n3,c\n"

	tbl, err := Deserialize([]byte(data))
	require.NotNil(t, tbl)
	require.Error(t, err)
	require.ErrorIs(t, err, dberr.ErrFormat)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)

	var fe *dberr.FormatError
	require.True(t, errors.As(errs[0], &fe))
	assert.Equal(t, "t.tbl", fe.Source)
	assert.Equal(t, 7, fe.Line)
	assert.ErrorIs(t, errs[0], dberr.ErrConstraint)

	require.True(t, errors.As(errs[1], &fe))
	assert.Equal(t, 8, fe.Line)
	assert.ErrorIs(t, errs[1], dberr.ErrArity)

	assert.Equal(t, []record.Row{{"1", "a"}, {"3", "c"}}, tbl.Select(nil, "").Rows)
}

func TestDeserialize_Truncated(t *testing.T) {
	tbl, err := Deserialize([]byte("t\n1\nid,INT,0\n3\n1\n"))
	require.NotNil(t, tbl)
	require.ErrorIs(t, err, dberr.ErrFormat)
	assert.ErrorIs(t, err, ErrMissingLine)
	assert.Equal(t, 1, tbl.RowCount())
}

func TestDeserialize_BrokenHeader(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"no column count":   "t\n",
		"bad column count":  "t\nabc\n",
		"negative count":    "t\n-1\n",
		"missing column":    "t\n2\na,INT,0\n",
		"missing row count": "t\n1\na,INT,0\n",
		"bad row count":     "t\n1\na,INT,0\nmany\n",
		"no columns":        "t\n0\n0\n",
		"duplicate column":  "t\n2\na,INT,0\na,INT,0\n0\n",
		"empty table name":  "\n1\na,INT,0\n0\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			tbl, err := Deserialize([]byte(data))
			assert.Nil(t, tbl)
			assert.ErrorIs(t, err, dberr.ErrFormat)
		})
	}
}

func TestDeserialize_HugeColumnCount(t *testing.T) {
	for _, count := range []string{"9223372036854775807", "1000000000"} {
		var err error
		assert.NotPanics(t, func() {
			_, err = Deserialize([]byte("t\n" + count + "\na,INT,0\n0\n"))
		}, "count %s", count)
		assert.ErrorIs(t, err, dberr.ErrFormat, "count %s", count)
		assert.ErrorIs(t, err, ErrMissingLine, "count %s", count)
	}
}

func TestDeserialize_HugeRowCount(t *testing.T) {
	tbl, err := Deserialize([]byte("t\n1\na,INT,0\n9223372036854775807\n1\n"))
	require.NotNil(t, tbl)
	assert.ErrorIs(t, err, ErrMissingLine)
	assert.Equal(t, 1, tbl.RowCount())
}
