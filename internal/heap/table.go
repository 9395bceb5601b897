package heap

import (
	"fmt"
	"strings"

	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/query"
	"github.com/tuannm99/soliddb/internal/record"
)

// Table is an append-only row store: a schema, the rows in insertion order and
// the indexes derived from them.
type Table struct {
	Name   string
	Schema record.Schema

	rows []record.Row

	// pkCol is the primary key column position, -1 when there is none.
	pkCol   int
	pkIndex map[string]RowID

	// unique[i] is non-nil for every PRIMARY KEY or UNIQUE column and holds
	// each value observed in that column.
	unique []map[string]struct{}
}

// NewTable validates the column list and builds an empty table. A primary key
// column is always made NOT NULL.
func NewTable(name string, cols []record.ColumnDef) (*Table, error) {
	if name == "" {
		return nil, &dberr.SchemaError{Table: name, Reason: "missing table name"}
	}
	if !validName(name) {
		return nil, &dberr.SchemaError{Table: name, Reason: fmt.Sprintf("invalid table name %q", name)}
	}
	if len(cols) == 0 {
		return nil, &dberr.SchemaError{Table: name, Reason: "no columns defined"}
	}

	schema := record.Schema{Cols: make([]record.ColumnDef, len(cols))}
	copy(schema.Cols, cols)

	seen := make(map[string]struct{}, len(cols))
	pkCol := -1
	for i := range schema.Cols {
		c := &schema.Cols[i]
		if c.Name == "" {
			return nil, &dberr.SchemaError{Table: name, Reason: "empty column name"}
		}
		if !validName(c.Name) {
			return nil, &dberr.SchemaError{Table: name, Reason: fmt.Sprintf("invalid column name %q", c.Name)}
		}
		if strings.ContainsAny(c.Type, ",\n\r") {
			return nil, &dberr.SchemaError{Table: name, Reason: fmt.Sprintf("invalid type %q for column '%s'", c.Type, c.Name)}
		}
		if _, dup := seen[c.Name]; dup {
			return nil, &dberr.SchemaError{Table: name, Reason: "duplicate column '" + c.Name + "'"}
		}
		seen[c.Name] = struct{}{}

		if c.IsPrimaryKey() {
			if pkCol >= 0 {
				return nil, &dberr.SchemaError{Table: name, Reason: "more than one primary key column"}
			}
			pkCol = i
			c.Constraints |= record.NotNull
		}
	}

	t := &Table{
		Name:   name,
		Schema: schema,
		pkCol:  pkCol,
		unique: make([]map[string]struct{}, len(cols)),
	}
	if pkCol >= 0 {
		t.pkIndex = make(map[string]RowID)
	}
	for i, c := range schema.Cols {
		if c.RequiresUniqueValue() {
			t.unique[i] = make(map[string]struct{})
		}
	}
	return t, nil
}

// validName rejects names that would escape the database directory or break
// the line and comma structure of the metadata and table files.
func validName(n string) bool {
	return !strings.ContainsAny(n, "/\\,\n\r") && !strings.Contains(n, "..")
}

// Columns returns a copy of the column definitions.
func (t *Table) Columns() []record.ColumnDef {
	return t.Schema.Clone().Cols
}

func (t *Table) RowCount() int { return len(t.rows) }

// Insert checks arity and constraints, then appends the row and updates every
// index. On error nothing is modified.
func (t *Table) Insert(values []string) (RowID, error) {
	if len(values) != t.Schema.NumCols() {
		return -1, &dberr.ArityError{Want: t.Schema.NumCols(), Got: len(values)}
	}
	if err := t.checkConstraints(values); err != nil {
		return -1, err
	}

	row := record.Row(values).Clone()
	id := RowID(len(t.rows))
	t.rows = append(t.rows, row)

	if t.pkCol >= 0 {
		t.pkIndex[row[t.pkCol]] = id
	}
	for i, set := range t.unique {
		if set != nil {
			set[row[i]] = struct{}{}
		}
	}
	return id, nil
}

// checkConstraints rejects line breaks, then runs NOT NULL, PRIMARY KEY and
// UNIQUE in that order.
func (t *Table) checkConstraints(values []string) error {
	for i, c := range t.Schema.Cols {
		if strings.ContainsAny(values[i], "\n\r") {
			return &dberr.ConstraintViolation{Kind: dberr.LineBreak, Column: c.Name, Value: values[i]}
		}
		if c.IsNotNull() && values[i] == "" {
			return &dberr.ConstraintViolation{Kind: dberr.NotNull, Column: c.Name}
		}
	}

	if t.pkCol >= 0 {
		v := values[t.pkCol]
		if _, dup := t.pkIndex[v]; dup {
			return &dberr.ConstraintViolation{
				Kind:   dberr.DuplicatePrimaryKey,
				Column: t.Schema.Cols[t.pkCol].Name,
				Value:  v,
			}
		}
	}

	// empty values are exempt from uniqueness
	for i, c := range t.Schema.Cols {
		if !c.IsUnique() || c.IsPrimaryKey() {
			continue
		}
		v := values[i]
		if v == "" {
			continue
		}
		if _, dup := t.unique[i][v]; dup {
			return &dberr.ConstraintViolation{Kind: dberr.DuplicateUnique, Column: c.Name, Value: v}
		}
	}
	return nil
}

// Select scans every row in insertion order. Indexes are not consulted.
func (t *Table) Select(columns []string, where string) *query.ResultSet {
	return query.BuildSeqScan(t.Schema, columns, where).Run(t.rows)
}

// Lookup finds a row by primary key value.
func (t *Table) Lookup(pk string) (record.Row, bool) {
	if t.pkCol < 0 {
		return nil, false
	}
	id, ok := t.pkIndex[pk]
	if !ok {
		return nil, false
	}
	return t.rows[id].Clone(), true
}

// Get reads a single row by RowID.
func (t *Table) Get(id RowID) (record.Row, bool) {
	if id < 0 || int(id) >= len(t.rows) {
		return nil, false
	}
	return t.rows[id].Clone(), true
}

// Scan iterates over all rows in insertion order. fn receives a copy; a
// non-nil error from fn stops the scan and is returned.
func (t *Table) Scan(fn func(id RowID, row record.Row) error) error {
	for i, row := range t.rows {
		if err := fn(RowID(i), row.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// HasValue reports whether value was observed in a PRIMARY KEY or UNIQUE
// column. It returns false for columns without a value set.
func (t *Table) HasValue(column, value string) bool {
	idx := t.Schema.ColumnIndex(column)
	if idx < 0 || t.unique[idx] == nil {
		return false
	}
	_, ok := t.unique[idx][value]
	return ok
}
