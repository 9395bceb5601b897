package record

import "strings"

// Constraint is a bitmask of column constraints. The numeric values are part
// of the on-disk table format.
type Constraint uint8

const (
	PrimaryKey Constraint = 1
	Unique     Constraint = 2
	NotNull    Constraint = 4
)

func (c Constraint) Has(flag Constraint) bool { return c&flag != 0 }

func (c Constraint) String() string {
	var parts []string
	if c.Has(PrimaryKey) {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.Has(Unique) {
		parts = append(parts, "UNIQUE")
	}
	if c.Has(NotNull) {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// ColumnDef describes one column. Type is an opaque label; cell values are
// never checked against it.
type ColumnDef struct {
	Name        string
	Type        string
	Constraints Constraint
}

func (c ColumnDef) IsPrimaryKey() bool { return c.Constraints.Has(PrimaryKey) }
func (c ColumnDef) IsUnique() bool     { return c.Constraints.Has(Unique) }
func (c ColumnDef) IsNotNull() bool    { return c.Constraints.Has(NotNull) }

// RequiresUniqueValue reports whether the column keeps a set of seen values.
func (c ColumnDef) RequiresUniqueValue() bool { return c.IsPrimaryKey() || c.IsUnique() }

// Row is one stored tuple: one text cell per column, in definition order.
type Row []string

func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

type Schema struct {
	Cols []ColumnDef
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColumnIndex resolves a column name with an exact, case-sensitive match.
func (s Schema) ColumnIndex(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// PrimaryKeyIndex returns the position of the primary key column, or -1.
func (s Schema) PrimaryKeyIndex() int {
	for i := range s.Cols {
		if s.Cols[i].IsPrimaryKey() {
			return i
		}
	}
	return -1
}

func (s Schema) Clone() Schema {
	cols := make([]ColumnDef, len(s.Cols))
	copy(cols, s.Cols)
	return Schema{Cols: cols}
}
