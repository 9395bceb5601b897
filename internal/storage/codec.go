package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/heap"
	"github.com/tuannm99/soliddb/internal/record"
)

// TableExt is the file extension of a serialized table.
const TableExt = ".tbl"

var (
	ErrMissingLine = errors.New("unexpected end of data")
	ErrBadCount    = errors.New("invalid count")
)

// Serialize renders a table in its line-oriented text form:
//
//	<table name>
//	<column count>
//	<col name>,<col type>,<constraint bitmask>   (one per column)
//	<row count>
//	<cells joined by ','>                        (one per row)
//
// Every line ends with '\n'. Cells are not escaped, so a value holding a comma
// does not survive a round trip. Line breaks never reach a cell: Table.Insert
// rejects them.
func Serialize(t *heap.Table) []byte {
	var b strings.Builder

	b.WriteString(t.Name)
	b.WriteByte('\n')

	cols := t.Schema.Cols
	b.WriteString(strconv.Itoa(len(cols)))
	b.WriteByte('\n')
	for _, c := range cols {
		b.WriteString(c.Name)
		b.WriteByte(',')
		b.WriteString(c.Type)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(c.Constraints)))
		b.WriteByte('\n')
	}

	b.WriteString(strconv.Itoa(t.RowCount()))
	b.WriteByte('\n')
	_ = t.Scan(func(_ heap.RowID, row record.Row) error {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
		return nil
	})

	return []byte(b.String())
}

// lineReader hands out lines with their 1-based numbers.
type lineReader struct {
	lines []string
	next  int
}

func newLineReader(data []byte) *lineReader {
	s := string(data)
	// the final '\n' terminates the last line, it does not start a new one
	s = strings.TrimSuffix(s, "\n")
	var lines []string
	if len(data) > 0 {
		lines = strings.Split(s, "\n")
	}
	return &lineReader{lines: lines}
}

func (r *lineReader) read() (string, int, bool) {
	if r.next >= len(r.lines) {
		return "", r.next + 1, false
	}
	r.next++
	return r.lines[r.next-1], r.next, true
}

func (r *lineReader) readCount() (int, int, error) {
	line, no, ok := r.read()
	if !ok {
		return 0, no, ErrMissingLine
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 0 {
		return 0, no, fmt.Errorf("%w %q", ErrBadCount, line)
	}
	return n, no, nil
}

// parseColumn reads "name,type,mask". A missing or non-numeric mask is 0 and
// fields after the third are ignored.
func parseColumn(line string) record.ColumnDef {
	parts := strings.Split(line, ",")
	col := record.ColumnDef{Name: parts[0]}
	if len(parts) > 1 {
		col.Type = parts[1]
	}
	if len(parts) > 2 {
		if mask, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && mask >= 0 && mask <= 0xff {
			col.Constraints = record.Constraint(mask)
		}
	}
	return col
}

// Deserialize rebuilds a table from its text form. Rows are replayed through
// Table.Insert so that every index is rebuilt.
//
// A broken header yields (nil, *dberr.FormatError). A row that cannot be
// inserted is skipped with a *dberr.FormatError and loading goes on; those
// errors are combined and returned together with the table.
func Deserialize(data []byte) (*heap.Table, error) {
	r := newLineReader(data)
	source := "table"

	name, no, ok := r.read()
	if !ok {
		return nil, &dberr.FormatError{Source: source, Line: no, Err: ErrMissingLine}
	}
	source = name + TableExt

	colCount, no, err := r.readCount()
	if err != nil {
		return nil, &dberr.FormatError{Source: source, Line: no, Err: fmt.Errorf("column count: %w", err)}
	}

	// colCount comes from disk; grow with the lines actually present
	var cols []record.ColumnDef
	for i := 0; i < colCount; i++ {
		line, no, ok := r.read()
		if !ok {
			return nil, &dberr.FormatError{Source: source, Line: no, Err: fmt.Errorf("column %d: %w", i+1, ErrMissingLine)}
		}
		cols = append(cols, parseColumn(line))
	}

	tbl, err := heap.NewTable(name, cols)
	if err != nil {
		return nil, &dberr.FormatError{Source: source, Err: err}
	}

	rowCount, no, err := r.readCount()
	if err != nil {
		return nil, &dberr.FormatError{Source: source, Line: no, Err: fmt.Errorf("row count: %w", err)}
	}

	var rowErrs error
	for i := 0; i < rowCount; i++ {
		line, no, ok := r.read()
		if !ok {
			rowErrs = multierr.Append(rowErrs, &dberr.FormatError{
				Source: source,
				Line:   no,
				Err:    fmt.Errorf("expected %d rows, found %d: %w", rowCount, i, ErrMissingLine),
			})
			break
		}
		if _, err := tbl.Insert(strings.Split(line, ",")); err != nil {
			rowErrs = multierr.Append(rowErrs, &dberr.FormatError{Source: source, Line: no, Err: err})
		}
	}

	return tbl, rowErrs
}
