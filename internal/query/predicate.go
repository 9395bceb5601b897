package query

import (
	"strings"

	"github.com/tuannm99/soliddb/internal/record"
)

type predicateKind uint8

const (
	matchAll predicateKind = iota
	matchNone
	matchEqual
)

// Predicate is a single-equality row filter of the form column=literal.
type Predicate struct {
	kind   predicateKind
	column int
	value  string
}

// ParseCondition turns a WHERE text into a Predicate.
//
// An empty condition, or one without '=', keeps every row. The column name is
// everything before the first '=' and is not trimmed. A literal wrapped in
// double quotes has them removed. A column that does not resolve keeps no
// row.
func ParseCondition(schema record.Schema, where string) Predicate {
	pos := strings.IndexByte(where, '=')
	if where == "" || pos < 0 {
		return Predicate{kind: matchAll}
	}

	name := where[:pos]
	value := unquote(where[pos+1:])

	idx := schema.ColumnIndex(name)
	if idx < 0 {
		return Predicate{kind: matchNone}
	}
	return Predicate{kind: matchEqual, column: idx, value: value}
}

func (p Predicate) Match(row record.Row) bool {
	switch p.kind {
	case matchAll:
		return true
	case matchEqual:
		return p.column < len(row) && row[p.column] == p.value
	default:
		return false
	}
}

// unquote strips one pair of surrounding double quotes. A lone '"' is both
// the opening and the closing quote and yields "".
func unquote(v string) string {
	if v == "" || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	if len(v) < 2 {
		return ""
	}
	return v[1 : len(v)-1]
}
