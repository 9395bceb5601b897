// Package query holds the read-path logic of a table scan: which columns to
// emit and which rows to keep.
package query

import "github.com/tuannm99/soliddb/internal/record"

// ResultSet is what a SELECT returns to the caller.
type ResultSet struct {
	Columns []string
	Rows    []record.Row
}

func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Projection is a resolved column list: positions into the stored row and the
// matching header names.
type Projection struct {
	Indexes []int
	Names   []string
}

// Project resolves requested column names against the schema. Names that do
// not resolve are dropped. An empty request selects every column in
// definition order.
func Project(schema record.Schema, requested []string) Projection {
	var p Projection
	if len(requested) == 0 {
		p.Indexes = make([]int, schema.NumCols())
		p.Names = make([]string, schema.NumCols())
		for i, c := range schema.Cols {
			p.Indexes[i] = i
			p.Names[i] = c.Name
		}
		return p
	}

	for _, name := range requested {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		p.Indexes = append(p.Indexes, idx)
		p.Names = append(p.Names, schema.Cols[idx].Name)
	}
	return p
}

// Apply builds the projected copy of row.
func (p Projection) Apply(row record.Row) record.Row {
	out := make(record.Row, len(p.Indexes))
	for i, idx := range p.Indexes {
		out[i] = row[idx]
	}
	return out
}

// SeqScanPlan is a full scan with projection and an optional filter.
type SeqScanPlan struct {
	Projection Projection
	Filter     Predicate
}

// BuildSeqScan resolves columns and parses the condition for one scan.
func BuildSeqScan(schema record.Schema, columns []string, where string) *SeqScanPlan {
	return &SeqScanPlan{
		Projection: Project(schema, columns),
		Filter:     ParseCondition(schema, where),
	}
}

// Run evaluates the plan over rows in the order given.
func (p *SeqScanPlan) Run(rows []record.Row) *ResultSet {
	rs := &ResultSet{Columns: p.Projection.Names}
	for _, row := range rows {
		if !p.Filter.Match(row) {
			continue
		}
		rs.Rows = append(rs.Rows, p.Projection.Apply(row))
	}
	return rs
}
