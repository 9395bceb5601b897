package parser

import "github.com/tuannm99/soliddb/internal/record"

// Statement is the root interface for all shell statements.
type Statement interface {
	stmtNode()
}

// ----- DATABASE -----
type CreateDatabaseStmt struct {
	Name string
}

func (*CreateDatabaseStmt) stmtNode() {}

type UseDatabaseStmt struct {
	Name string
}

func (*UseDatabaseStmt) stmtNode() {}

type ListDatabasesStmt struct{}

func (*ListDatabasesStmt) stmtNode() {}

// ----- CREATE TABLE -----
type ColumnDef struct {
	Name        string
	Type        string // opaque label, never enforced
	Constraints record.Constraint
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// RecordColumns converts the parsed columns to the storage model.
func (s *CreateTableStmt) RecordColumns() []record.ColumnDef {
	out := make([]record.ColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = record.ColumnDef{Name: c.Name, Type: c.Type, Constraints: c.Constraints}
	}
	return out
}

type ListTablesStmt struct{}

func (*ListTablesStmt) stmtNode() {}

type DescribeStmt struct {
	TableName string
}

func (*DescribeStmt) stmtNode() {}

// ----- INSERT -----
type InsertStmt struct {
	TableName string
	Values    []string
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	TableName string
	Columns   []string // empty means every column
	Where     string   // passed to the table verbatim
}

func (*SelectStmt) stmtNode() {}

// ----- session control -----

// CheckpointStmt covers CHECKPOINT, SAVE and COMMIT.
type CheckpointStmt struct{}

func (*CheckpointStmt) stmtNode() {}

type RollbackStmt struct{}

func (*RollbackStmt) stmtNode() {}

// LogStmt shows the operation log of the current database.
type LogStmt struct{}

func (*LogStmt) stmtNode() {}

type HelpStmt struct{}

func (*HelpStmt) stmtNode() {}

type ExitStmt struct{}

func (*ExitStmt) stmtNode() {}
