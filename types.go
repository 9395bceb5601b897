// Package soliddb is the top-level facade for embedding the SolidDB engine.
package soliddb

import (
	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/engine"
	"github.com/tuannm99/soliddb/internal/query"
	"github.com/tuannm99/soliddb/internal/record"
)

type (
	Database   = engine.Database
	Option     = engine.Option
	LogOutcome = engine.LogOutcome

	ColumnDef  = record.ColumnDef
	Constraint = record.Constraint
	Row        = record.Row
	ResultSet  = query.ResultSet
)

const (
	PrimaryKey = record.PrimaryKey
	Unique     = record.Unique
	NotNull    = record.NotNull

	DefaultCheckpointEvery = engine.DefaultCheckpointEvery
)

// Error sentinels, usable with errors.Is.
var (
	ErrSchema     = dberr.ErrSchema
	ErrArity      = dberr.ErrArity
	ErrConstraint = dberr.ErrConstraint
	ErrNotFound   = dberr.ErrNotFound
	ErrIO         = dberr.ErrIO
	ErrFormat     = dberr.ErrFormat

	ErrDatabaseClosed = engine.ErrDatabaseClosed
)

var (
	WithFs              = engine.WithFs
	WithLogger          = engine.WithLogger
	WithCheckpointEvery = engine.WithCheckpointEvery
	ListDatabases       = engine.ListDatabases
)

// Create returns an empty database bound to dir.
func Create(dir string, opts ...Option) (*Database, error) {
	return engine.New(dir, opts...)
}

// Open loads the database last committed in dir.
func Open(dir string, opts ...Option) (*Database, error) {
	return engine.Load(dir, opts...)
}
