package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/tuannm99/soliddb/internal/catalog"
	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/engine"
	"github.com/tuannm99/soliddb/internal/record"
	"github.com/tuannm99/soliddb/internal/sql/parser"
	"github.com/tuannm99/soliddb/internal/storage"
)

var ErrNoDatabase = errors.New("no database selected, use CREATE DATABASE or USE first")

// Session executes shell statements against the current database. Databases
// live in sub-directories of Root.
type Session struct {
	Root string

	fs              afero.Fs
	logger          *slog.Logger
	checkpointEvery int

	db *engine.Database
}

type Option func(*Session)

func WithFs(fs afero.Fs) Option {
	return func(s *Session) { s.fs = fs }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithCheckpointEvery(n int) Option {
	return func(s *Session) { s.checkpointEvery = n }
}

func NewSession(root string, opts ...Option) *Session {
	s := &Session{
		Root:            root,
		fs:              afero.NewOsFs(),
		logger:          slog.Default(),
		checkpointEvery: engine.DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) engineOptions() []engine.Option {
	return []engine.Option{
		engine.WithFs(s.fs),
		engine.WithLogger(s.logger),
		engine.WithCheckpointEvery(s.checkpointEvery),
	}
}

// Current returns the name of the selected database, or "".
func (s *Session) Current() string {
	if s.db == nil {
		return ""
	}
	return s.db.Name()
}

// Exec parses and runs one statement. An empty line is a no-op.
func (s *Session) Exec(line string) (*Result, error) {
	stmt, err := parser.Parse(line)
	if err != nil {
		if errors.Is(err, parser.ErrEmpty) {
			return &Result{}, nil
		}
		return nil, err
	}

	switch st := stmt.(type) {
	case *parser.CreateDatabaseStmt:
		return s.createDatabase(st, line)
	case *parser.UseDatabaseStmt:
		return s.useDatabase(st)
	case *parser.ListDatabasesStmt:
		return s.listDatabases()
	case *parser.HelpStmt:
		return &Result{Message: helpText}, nil
	case *parser.ExitStmt:
		return s.exit()
	}

	if s.db == nil {
		return nil, ErrNoDatabase
	}

	switch st := stmt.(type) {
	case *parser.CreateTableStmt:
		if err := s.db.CreateTable(st.TableName, st.RecordColumns()); err != nil {
			return nil, err
		}
		res := &Result{Message: fmt.Sprintf("Table '%s' created successfully.", st.TableName)}
		s.logWrite(res, line)
		return res, nil

	case *parser.InsertStmt:
		if err := s.db.Insert(st.TableName, st.Values); err != nil {
			return nil, err
		}
		res := &Result{Message: "Row inserted successfully."}
		s.logWrite(res, line)
		return res, nil

	case *parser.SelectStmt:
		return s.selectRows(st)
	case *parser.ListTablesStmt:
		return s.listTables(), nil
	case *parser.DescribeStmt:
		return s.describe(st)
	case *parser.CheckpointStmt:
		if err := s.db.Checkpoint(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return &Result{Message: "Changes committed to disk successfully.", Checkpointed: true}, nil
	case *parser.RollbackStmt:
		return s.rollback()
	case *parser.LogStmt:
		return s.showLog()
	}

	return nil, fmt.Errorf("%w: %T", parser.ErrUnsupported, stmt)
}

// logWrite hands a successful write to the operation log. Log or checkpoint
// failures do not undo the write; they are reported in the message.
func (s *Session) logWrite(res *Result, line string) {
	out, err := s.db.LogOperation(line)
	if out.Checkpointed {
		res.Checkpointed = true
		res.addLine("Checkpoint: Database state persisted to disk.")
	}
	if err != nil {
		s.logger.Warn("log operation", "db", s.db.Name(), "err", err)
		res.addLine("Warning: " + err.Error())
	}
}

func (s *Session) dbPath(name string) string {
	return filepath.Join(s.Root, name)
}

func (s *Session) createDatabase(st *parser.CreateDatabaseStmt, line string) (*Result, error) {
	path := s.dbPath(st.Name)
	if storage.NewDir(s.fs, path).Exists(catalog.FileName) {
		return nil, fmt.Errorf("database '%s' already exists", st.Name)
	}

	db, err := engine.New(path, s.engineOptions()...)
	if err != nil {
		return nil, err
	}
	// make it visible to LIST DATABASES and USE right away
	if err := db.Save(); err != nil {
		_ = db.Discard()
		return nil, err
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close database", "db", s.db.Name(), "err", err)
		}
	}
	s.db = db

	res := &Result{Message: fmt.Sprintf("Database '%s' created successfully.", st.Name)}
	s.logWrite(res, line)
	return res, nil
}

func (s *Session) useDatabase(st *parser.UseDatabaseStmt) (*Result, error) {
	if s.db != nil {
		if err := s.db.Save(); err != nil {
			s.logger.Warn("save before switching database", "db", s.db.Name(), "err", err)
		}
	}

	db, err := engine.Load(s.dbPath(st.Name), s.engineOptions()...)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, fmt.Errorf("database '%s' does not exist: %w", st.Name, err)
		}
		return nil, err
	}

	if s.db != nil {
		_ = s.db.Discard()
	}
	s.db = db

	res := &Result{Message: fmt.Sprintf("Using database '%s'.", st.Name)}
	if n := len(db.Warnings()); n > 0 {
		res.addLine(fmt.Sprintf("Warning: %d problem(s) while loading, see log.", n))
	}
	return res, nil
}

func (s *Session) listDatabases() (*Result, error) {
	names, err := engine.ListDatabases(s.fs, s.Root)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: []string{"database"}}
	for _, n := range names {
		res.Rows = append(res.Rows, record.Row{n})
	}
	if len(names) == 0 {
		res.Message = "No databases found."
	}
	return res, nil
}

func (s *Session) listTables() *Result {
	res := &Result{Columns: []string{"table"}}
	for _, n := range s.db.TableNames() {
		res.Rows = append(res.Rows, record.Row{n})
	}
	if len(res.Rows) == 0 {
		res.Message = "No tables found."
	}
	return res
}

func (s *Session) describe(st *parser.DescribeStmt) (*Result, error) {
	cols, n, err := s.db.Describe(st.TableName)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: []string{"column", "type", "constraints"}}
	for _, c := range cols {
		res.Rows = append(res.Rows, record.Row{c.Name, c.Type, c.Constraints.String()})
	}
	res.Message = fmt.Sprintf("%d row(s) stored.", n)
	return res, nil
}

func (s *Session) selectRows(st *parser.SelectStmt) (*Result, error) {
	if !s.db.TableExists(st.TableName) {
		return nil, &dberr.NotFoundError{Kind: "table", Name: st.TableName}
	}
	rs := s.db.Select(st.TableName, st.Columns, st.Where)

	res := &Result{Columns: rs.Columns, Rows: rs.Rows}
	if rs.Len() == 0 {
		res.Message = "No results found."
	} else {
		res.Message = fmt.Sprintf("%d row(s) returned.", rs.Len())
	}
	return res, nil
}

// rollback drops every change since the last checkpoint by reloading the
// committed state. A database that was never saved comes back empty.
func (s *Session) rollback() (*Result, error) {
	path := s.db.Dir()
	_ = s.db.Discard()
	s.db = nil

	db, err := engine.Load(path, s.engineOptions()...)
	if errors.Is(err, dberr.ErrNotFound) && storage.NewDir(s.fs, path).IsDir() {
		db, err = engine.New(path, s.engineOptions()...)
	}
	if err != nil {
		return nil, fmt.Errorf("rollback: could not reload database state: %w", err)
	}
	s.db = db
	return &Result{Message: "Changes rolled back successfully. Database restored to last committed state."}, nil
}

func (s *Session) showLog() (*Result, error) {
	entries, err := s.db.AuditLog()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: []string{"#", "operation"}}
	for i, e := range entries {
		res.Rows = append(res.Rows, record.Row{strconv.Itoa(i + 1), e})
	}
	res.Message = fmt.Sprintf("%d operation(s) pending checkpoint.", s.db.Pending())
	return res, nil
}

func (s *Session) exit() (*Result, error) {
	res := &Result{Exit: true}
	if s.db != nil {
		res.addLine("Saving database before exit...")
		if err := s.db.Checkpoint(); err != nil {
			return res, fmt.Errorf("exit: %w", err)
		}
		res.Checkpointed = true
	}
	res.addLine("Goodbye!")
	return res, nil
}

// Close saves and closes the current database, if any.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const helpText = `SolidDB - Simple Relational Database
Available commands:
  CREATE DATABASE <name> - Create a new database
  USE <database> - Switch to the specified database
  CREATE TABLE <name> (<column1> <type1> [constraints], ...) - Create a new table
      Column constraints: PRIMARY KEY, UNIQUE, NOT NULL
      Example: CREATE TABLE users (id INT PRIMARY KEY, name STRING NOT NULL, email STRING UNIQUE)
  INSERT INTO <table> VALUES (<value1>, <value2>, ...) - Insert a row into a table
  SELECT <column1>, <column2>, ... FROM <table> [WHERE <column>=<value>] - Query data from a table
  DESCRIBE <table> - Show the columns of a table
  LIST DATABASES - Show all available databases
  LIST TABLES - Show all tables in the current database
  COMMIT - Save all changes to disk (same as CHECKPOINT and SAVE)
  ROLLBACK - Revert changes since last commit/checkpoint
  LOG - Show the operation log of the current database
  HELP - Show this help message
  EXIT - Exit the program (same as QUIT)

Data Persistence:
  - Write operations are logged immediately to transactions.log
  - Database state is checkpointed after every N write operations (storage.checkpoint_every)
  - Use COMMIT to save changes immediately
  - Use ROLLBACK to revert uncommitted changes
  - All changes are saved when you exit`
