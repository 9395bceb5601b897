package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/zhangyunhao116/skipmap"
	"go.uber.org/multierr"

	"github.com/tuannm99/soliddb/internal/catalog"
	"github.com/tuannm99/soliddb/internal/dberr"
	"github.com/tuannm99/soliddb/internal/heap"
	"github.com/tuannm99/soliddb/internal/query"
	"github.com/tuannm99/soliddb/internal/record"
	"github.com/tuannm99/soliddb/internal/storage"
	"github.com/tuannm99/soliddb/internal/wal"
)

// DefaultCheckpointEvery is the number of logged operations after which a
// checkpoint is taken.
const DefaultCheckpointEvery = 5

var ErrDatabaseClosed = errors.New("soliddb: database is closed")

type DatabaseOperation interface {
	CreateTable(name string, cols []record.ColumnDef) error
	Insert(table string, values []string) error
	Select(table string, columns []string, where string) *query.ResultSet
	LogOperation(op string) (LogOutcome, error)
	Checkpoint() error
	Close() error
}

var _ DatabaseOperation = (*Database)(nil)

// LogOutcome reports what LogOperation did.
type LogOutcome struct {
	// Pending is the number of operations logged since the last successful
	// checkpoint, after this call.
	Pending int

	// CheckpointTriggered is set when this operation reached the threshold.
	CheckpointTriggered bool

	// Checkpointed is set when the triggered checkpoint succeeded.
	Checkpointed bool
}

// Database owns a set of tables bound to one directory. Tables never leave
// the Database; every read returns copies.
type Database struct {
	name string
	dir  storage.Dir

	tables *skipmap.FuncMap[string, *heap.Table]
	log    *wal.Manager
	logger *slog.Logger

	checkpointEvery int
	pending         int

	warnings []error
	closed   bool
}

type options struct {
	fs              afero.Fs
	logger          *slog.Logger
	checkpointEvery int
}

type Option func(*options)

func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCheckpointEvery sets the checkpoint threshold. Values below 1 keep the
// default.
func WithCheckpointEvery(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.checkpointEvery = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		fs:              afero.NewOsFs(),
		logger:          slog.Default(),
		checkpointEvery: DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newDatabase(path string, o options) *Database {
	dir := storage.NewDir(o.fs, path)
	return &Database{
		name:            filepath.Base(dir.Path),
		dir:             dir,
		tables:          skipmap.NewFunc[string, *heap.Table](func(a, b string) bool { return a < b }),
		log:             wal.Open(o.fs, dir.Path),
		logger:          o.logger.With("db", filepath.Base(dir.Path)),
		checkpointEvery: o.checkpointEvery,
	}
}

// New creates an empty database bound to path, creating the directory when it
// does not exist. Nothing else is written until the first Save.
func New(path string, opts ...Option) (*Database, error) {
	db := newDatabase(path, buildOptions(opts))
	if err := db.dir.MkdirAll(); err != nil {
		return nil, err
	}
	return db, nil
}

// Load reconstructs the database committed in path. Tables whose file is
// missing or unreadable are skipped; see Warnings.
func Load(path string, opts ...Option) (*Database, error) {
	db := newDatabase(path, buildOptions(opts))
	if !db.dir.IsDir() {
		return nil, &dberr.NotFoundError{Kind: "database", Name: db.dir.Path}
	}

	data, err := db.dir.ReadFile(catalog.FileName)
	if err != nil {
		return nil, err
	}
	names, err := catalog.Decode(data)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		db.loadTable(name)
	}
	db.logger.Info("database loaded", "tables", db.tables.Len(), "warnings", len(db.warnings))
	return db, nil
}

func (db *Database) loadTable(name string) {
	file := name + storage.TableExt
	if _, ok := db.tables.Load(name); ok {
		db.warn(fmt.Errorf("table %q listed twice in %s", name, catalog.FileName), "skip table")
		return
	}

	data, err := db.dir.ReadFile(file)
	if err != nil {
		db.warn(err, "skip table", "table", name)
		return
	}

	tbl, err := storage.Deserialize(data)
	if tbl == nil {
		db.warn(err, "skip table", "table", name)
		return
	}
	if tbl.Name != name {
		db.warn(&dberr.FormatError{
			Source: file,
			Line:   1,
			Err:    fmt.Errorf("table file holds %q", tbl.Name),
		}, "skip table", "table", name)
		return
	}
	for _, rowErr := range multierr.Errors(err) {
		db.warn(rowErr, "skip row", "table", name)
	}
	db.tables.Store(name, tbl)
}

func (db *Database) warn(err error, msg string, args ...any) {
	db.warnings = append(db.warnings, err)
	db.logger.Warn(msg, append(args, "err", err)...)
}

// Warnings returns the problems Load skipped over.
func (db *Database) Warnings() []error {
	out := make([]error, len(db.warnings))
	copy(out, db.warnings)
	return out
}

func (db *Database) Name() string { return db.name }

func (db *Database) Dir() string { return db.dir.Path }

func (db *Database) CreateTable(name string, cols []record.ColumnDef) error {
	if db.closed {
		return ErrDatabaseClosed
	}
	if _, ok := db.tables.Load(name); ok {
		return &dberr.SchemaError{Table: name}
	}
	tbl, err := heap.NewTable(name, cols)
	if err != nil {
		return err
	}
	db.tables.Store(name, tbl)
	return nil
}

func (db *Database) Insert(table string, values []string) error {
	if db.closed {
		return ErrDatabaseClosed
	}
	tbl, ok := db.tables.Load(table)
	if !ok {
		return &dberr.NotFoundError{Kind: "table", Name: table}
	}
	_, err := tbl.Insert(values)
	return err
}

// Select runs a sequential scan over table. A missing table yields an empty
// result.
func (db *Database) Select(table string, columns []string, where string) *query.ResultSet {
	tbl, ok := db.tables.Load(table)
	if !ok {
		return &query.ResultSet{}
	}
	return tbl.Select(columns, where)
}

// Lookup reads one row through the primary key index.
func (db *Database) Lookup(table, pk string) (record.Row, bool) {
	tbl, ok := db.tables.Load(table)
	if !ok {
		return nil, false
	}
	return tbl.Lookup(pk)
}

func (db *Database) TableExists(name string) bool {
	_, ok := db.tables.Load(name)
	return ok
}

// TableNames lists the tables. Callers must not rely on the order.
func (db *Database) TableNames() []string {
	names := make([]string, 0, db.tables.Len())
	db.tables.Range(func(name string, _ *heap.Table) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Describe returns a table's columns and row count.
func (db *Database) Describe(name string) ([]record.ColumnDef, int, error) {
	tbl, ok := db.tables.Load(name)
	if !ok {
		return nil, 0, &dberr.NotFoundError{Kind: "table", Name: name}
	}
	return tbl.Columns(), tbl.RowCount(), nil
}

// Save writes the metadata file and every table file. All content goes to temp
// files first; committed files are replaced only after every write succeeded.
// The renames themselves are not atomic as a group.
func (db *Database) Save() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	if err := db.dir.MkdirAll(); err != nil {
		return err
	}

	names := db.TableNames()
	files := make([]string, 0, len(names)+1)
	files = append(files, catalog.FileName)
	payloads := make([][]byte, 0, len(names)+1)
	payloads = append(payloads, catalog.Encode(names))
	for _, name := range names {
		tbl, _ := db.tables.Load(name)
		files = append(files, name+storage.TableExt)
		payloads = append(payloads, storage.Serialize(tbl))
	}

	for i, file := range files {
		if err := db.dir.WriteTemp(file, payloads[i]); err != nil {
			return multierr.Append(err, db.removeTemps(files[:i+1]))
		}
	}

	// metadata first, then tables
	for i, file := range files {
		if err := db.dir.Commit(file); err != nil {
			return multierr.Append(err, db.removeTemps(files[i:]))
		}
	}
	return nil
}

func (db *Database) removeTemps(files []string) error {
	var err error
	for _, f := range files {
		err = multierr.Append(err, db.dir.RemoveTemp(f))
	}
	return err
}

// LogOperation records op in the operation log and counts it toward the next
// checkpoint, which it takes when the threshold is reached. The returned error
// combines a failed log write and a failed checkpoint; the operation is
// counted either way.
func (db *Database) LogOperation(op string) (LogOutcome, error) {
	if db.closed {
		return LogOutcome{}, ErrDatabaseClosed
	}

	var errs error
	if _, err := db.log.Append(op); err != nil {
		db.logger.Warn("operation log write failed", "err", err)
		errs = err
	}
	db.pending++

	out := LogOutcome{}
	if db.pending >= db.checkpointEvery {
		out.CheckpointTriggered = true
		if err := db.Checkpoint(); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			out.Checkpointed = true
		}
	}
	out.Pending = db.pending
	return out, errs
}

// Checkpoint saves the database and, on success, clears the pending counter
// and the in-memory operation buffer. A failed checkpoint changes neither.
func (db *Database) Checkpoint() error {
	db.logger.Info("checkpoint start", "pending", db.pending, "tables", db.tables.Len())
	if err := db.Save(); err != nil {
		db.logger.Warn("checkpoint failed", "err", err)
		return err
	}
	if err := db.log.Sync(); err != nil {
		db.logger.Warn("operation log sync failed", "err", err)
	}
	db.pending = 0
	db.log.Reset()
	db.logger.Info("checkpoint done")
	return nil
}

// Pending is the number of operations logged since the last checkpoint.
func (db *Database) Pending() int { return db.pending }

// Buffered returns the operations logged since the last checkpoint.
func (db *Database) Buffered() []string { return db.log.Buffered() }

// AuditLog returns every operation ever written to the log file, oldest first.
func (db *Database) AuditLog() ([]string, error) {
	return wal.ReadAll(db.dir.Fs, db.dir.Path)
}

// Close saves the database one last time and closes the operation log.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	err := db.Save()
	if err != nil {
		db.logger.Warn("final save failed", "err", err)
	}
	db.closed = true
	return multierr.Append(err, db.log.Close())
}

// Discard closes the operation log without saving.
func (db *Database) Discard() error {
	if db.closed {
		return nil
	}
	db.closed = true
	return db.log.Close()
}

// ListDatabases returns the sorted names of the directories under root that
// hold a metadata file. A missing root has no databases.
func ListDatabases(fs afero.Fs, root string) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.IO("readdir", root, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if storage.NewDir(fs, filepath.Join(root, e.Name())).Exists(catalog.FileName) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
