package storage

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tuannm99/soliddb/internal/dberr"
)

const (
	FileMode0644 = 0o644 // rw-r--r--
	FileMode0755 = 0o755 // rwxr-xr-x

	TempSuffix = ".tmp"
)

// Dir is one database directory on a filesystem. Every durable write goes
// through a "<name>.tmp" sibling that is renamed into place by Commit.
type Dir struct {
	Fs   afero.Fs
	Path string
}

func NewDir(fs afero.Fs, path string) Dir {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return Dir{Fs: fs, Path: filepath.Clean(path)}
}

// File returns the full path of name inside the directory.
func (d Dir) File(name string) string {
	return filepath.Join(d.Path, name)
}

func (d Dir) TempFile(name string) string {
	return d.File(name) + TempSuffix
}

func (d Dir) MkdirAll() error {
	return dberr.IO("mkdir", d.Path, d.Fs.MkdirAll(d.Path, FileMode0755))
}

// WriteTemp writes data to name's temp path, truncating any leftover, and
// syncs it before closing.
func (d Dir) WriteTemp(name string, data []byte) error {
	path := d.TempFile(name)

	f, err := d.Fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode0644)
	if err != nil {
		return dberr.IO("open", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return dberr.IO("write", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return dberr.IO("sync", path, err)
	}
	return dberr.IO("close", path, f.Close())
}

// Commit renames name's temp file over the committed file.
func (d Dir) Commit(name string) error {
	return dberr.IO("rename", d.TempFile(name), d.Fs.Rename(d.TempFile(name), d.File(name)))
}

// RemoveTemp deletes name's temp file. A temp file that does not exist is not
// an error.
func (d Dir) RemoveTemp(name string) error {
	err := d.Fs.Remove(d.TempFile(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return dberr.IO("remove", d.TempFile(name), err)
}

// ReadFile reads a committed file. A missing file is reported as
// dberr.ErrNotFound.
func (d Dir) ReadFile(name string) ([]byte, error) {
	data, err := afero.ReadFile(d.Fs, d.File(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &dberr.NotFoundError{Kind: "file", Name: d.File(name)}
		}
		return nil, dberr.IO("read", d.File(name), err)
	}
	return data, nil
}

func (d Dir) Exists(name string) bool {
	ok, err := afero.Exists(d.Fs, d.File(name))
	return err == nil && ok
}

// IsDir reports whether the directory itself exists.
func (d Dir) IsDir() bool {
	ok, err := afero.DirExists(d.Fs, d.Path)
	return err == nil && ok
}
