// Package wal keeps the operation log of a database: the raw text of every
// write command, buffered in memory and appended to transactions.log.
//
// The log is an audit trail. Nothing reads it back when a database is loaded;
// recovery relies on the last checkpoint only.
package wal

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tuannm99/soliddb/internal/dberr"
)

// FileName is the log file inside a database directory.
const FileName = "transactions.log"

var ErrClosed = errors.New("wal: log is closed")

type Manager struct {
	fs     afero.Fs
	path   string
	f      afero.File
	closed bool

	// lsn is the number of entries in the log file, including earlier runs.
	lsn uint64

	// buf holds entries appended since the last Reset.
	buf []string
}

// Open binds a log to dir. The file is opened on the first Append.
func Open(fs afero.Fs, dir string) *Manager {
	return &Manager{fs: fs, path: filepath.Join(dir, FileName)}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) open() error {
	if m.f != nil {
		return nil
	}
	if err := m.initLastLSN(); err != nil {
		return err
	}
	f, err := m.fs.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return dberr.IO("open", m.path, err)
	}
	m.f = f
	return nil
}

// Append records op. The entry always lands in the in-memory buffer; a failed
// file write is returned as a *dberr.IOError.
func (m *Manager) Append(op string) (uint64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	line := CompactLine(op)
	m.buf = append(m.buf, line)

	if err := m.open(); err != nil {
		return 0, err
	}
	if _, err := m.f.Write([]byte(line + "\n")); err != nil {
		return 0, dberr.IO("write", m.path, err)
	}
	m.lsn++
	return m.lsn, nil
}

// Buffered returns a copy of the entries appended since the last Reset.
func (m *Manager) Buffered() []string {
	out := make([]string, len(m.buf))
	copy(out, m.buf)
	return out
}

func (m *Manager) Len() int { return len(m.buf) }

// Reset clears the in-memory buffer. The file is left as it is.
func (m *Manager) Reset() { m.buf = m.buf[:0] }

func (m *Manager) LSN() uint64 { return m.lsn }

func (m *Manager) Sync() error {
	if m.f == nil {
		return nil
	}
	return dberr.IO("sync", m.path, m.f.Sync())
}

func (m *Manager) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return dberr.IO("close", m.path, err)
}

// initLastLSN continues numbering after the entries already on disk.
func (m *Manager) initLastLSN() error {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return dberr.IO("read", m.path, err)
	}
	m.lsn = uint64(bytes.Count(data, []byte{'\n'}))
	return nil
}

// ReadAll returns every entry of the log file in dir, oldest first. A missing
// file yields no entries.
func ReadAll(fs afero.Fs, dir string) ([]string, error) {
	path := filepath.Join(dir, FileName)
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.IO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return out, dberr.IO("read", path, err)
	}
	return out, nil
}

// CompactLine flattens s to a single line: every run of whitespace, line
// breaks and tabs included, becomes one space.
func CompactLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
