// Package catalog reads and writes a database's metadata file: the table
// count on the first line, then one table name per line.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/soliddb/internal/dberr"
)

// FileName is the metadata file inside a database directory.
const FileName = "metadata.db"

var ErrShortMetadata = errors.New("fewer table names than declared")

// Encode renders the metadata file for the given table names.
func Encode(names []string) []byte {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(names)))
	b.WriteByte('\n')
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Decode parses a metadata file into table names, in file order.
func Decode(data []byte) ([]string, error) {
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	count, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || count < 0 {
		return nil, &dberr.FormatError{Source: FileName, Line: 1, Err: fmt.Errorf("invalid table count %q", lines[0])}
	}

	if len(lines)-1 < count {
		return nil, &dberr.FormatError{
			Source: FileName,
			Err:    fmt.Errorf("%w: want %d, got %d", ErrShortMetadata, count, len(lines)-1),
		}
	}

	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		names = append(names, lines[i])
	}
	return names, nil
}
