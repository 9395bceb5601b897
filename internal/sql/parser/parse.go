package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tuannm99/soliddb/internal/record"
)

var (
	ErrEmpty       = errors.New("empty statement")
	ErrUnsupported = errors.New("unsupported statement")
)

// parseIdent validates an identifier (db/table/column name).
// Rules (simple):
//   - must be exactly one token (no spaces)
//   - first char: letter or '_'
//   - rest: letter/digit/'_'
//
// Database and table names become file names, so nothing else is allowed.
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing identifier")
	}

	parts := strings.Fields(s)
	if len(parts) != 1 {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	id := parts[0]

	for i, r := range id {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return "", fmt.Errorf("invalid identifier %q", id)
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", fmt.Errorf("invalid identifier %q", id)
		}
	}

	return id, nil
}

// Parse parses a single shell statement. Keywords are case-insensitive and
// the trailing ';' is optional.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, ErrEmpty
	}

	up := strings.ToUpper(s)
	first := strings.Fields(up)[0]

	switch {
	// database
	case strings.HasPrefix(up, "CREATE DATABASE"):
		return parseCreateDatabase(s)
	case first == "USE":
		return parseUseDatabase(s)
	case up == "LIST DATABASES" || up == "SHOW DATABASES":
		return &ListDatabasesStmt{}, nil

	// table
	case strings.HasPrefix(up, "CREATE TABLE"):
		return parseCreateTable(s)
	case up == "LIST TABLES" || up == "SHOW TABLES":
		return &ListTablesStmt{}, nil
	case first == "DESCRIBE" || first == "DESC":
		return parseDescribe(s)

	case strings.HasPrefix(up, "INSERT INTO"):
		return parseInsert(s)
	case first == "SELECT":
		return parseSelect(s)

	// session
	case up == "CHECKPOINT" || up == "SAVE" || up == "COMMIT":
		return &CheckpointStmt{}, nil
	case up == "ROLLBACK":
		return &RollbackStmt{}, nil
	case up == "LOG":
		return &LogStmt{}, nil
	case up == "HELP":
		return &HelpStmt{}, nil
	case up == "EXIT" || up == "QUIT":
		return &ExitStmt{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
}

func parseCreateDatabase(sql string) (Statement, error) {
	rest := strings.TrimSpace(sql[len("CREATE DATABASE"):])
	name, err := parseIdent(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE DATABASE syntax: %w", err)
	}
	return &CreateDatabaseStmt{Name: name}, nil
}

func parseUseDatabase(sql string) (Statement, error) {
	rest := strings.TrimSpace(sql[len("USE"):])
	name, err := parseIdent(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid USE syntax: %w", err)
	}
	return &UseDatabaseStmt{Name: name}, nil
}

func parseDescribe(sql string) (Statement, error) {
	kw := strings.Fields(sql)[0] // DESCRIBE or DESC
	name, err := parseIdent(sql[len(kw):])
	if err != nil {
		return nil, fmt.Errorf("invalid DESCRIBE syntax: %w", err)
	}
	return &DescribeStmt{TableName: name}, nil
}

func parseCreateTable(sql string) (Statement, error) {
	// "CREATE TABLE users (id INT PRIMARY KEY, email STRING UNIQUE, name STRING NOT NULL)"
	withoutPrefix := strings.TrimSpace(sql[len("CREATE TABLE"):])
	open := strings.Index(withoutPrefix, "(")
	closing := strings.LastIndex(withoutPrefix, ")")
	if open < 0 || closing < open {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax")
	}
	if strings.TrimSpace(withoutPrefix[closing+1:]) != "" {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: unexpected %q", withoutPrefix[closing+1:])
	}

	tableName, err := parseIdent(withoutPrefix[:open])
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}

	defPart := strings.TrimSpace(withoutPrefix[open+1 : closing])
	if defPart == "" {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: empty column list")
	}

	var cols []ColumnDef
	for _, def := range strings.Split(defPart, ",") {
		col, err := parseColumnDef(def)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return &CreateTableStmt{
		TableName: tableName,
		Columns:   cols,
	}, nil
}

func parseColumnDef(def string) (ColumnDef, error) {
	toks := strings.Fields(def)
	if len(toks) < 2 {
		return ColumnDef{}, fmt.Errorf("invalid column def: %q", strings.TrimSpace(def))
	}

	colName, err := parseIdent(toks[0])
	if err != nil {
		return ColumnDef{}, fmt.Errorf("invalid column name: %w", err)
	}
	col := ColumnDef{Name: colName, Type: toks[1]}

	for i := 2; i < len(toks); i++ {
		word := strings.ToUpper(toks[i])
		next := ""
		if i+1 < len(toks) {
			next = strings.ToUpper(toks[i+1])
		}

		switch {
		case word == "PRIMARY" && next == "KEY":
			col.Constraints |= record.PrimaryKey
			i++
		case word == "NOT" && next == "NULL":
			col.Constraints |= record.NotNull
			i++
		case word == "UNIQUE":
			col.Constraints |= record.Unique
		default:
			return ColumnDef{}, fmt.Errorf("unknown constraint %q on column %q", toks[i], colName)
		}
	}
	return col, nil
}

func parseInsert(sql string) (Statement, error) {
	// "INSERT INTO users VALUES (1, "a@x", Alice)"
	rest := strings.TrimSpace(sql[len("INSERT INTO"):])

	tablePart, valPart := splitKeyword(rest, "VALUES")
	if strings.TrimSpace(valPart) == "" {
		return nil, fmt.Errorf("invalid INSERT syntax")
	}

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, fmt.Errorf("invalid INSERT syntax: %w", err)
	}

	valPart = strings.TrimSpace(valPart)
	if !strings.HasPrefix(valPart, "(") || !strings.HasSuffix(valPart, ")") {
		return nil, fmt.Errorf("invalid INSERT values syntax")
	}
	valPart = strings.TrimSpace(valPart[1 : len(valPart)-1])

	var values []string
	if valPart != "" {
		for _, rv := range splitComma(valPart) {
			values = append(values, unquote(strings.TrimSpace(rv)))
		}
	}

	return &InsertStmt{
		TableName: tableName,
		Values:    values,
	}, nil
}

func parseSelect(sql string) (Statement, error) {
	// "SELECT *|c1, c2 FROM users [WHERE col=literal]"
	rest := strings.TrimSpace(sql[len("SELECT"):])
	colPart, fromPart := splitKeyword(rest, "FROM")
	if strings.TrimSpace(fromPart) == "" {
		return nil, fmt.Errorf("invalid SELECT syntax: missing FROM clause")
	}

	var cols []string
	colPart = strings.TrimSpace(colPart)
	switch colPart {
	case "":
		return nil, fmt.Errorf("invalid SELECT syntax: missing column list")
	case "*":
	default:
		for _, c := range strings.Split(colPart, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
	}

	tablePart, wherePart := splitKeyword(fromPart, "WHERE")
	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, fmt.Errorf("invalid SELECT syntax: %w", err)
	}

	return &SelectStmt{TableName: tableName, Columns: cols, Where: wherePart}, nil
}

// unquote strips one pair of surrounding double quotes.
func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

// splitKeyword splits "X <keyword> Y" case-insensitively.
// returns (X, Y). If keyword not present => (s, "").
//
// NOTE: requires spaces around keyword (" WHERE ").
func splitKeyword(s, keyword string) (string, string) {
	up := strings.ToUpper(s)
	k := " " + strings.ToUpper(keyword) + " "
	idx := strings.Index(up, k)
	if idx < 0 {
		return s, ""
	}
	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+len(k):])
	return left, right
}

// splitComma splits a comma-separated list, ignoring commas inside double
// quotes. Empty items are kept.
func splitComma(s string) []string {
	parts := []string{}
	cur := strings.Builder{}
	inQuote := false
	for _, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case ',':
			if inQuote {
				cur.WriteRune(r)
			} else {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}
