package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tuannm99/soliddb/internal"
	"github.com/tuannm99/soliddb/internal/sql/executor"
	"github.com/tuannm99/soliddb/internal/wal"
)

// ---- History (own file) ----

type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(stmt string) error {
	stmt = wal.CompactLine(stmt)
	if stmt == "" || h.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, stmt); err != nil {
		return err
	}
	h.lines = append(h.lines, stmt)
	return nil
}

func (h *History) Print(w io.Writer, last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	for i := len(h.lines) - last; i < len(h.lines); i++ {
		fmt.Fprintf(w, "%5d  %s\n", i+1, h.lines[i])
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".soliddb_history"
	}
	return filepath.Join(home, ".soliddb_history")
}

// ---- REPL helpers ----

// statementComplete reports whether every '(' outside double quotes has been
// closed, so a CREATE TABLE can span several lines.
func statementComplete(buf string) bool {
	inQuote := false
	depth := 0
	for _, r := range buf {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '(':
			depth++
		case r == ')':
			depth--
		}
	}
	return depth <= 0
}

func printResult(w io.Writer, res *executor.Result) {
	if len(res.Columns) > 0 {
		printTable(w, res)
	}
	if res.Message != "" {
		fmt.Fprintln(w, res.Message)
	}
}

func printTable(w io.Writer, res *executor.Result) {
	cols := res.Columns

	// 1) compute widths
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range res.Rows {
		for i := range cols {
			if i < len(row) && len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			v := ""
			if i < len(values) {
				v = values[i]
			}
			fmt.Fprint(w, padRight(v, widths[i]))
		}
		fmt.Fprintln(w)
	}

	// 2) header
	printRow(cols)

	// 3) separator ----+----
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)

	// 4) rows
	for _, row := range res.Rows {
		printRow(row)
	}
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func promptFor(s *executor.Session, c *internal.SolidConfig) string {
	if name := s.Current(); name != "" {
		return name + "> "
	}
	return c.Shell.Prompt
}

func runShell(s *executor.Session, c *internal.SolidConfig) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	histPath := c.Shell.HistoryFile
	if histPath == "" {
		histPath = defaultHistoryPath()
	}
	h := NewHistory(histPath)
	_ = h.Load(c.Shell.HistoryMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFor(s, c),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// preload history into readline so the arrow keys work immediately
	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	out := rl.Stdout()
	fmt.Fprintln(out, "Welcome to SolidDB!")
	fmt.Fprintln(out, `Type HELP for a list of commands or EXIT to quit. \history prints past statements.`)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears the current buffer
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(promptFor(s, c))
				continue
			}
			fmt.Fprintln(out, "^C")
			continue
		}
		if err != nil {
			// EOF: Close saves the current database
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && line == `\history` {
			h.Print(out, 50)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := buf.String()
		buf.Reset()

		_ = h.Append(stmt)
		_ = rl.SaveHistory(wal.CompactLine(stmt))

		res, err := s.Exec(stmt)
		if res != nil {
			printResult(out, res)
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		rl.SetPrompt(promptFor(s, c))
		if res != nil && res.Exit {
			return nil
		}
	}
}
