package executor

import "github.com/tuannm99/soliddb/internal/record"

// Result is the generic statement result returned to the caller.
type Result struct {
	Columns []string
	Rows    []record.Row

	// Message is the human readable outcome, possibly several lines.
	Message string

	// Checkpointed is set when the statement caused a successful checkpoint.
	Checkpointed bool

	// Exit asks the shell to stop.
	Exit bool
}

func (r *Result) addLine(line string) {
	if r.Message == "" {
		r.Message = line
		return
	}
	r.Message += "\n" + line
}
