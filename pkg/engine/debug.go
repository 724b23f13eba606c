package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// DebugLevel defines verbosity
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugSQL
	DebugTrace
)

// DebugContext controls statement tracing and where dry runs are written.
type DebugContext struct {
	Level  DebugLevel
	Writer io.Writer

	ColorOutput bool
}

// DefaultDebugContext traces nothing and writes dry runs to stderr.
func DefaultDebugContext() *DebugContext {
	return &DebugContext{
		Level:       DebugNone,
		Writer:      os.Stderr,
		ColorOutput: true,
	}
}

// DebugContextFromEnv reads DSQL_DEBUG ("1" or "sql", "trace")
func DebugContextFromEnv() *DebugContext {
	dc := DefaultDebugContext()
	dc.Level = ParseDebugLevel(os.Getenv("DSQL_DEBUG"))
	return dc
}

// ParseDebugLevel maps a level name to a DebugLevel. Unknown names are
// DebugNone.
func ParseDebugLevel(s string) DebugLevel {
	switch s {
	case "1", "sql":
		return DebugSQL
	case "2", "trace":
		return DebugTrace
	}
	return DebugNone
}

// Log writes debug output
func (dc *DebugContext) Log(level DebugLevel, format string, args ...any) {
	if dc.Level < level || level == DebugNone {
		return
	}
	fmt.Fprintf(dc.Writer, dc.prefix(level)+format+"\n", args...)
}

// DryRun writes the statement text and its parameters, whatever the
// level.
func (dc *DebugContext) DryRun(stmt *builder.Statement) {
	fmt.Fprintln(dc.Writer, stmt.Text)
	fmt.Fprintln(dc.Writer, formatParams(stmt.Params))
}

// LogSQL logs a statement before it runs
func (dc *DebugContext) LogSQL(stmt *builder.Statement) {
	if dc.Level < DebugSQL {
		return
	}
	fmt.Fprintf(dc.Writer, "\n%s\n%s\n%s\n\n", dc.paint(color.FgCyan, "[SQL]"), stmt.Text, formatParams(stmt.Params))
}

// LogQuery logs a full statement trace
func (dc *DebugContext) LogQuery(id string, stmt *builder.Statement, duration time.Duration, resp Response) {
	if dc.Level < DebugTrace {
		return
	}

	fmt.Fprintf(dc.Writer, "\n")
	fmt.Fprintf(dc.Writer, "┌─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ Statement Trace %s\n", id)
	fmt.Fprintf(dc.Writer, "├─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ SQL:\n│   %s\n", stmt.Text)
	fmt.Fprintf(dc.Writer, "│ Params: %s\n", formatParams(stmt.Params))
	fmt.Fprintf(dc.Writer, "│ Duration: %v\n", duration)
	fmt.Fprintf(dc.Writer, "│ Result: %s\n", describe(resp))
	fmt.Fprintf(dc.Writer, "└─────────────────────────────────────\n\n")
}

func (dc *DebugContext) prefix(level DebugLevel) string {
	switch level {
	case DebugSQL:
		return dc.paint(color.FgCyan, "[DEBUG]") + " "
	case DebugTrace:
		return dc.paint(color.FgYellow, "[TRACE]") + " "
	default:
		return ""
	}
}

func (dc *DebugContext) paint(attr color.Attribute, s string) string {
	if !dc.ColorOutput {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func formatParams(params []any) string {
	return fmt.Sprintf("%v", params)
}

// describe summarizes a response for traces and logs.
func describe(resp Response) string {
	switch r := resp.(type) {
	case InsertResult:
		return fmt.Sprintf("inserted ids %v", r.IDs)
	case Affected:
		return fmt.Sprintf("%d rows affected", int64(r))
	case *Rows:
		return fmt.Sprintf("rows %v", r.Columns())
	case nil:
		return "none"
	}
	return fmt.Sprintf("%T", resp)
}
