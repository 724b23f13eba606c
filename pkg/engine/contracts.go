package engine

import (
	"context"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// ============================================================
// EXECUTION CONTRACTS
// ============================================================

// Executor runs a built statement and hands back a cursor over its
// outcome. Implementations own the connection and any transaction.
type Executor interface {
	Execute(ctx context.Context, stmt *builder.Statement) (Cursor, error)
}

// Cursor is the outcome of one executed statement.
type Cursor interface {
	// Columns returns the result column names, or nil when the statement
	// produced no rows.
	Columns() []string
	// Next advances to the next row. It returns false once the rows are
	// exhausted or an error occurred; see Err.
	Next() bool
	// Values returns the current row in column order.
	Values() ([]any, error)
	Err() error

	// HasInsertID reports whether the statement generated identifiers.
	HasInsertID() bool
	LastInsertID() int64
	// RowsAffected is -1 when the statement produced rows.
	RowsAffected() int64

	// Commit and Rollback end the transaction the statement ran in.
	Commit() error
	Rollback() error
	Close() error
}

// MapScanner is implemented by cursors whose rows are already keyed by
// column name.
type MapScanner interface {
	MapValues() (map[string]any, error)
}

// Transactor is implemented by executors that keep a transaction open
// across statements.
type Transactor interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ============================================================
// RESPONSES
// ============================================================

// Response is one of InsertResult, *Rows or Affected.
type Response interface {
	response()
}

// InsertResult carries the identifiers generated by an INSERT.
type InsertResult struct {
	IDs []any
}

// Affected is the number of rows a statement modified.
type Affected int64

// Row is a result row keyed by column name.
type Row map[string]any

func (InsertResult) response() {}
func (Affected) response()     {}
func (*Rows) response()        {}

// ResponseHandler turns a cursor into a Response. Normalize is the
// default.
type ResponseHandler func(c Cursor, d builder.Dialect) (Response, error)
