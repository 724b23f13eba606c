package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// SQLExecutor runs statements through database/sql. Statements share an
// implicit transaction that begins with the first statement and lasts
// until a Commit or Rollback, on the cursor or on the executor.
//
// It works with any registered driver whose placeholder syntax matches
// the dialect the statements are built for (mysql, lib/pq, sqlite).
type SQLExecutor struct {
	db *sql.DB
	tx txTracker
}

// NewSQLExecutor creates an executor over db. The caller keeps ownership
// of db.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Execute runs stmt. Statements marked Returning are run as queries and
// their cursor streams rows; others are run with Exec.
func (e *SQLExecutor) Execute(ctx context.Context, stmt *builder.Statement) (Cursor, error) {
	st, err := e.tx.current(func() (txn, error) {
		// The transaction outlives this call.
		tx, err := e.db.BeginTx(context.WithoutCancel(ctx), nil)
		if err != nil {
			return nil, fmt.Errorf("dsql: begin: %w", err)
		}
		return sqlTxn{tx}, nil
	})
	if err != nil {
		return nil, err
	}
	tx := st.tx.(sqlTxn).Tx

	if stmt.Returning {
		rows, err := tx.QueryContext(ctx, stmt.Text, stmt.Params...)
		if err != nil {
			return nil, err
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, err
		}
		e.tx.hold(st)
		return &cursor{
			tracker:  &e.tx,
			st:       st,
			rows:     &sqlRows{rows: rows, n: len(cols)},
			cols:     cols,
			hasID:    stmt.Kind == builder.KindInsert,
			affected: -1,
		}, nil
	}

	res, err := tx.ExecContext(ctx, stmt.Text, stmt.Params...)
	if err != nil {
		return nil, err
	}
	c := &cursor{tracker: &e.tx, st: st}
	if n, err := res.RowsAffected(); err == nil {
		c.affected = n
	}
	if stmt.GeneratesIDs() {
		// Drivers without last-insert-id support (lib/pq) return an error.
		// MySQL reports 0 when the table has no AUTO_INCREMENT column.
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			c.hasID, c.lastID = true, id
		}
	}
	return c, nil
}

// Commit commits the open transaction, if any.
func (e *SQLExecutor) Commit(ctx context.Context) error {
	return e.tx.finishCurrent(commitTxn)
}

// Rollback rolls back the open transaction, if any.
func (e *SQLExecutor) Rollback(ctx context.Context) error {
	return e.tx.finishCurrent(rollbackTxn)
}

// Close rolls back any transaction left open. It does not close the
// underlying *sql.DB.
func (e *SQLExecutor) Close() error {
	return e.Rollback(context.Background())
}

type sqlTxn struct{ *sql.Tx }

func (t sqlTxn) commit() error   { return t.Tx.Commit() }
func (t sqlTxn) rollback() error { return t.Tx.Rollback() }

// sqlRows adapts *sql.Rows to rowSource.
type sqlRows struct {
	rows *sql.Rows
	n    int
}

func (r *sqlRows) Next() bool   { return r.rows.Next() }
func (r *sqlRows) Err() error   { return r.rows.Err() }
func (r *sqlRows) Close() error { return r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, r.n)
	dest := make([]any, r.n)
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	return values, nil
}
