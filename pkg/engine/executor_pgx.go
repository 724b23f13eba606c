package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// PgxExecutor runs statements on a pgx pool with the same implicit
// transaction semantics as SQLExecutor. Statements must be built for the
// postgresql dialect.
type PgxExecutor struct {
	pool *pgxpool.Pool
	tx   txTracker
}

// NewPgxExecutor creates an executor over pool.
func NewPgxExecutor(pool *pgxpool.Pool) *PgxExecutor {
	return &PgxExecutor{pool: pool}
}

// Execute runs stmt inside the current transaction.
func (e *PgxExecutor) Execute(ctx context.Context, stmt *builder.Statement) (Cursor, error) {
	st, err := e.tx.current(func() (txn, error) {
		txCtx := context.WithoutCancel(ctx)
		tx, err := e.pool.BeginTx(txCtx, pgx.TxOptions{})
		if err != nil {
			return nil, fmt.Errorf("dsql: begin: %w", err)
		}
		return pgxTxn{ctx: txCtx, tx: tx}, nil
	})
	if err != nil {
		return nil, err
	}
	tx := st.tx.(pgxTxn).tx

	if stmt.Returning {
		rows, err := tx.Query(ctx, stmt.Text, stmt.Params...)
		if err != nil {
			return nil, err
		}
		fields := rows.FieldDescriptions()
		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = f.Name
		}
		e.tx.hold(st)
		return &cursor{
			tracker:  &e.tx,
			st:       st,
			rows:     pgxRows{rows},
			cols:     cols,
			hasID:    stmt.Kind == builder.KindInsert,
			affected: -1,
		}, nil
	}

	tag, err := tx.Exec(ctx, stmt.Text, stmt.Params...)
	if err != nil {
		return nil, err
	}
	return &cursor{tracker: &e.tx, st: st, affected: tag.RowsAffected()}, nil
}

// Commit commits the open transaction, if any.
func (e *PgxExecutor) Commit(ctx context.Context) error {
	return e.tx.finishCurrent(commitTxn)
}

// Rollback rolls back the open transaction, if any.
func (e *PgxExecutor) Rollback(ctx context.Context) error {
	return e.tx.finishCurrent(rollbackTxn)
}

type pgxTxn struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t pgxTxn) commit() error   { return t.tx.Commit(t.ctx) }
func (t pgxTxn) rollback() error { return t.tx.Rollback(t.ctx) }

// pgxRows adapts pgx.Rows to rowSource.
type pgxRows struct{ pgx.Rows }

func (r pgxRows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}
