package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// Manager is the main entry point: it builds statements for one dialect,
// runs them on one executor and normalizes the outcome. Its fields are
// fixed at construction; all transaction state lives in the executor.
type Manager struct {
	exec      Executor
	dialect   builder.Dialect
	debug     *DebugContext
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithDebug sets the debug context used for tracing and dry runs.
func WithDebug(dc *DebugContext) Option {
	return func(m *Manager) {
		if dc != nil {
			m.debug = dc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver registers a hook called after every statement.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, o) }
}

// Event describes one dispatched statement.
type Event struct {
	ID        string
	Dialect   string
	Statement *builder.Statement
	DryRun    bool
	Duration  time.Duration
	Response  Response
	Err       error
}

// Observer receives an Event after each statement is dry-run or executed.
type Observer func(ctx context.Context, ev Event)

// NewManager creates a manager for d running on exec.
func NewManager(exec Executor, d builder.Dialect, opts ...Option) *Manager {
	m := &Manager{
		exec:    exec,
		dialect: d,
		debug:   DefaultDebugContext(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dialect returns the dialect statements are built for.
func (m *Manager) Dialect() builder.Dialect { return m.dialect }

// Executor returns the executor statements run on.
func (m *Manager) Executor() Executor { return m.exec }

// ============================================================
// CALL OPTIONS
// ============================================================

type callConfig struct {
	commit  bool
	dryRun  bool
	handler ResponseHandler
}

// CallOption adjusts a single operation.
type CallOption func(*callConfig)

// WithCommit sets whether the transaction is committed after the
// statement runs. The default is true.
func WithCommit(commit bool) CallOption {
	return func(c *callConfig) { c.commit = commit }
}

// WithDryRun writes the statement and its parameters to the debug writer
// instead of executing it. The operation then returns a nil Response.
func WithDryRun() CallOption {
	return func(c *callConfig) { c.dryRun = true }
}

// WithResponseHandler replaces Normalize for this call.
func WithResponseHandler(h ResponseHandler) CallOption {
	return func(c *callConfig) { c.handler = h }
}

// ============================================================
// OPERATIONS
// ============================================================

// Select runs a SELECT. The Response is *Rows.
func (m *Manager) Select(ctx context.Context, table string, opts builder.SelectOptions, call ...CallOption) (Response, error) {
	stmt, err := builder.Select(m.dialect, table, opts)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, stmt, call)
}

// Get runs a SELECT and returns its first row, or nil when nothing
// matched. The cursor is closed before Get returns, so a pending commit
// is not held back by unread rows.
func (m *Manager) Get(ctx context.Context, table string, opts builder.SelectOptions, call ...CallOption) (Row, error) {
	resp, err := m.Select(ctx, table, opts, call...)
	if err != nil {
		return nil, err
	}
	rows, ok := resp.(*Rows)
	if !ok {
		return nil, nil
	}
	var row Row
	if rows.Next() {
		row = rows.Row()
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return row, nil
}

// Insert runs a multi-row INSERT. The Response is InsertResult when the
// driver reports generated ids, Affected otherwise.
func (m *Manager) Insert(ctx context.Context, table string, records []builder.Record, call ...CallOption) (Response, error) {
	stmt, err := builder.Insert(m.dialect, table, records...)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, stmt, call)
}

// Update runs an UPDATE.
func (m *Manager) Update(ctx context.Context, table string, patch builder.Record, opts builder.UpdateOptions, call ...CallOption) (Response, error) {
	stmt, err := builder.Update(m.dialect, table, patch, opts)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, stmt, call)
}

// Delete runs a DELETE.
func (m *Manager) Delete(ctx context.Context, table string, opts builder.DeleteOptions, call ...CallOption) (Response, error) {
	stmt, err := builder.Delete(m.dialect, table, opts)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, stmt, call)
}

// Raw runs text with params untouched.
func (m *Manager) Raw(ctx context.Context, text string, params []any, call ...CallOption) (Response, error) {
	return m.run(ctx, builder.Raw(text, params...), call)
}

// Do builds q and runs it.
func (m *Manager) Do(ctx context.Context, q builder.Query, call ...CallOption) (Response, error) {
	stmt, err := builder.Build(m.dialect, q)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, stmt, call)
}

// Commit commits the executor's open transaction. Executors that do not
// keep one make this a no-op.
func (m *Manager) Commit(ctx context.Context) error {
	if t, ok := m.exec.(Transactor); ok {
		return t.Commit(ctx)
	}
	return nil
}

// Rollback rolls back the executor's open transaction.
func (m *Manager) Rollback(ctx context.Context) error {
	if t, ok := m.exec.(Transactor); ok {
		return t.Rollback(ctx)
	}
	return nil
}

// run executes stmt. Errors from the executor, the commit and the
// response handler are returned as they are.
func (m *Manager) run(ctx context.Context, stmt *builder.Statement, opts []CallOption) (Response, error) {
	cfg := callConfig{commit: true, handler: Normalize}
	for _, opt := range opts {
		opt(&cfg)
	}

	ev := Event{
		ID:        uuid.NewString(),
		Dialect:   m.dialect.Name(),
		Statement: stmt,
		DryRun:    cfg.dryRun,
	}

	if cfg.dryRun {
		m.debug.DryRun(stmt)
		m.notify(ctx, ev)
		return nil, nil
	}

	m.debug.LogSQL(stmt)
	start := time.Now()
	resp, err := m.execute(ctx, stmt, cfg)
	ev.Duration = time.Since(start)
	ev.Response, ev.Err = resp, err

	if err != nil {
		m.logger.WarnContext(ctx, "statement failed",
			"id", ev.ID, "kind", stmt.Kind.String(), "table", stmt.Table,
			"duration", ev.Duration, "error", err)
	} else {
		m.logger.DebugContext(ctx, "statement executed",
			"id", ev.ID, "kind", stmt.Kind.String(), "table", stmt.Table,
			"params", len(stmt.Params), "duration", ev.Duration, "result", describe(resp))
		m.debug.LogQuery(ev.ID, stmt, ev.Duration, resp)
	}
	m.notify(ctx, ev)
	return resp, err
}

func (m *Manager) execute(ctx context.Context, stmt *builder.Statement, cfg callConfig) (Response, error) {
	cur, err := m.exec.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if cfg.commit {
		if err := cur.Commit(); err != nil {
			cur.Close()
			return nil, err
		}
	}
	return cfg.handler(cur, m.dialect)
}

func (m *Manager) notify(ctx context.Context, ev Event) {
	for _, o := range m.observers {
		o(ctx, ev)
	}
}
