package engine

import (
	"errors"
	"sync"
)

// txn is the part of a driver transaction the tracker needs.
type txn interface {
	commit() error
	rollback() error
}

// txState is one lazily begun transaction.
type txState struct {
	tx txn
	// open counts cursors still holding rows on the transaction.
	open int
	// end is a Commit or Rollback requested while rows were open.
	end  func(txn) error
	done bool
}

// txTracker holds the implicit transaction of an executor: the first
// statement begins it and it stays open until committed or rolled back.
// Ending a transaction while a cursor still reads rows from it is
// deferred until that cursor is closed; drivers either close open rows
// on commit (database/sql) or refuse with a busy connection (pgx).
type txTracker struct {
	mu  sync.Mutex
	cur *txState
}

func commitTxn(t txn) error   { return t.commit() }
func rollbackTxn(t txn) error { return t.rollback() }

// current returns the open transaction, beginning one if needed.
func (t *txTracker) current(begin func() (txn, error)) (*txState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cur != nil {
		return t.cur, nil
	}
	tx, err := begin()
	if err != nil {
		return nil, err
	}
	t.cur = &txState{tx: tx}
	return t.cur, nil
}

// hold registers a cursor reading rows from st.
func (t *txTracker) hold(st *txState) {
	t.mu.Lock()
	st.open++
	t.mu.Unlock()
}

// release unregisters a cursor and runs a deferred end once no rows are
// open any more.
func (t *txTracker) release(st *txState) error {
	t.mu.Lock()
	st.open--
	if st.open > 0 || st.end == nil {
		t.mu.Unlock()
		return nil
	}
	end := st.end
	st.end = nil
	t.mu.Unlock()
	return end(st.tx)
}

// finish ends st with end. The next statement begins a fresh
// transaction.
func (t *txTracker) finish(st *txState, end func(txn) error) error {
	t.mu.Lock()
	if t.cur == st {
		t.cur = nil
	}
	if st.done {
		t.mu.Unlock()
		return nil
	}
	st.done = true
	if st.open > 0 {
		st.end = end
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	return end(st.tx)
}

// finishCurrent ends the open transaction, if any.
func (t *txTracker) finishCurrent(end func(txn) error) error {
	t.mu.Lock()
	st := t.cur
	t.mu.Unlock()
	if st == nil {
		return nil
	}
	return t.finish(st, end)
}

// rowSource is the driver-specific half of a row cursor.
type rowSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// cursor implements Cursor for the executors of this package.
type cursor struct {
	tracker *txTracker
	st      *txState

	rows rowSource // nil unless the statement produced rows
	cols []string

	hasID    bool
	lastID   int64
	affected int64

	err    error
	closed bool
}

func (c *cursor) Columns() []string   { return c.cols }
func (c *cursor) Err() error          { return c.err }
func (c *cursor) HasInsertID() bool   { return c.hasID }
func (c *cursor) LastInsertID() int64 { return c.lastID }
func (c *cursor) RowsAffected() int64 { return c.affected }

func (c *cursor) Next() bool {
	if c.rows == nil || c.closed {
		return false
	}
	if c.rows.Next() {
		return true
	}
	c.err = c.rows.Err()
	if err := c.Close(); err != nil && c.err == nil {
		c.err = err
	}
	return false
}

func (c *cursor) Values() ([]any, error) {
	if c.rows == nil || c.closed {
		return nil, errors.New("dsql: no current row")
	}
	return c.rows.Values()
}

func (c *cursor) Commit() error {
	return c.tracker.finish(c.st, commitTxn)
}

func (c *cursor) Rollback() error {
	return c.tracker.finish(c.st, rollbackTxn)
}

func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.rows == nil {
		return nil
	}
	return errors.Join(c.rows.Close(), c.tracker.release(c.st))
}
