package engine

import (
	"errors"
	"fmt"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// Normalize converts a cursor into a Response. The checks run in a fixed
// order and the first match wins:
//
//  1. the statement generated identifiers: InsertResult
//  2. the statement produced columns: *Rows
//  3. otherwise: Affected
//
// For InsertResult and Affected the cursor is closed before returning;
// *Rows closes it once exhausted or closed.
func Normalize(c Cursor, d builder.Dialect) (Response, error) {
	if c.HasInsertID() {
		ids, err := d.InsertIDs(c)
		if cerr := c.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		return InsertResult{IDs: ids}, nil
	}

	if cols := c.Columns(); cols != nil {
		return newRows(c, cols), nil
	}

	n := c.RowsAffected()
	if err := c.Close(); err != nil {
		return nil, err
	}
	return Affected(n), nil
}

// Rows is a lazy, forward-only iterator over a result set. Rows are read
// from the cursor one at a time; once exhausted, Next keeps returning
// false and a second pass yields nothing.
//
//	for rows.Next() {
//	    r := rows.Row()
//	}
//	if err := rows.Err(); err != nil { ... }
type Rows struct {
	c    Cursor
	cols []string
	row  Row
	err  error
	done bool
}

func newRows(c Cursor, cols []string) *Rows {
	return &Rows{c: c, cols: cols}
}

// Columns returns the column names of the result set.
func (r *Rows) Columns() []string {
	return r.cols
}

// Next advances to the next row.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	if !r.c.Next() {
		r.finish(r.c.Err())
		return false
	}
	row, err := r.scan()
	if err != nil {
		r.finish(err)
		return false
	}
	r.row = row
	return true
}

func (r *Rows) scan() (Row, error) {
	if ms, ok := r.c.(MapScanner); ok {
		m, err := ms.MapValues()
		if err != nil {
			return nil, err
		}
		return Row(m), nil
	}
	values, err := r.c.Values()
	if err != nil {
		return nil, err
	}
	if len(values) != len(r.cols) {
		return nil, fmt.Errorf("dsql: row has %d values for %d columns", len(values), len(r.cols))
	}
	row := make(Row, len(r.cols))
	for i, col := range r.cols {
		row[col] = values[i]
	}
	return row, nil
}

// Row returns the current row. It is nil before the first Next and after
// exhaustion.
func (r *Rows) Row() Row {
	return r.row
}

// Err returns the error that ended iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// Done reports whether the iterator is exhausted.
func (r *Rows) Done() bool {
	return r.done
}

// Close stops iteration and releases the cursor.
func (r *Rows) Close() error {
	if r.done {
		return nil
	}
	r.finish(nil)
	return r.err
}

// All drains the remaining rows.
func (r *Rows) All() ([]Row, error) {
	var out []Row
	for r.Next() {
		out = append(out, r.row)
	}
	return out, r.Err()
}

func (r *Rows) finish(err error) {
	r.done = true
	r.row = nil
	r.err = errors.Join(err, r.c.Close())
}
