package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// fakeCursor is an in-memory Cursor.
type fakeCursor struct {
	cols     []string
	rows     [][]any
	pos      int
	rowErr   error
	hasID    bool
	lastID   int64
	affected int64

	commits   int
	rollbacks int
	closes    int
	commitErr error
}

func (c *fakeCursor) Columns() []string { return c.cols }

func (c *fakeCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Values() ([]any, error) { return c.rows[c.pos-1], nil }
func (c *fakeCursor) Err() error {
	if c.pos >= len(c.rows) {
		return c.rowErr
	}
	return nil
}
func (c *fakeCursor) HasInsertID() bool   { return c.hasID }
func (c *fakeCursor) LastInsertID() int64 { return c.lastID }
func (c *fakeCursor) RowsAffected() int64 { return c.affected }
func (c *fakeCursor) Commit() error       { c.commits++; return c.commitErr }
func (c *fakeCursor) Rollback() error     { c.rollbacks++; return nil }
func (c *fakeCursor) Close() error        { c.closes++; return nil }

// mapCursor yields rows already keyed by column.
type mapCursor struct {
	*fakeCursor
}

func (c mapCursor) MapValues() (map[string]any, error) {
	row := c.rows[c.pos-1]
	m := make(map[string]any, len(c.cols))
	for i, col := range c.cols {
		m[col] = row[i]
	}
	m["source"] = "map"
	return m, nil
}

func TestNormalize_InsertIDRanges(t *testing.T) {
	tests := []struct {
		name    string
		dialect builder.Dialect
		want    []any
	}{
		{"mysql counts forward from the first id", builder.MySQL, []any{int64(100), int64(101), int64(102)}},
		{"standard counts back from the last id", builder.Standard, []any{int64(97), int64(98), int64(99)}},
		{"mssql counts back from the last id", builder.MSSQL, []any{int64(97), int64(98), int64(99)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCursor{hasID: true, lastID: 100, affected: 3}
			resp, err := Normalize(c, tt.dialect)
			require.NoError(t, err)

			ins, ok := resp.(InsertResult)
			require.True(t, ok, "got %T", resp)
			assert.Equal(t, tt.want, ins.IDs)
			assert.Equal(t, 1, c.closes)
		})
	}
}

func TestNormalize_PostgresReturningRows(t *testing.T) {
	c := &fakeCursor{
		hasID: true,
		cols:  []string{"id"},
		rows:  [][]any{{int32(7)}, {int32(8)}},
	}
	resp, err := Normalize(c, builder.Postgres)
	require.NoError(t, err)

	assert.Equal(t, InsertResult{IDs: []any{int32(7), int32(8)}}, resp)
	assert.Equal(t, 1, c.closes)
}

func TestNormalize_Priority(t *testing.T) {
	// insert id wins over columns
	c := &fakeCursor{hasID: true, lastID: 5, affected: 1, cols: []string{"x"}}
	resp, err := Normalize(c, builder.MySQL)
	require.NoError(t, err)
	assert.IsType(t, InsertResult{}, resp)

	// columns win over affected count
	c = &fakeCursor{cols: []string{"x"}, affected: 9}
	resp, err = Normalize(c, builder.MySQL)
	require.NoError(t, err)
	assert.IsType(t, &Rows{}, resp)
	assert.Equal(t, 0, c.closes)

	// an empty column list still means rows
	c = &fakeCursor{cols: []string{}}
	resp, err = Normalize(c, builder.MySQL)
	require.NoError(t, err)
	assert.IsType(t, &Rows{}, resp)

	c = &fakeCursor{affected: 4}
	resp, err = Normalize(c, builder.MySQL)
	require.NoError(t, err)
	assert.Equal(t, Affected(4), resp)
	assert.Equal(t, 1, c.closes)
}

func TestRows_SinglePass(t *testing.T) {
	c := &fakeCursor{
		cols: []string{"id", "name"},
		rows: [][]any{{1, "a"}, {2, "b"}},
	}
	resp, err := Normalize(c, builder.Standard)
	require.NoError(t, err)
	rows := resp.(*Rows)

	assert.Nil(t, rows.Row())
	assert.False(t, rows.Done())

	all, err := rows.All()
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": 1, "name": "a"}, {"id": 2, "name": "b"}}, all)
	assert.True(t, rows.Done())
	assert.Equal(t, 1, c.closes)

	assert.False(t, rows.Next())
	again, err := rows.All()
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, c.closes)
}

func TestRows_LazyRead(t *testing.T) {
	c := &fakeCursor{cols: []string{"n"}, rows: [][]any{{1}, {2}, {3}}}
	rows := newRows(c, c.cols)

	require.True(t, rows.Next())
	assert.Equal(t, Row{"n": 1}, rows.Row())
	assert.Equal(t, 1, c.pos)

	require.NoError(t, rows.Close())
	assert.True(t, rows.Done())
	assert.False(t, rows.Next())
	assert.Equal(t, 1, c.pos)
	assert.Equal(t, 1, c.closes)
}

func TestRows_MapScanner(t *testing.T) {
	c := mapCursor{&fakeCursor{cols: []string{"id"}, rows: [][]any{{1}}}}
	resp, err := Normalize(c, builder.Standard)
	require.NoError(t, err)

	all, err := resp.(*Rows).All()
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": 1, "source": "map"}}, all)
}

func TestRows_CursorError(t *testing.T) {
	boom := errors.New("connection reset")
	c := &fakeCursor{cols: []string{"id"}, rows: [][]any{{1}}, rowErr: boom}
	rows := newRows(c, c.cols)

	all, err := rows.All()
	assert.Len(t, all, 1)
	assert.ErrorIs(t, err, boom)
	assert.True(t, rows.Done())
}

func TestRows_ColumnMismatch(t *testing.T) {
	c := &fakeCursor{cols: []string{"a", "b"}, rows: [][]any{{1}}}
	rows := newRows(c, c.cols)

	assert.False(t, rows.Next())
	assert.ErrorContains(t, rows.Err(), "1 values for 2 columns")
}
