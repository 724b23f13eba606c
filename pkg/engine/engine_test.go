package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// fakeExecutor records statements and returns a canned cursor or error.
type fakeExecutor struct {
	stmts  []*builder.Statement
	cursor *fakeCursor
	err    error

	commits   int
	rollbacks int
}

func (e *fakeExecutor) Execute(_ context.Context, stmt *builder.Statement) (Cursor, error) {
	e.stmts = append(e.stmts, stmt)
	if e.err != nil {
		return nil, e.err
	}
	if e.cursor == nil {
		e.cursor = &fakeCursor{}
	}
	return e.cursor, nil
}

func (e *fakeExecutor) Commit(context.Context) error   { e.commits++; return nil }
func (e *fakeExecutor) Rollback(context.Context) error { e.rollbacks++; return nil }

func quietDebug(buf *bytes.Buffer) *DebugContext {
	return &DebugContext{Level: DebugNone, Writer: buf}
}

func TestManager_DryRun(t *testing.T) {
	var buf bytes.Buffer
	exec := &fakeExecutor{}
	m := NewManager(exec, builder.MySQL, WithDebug(quietDebug(&buf)))

	resp, err := m.Insert(context.Background(), "people",
		[]builder.Record{builder.Rec("name", "a")}, WithDryRun())

	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, exec.stmts)
	assert.Equal(t, "INSERT INTO `people` (`name`) VALUES (?)\n[a]\n", buf.String())
}

func TestManager_DryRunNeverExecutes(t *testing.T) {
	var buf bytes.Buffer
	exec := &fakeExecutor{err: errors.New("must not run")}
	m := NewManager(exec, builder.Postgres, WithDebug(quietDebug(&buf)))

	resp, err := m.Raw(context.Background(), "DELETE FROM t WHERE id = $1", []any{1}, WithDryRun())
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, exec.stmts)
}

func TestManager_CommitByDefault(t *testing.T) {
	exec := &fakeExecutor{cursor: &fakeCursor{affected: 2}}
	m := NewManager(exec, builder.Standard)

	resp, err := m.Update(context.Background(), "people", builder.Rec("age", 3),
		builder.UpdateOptions{Where: builder.Where(builder.EQ("id", 1))})
	require.NoError(t, err)

	assert.Equal(t, Affected(2), resp)
	assert.Equal(t, 1, exec.cursor.commits)
	require.Len(t, exec.stmts, 1)
	assert.Equal(t, `UPDATE "people" SET "age" = ? WHERE ("id" = ?)`, exec.stmts[0].Text)
	assert.Equal(t, []any{3, 1}, exec.stmts[0].Params)
}

func TestManager_WithoutCommit(t *testing.T) {
	exec := &fakeExecutor{cursor: &fakeCursor{affected: 1}}
	m := NewManager(exec, builder.Standard)
	ctx := context.Background()

	_, err := m.Delete(ctx, "people", builder.DeleteOptions{}, WithCommit(false))
	require.NoError(t, err)
	assert.Equal(t, 0, exec.cursor.commits)

	require.NoError(t, m.Commit(ctx))
	require.NoError(t, m.Rollback(ctx))
	assert.Equal(t, 1, exec.commits)
	assert.Equal(t, 1, exec.rollbacks)
}

func TestManager_ExecutorErrorUnchanged(t *testing.T) {
	boom := errors.New("duplicate key")
	exec := &fakeExecutor{err: boom}
	m := NewManager(exec, builder.MySQL)

	resp, err := m.Select(context.Background(), "people", builder.SelectOptions{})
	assert.Nil(t, resp)
	assert.Equal(t, boom, err)
}

func TestManager_CommitErrorUnchanged(t *testing.T) {
	boom := errors.New("serialization failure")
	exec := &fakeExecutor{cursor: &fakeCursor{commitErr: boom}}
	m := NewManager(exec, builder.MySQL)

	_, err := m.Raw(context.Background(), "UPDATE t SET a = 1", nil)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, exec.cursor.closes)
}

func TestManager_ValidationBeforeExecution(t *testing.T) {
	exec := &fakeExecutor{}
	m := NewManager(exec, builder.MySQL)

	_, err := m.Insert(context.Background(), "people", nil)
	assert.Equal(t, builder.CodeEmptyRecords, builder.ErrorCode(err))

	_, err = m.Do(context.Background(), builder.Query{Kind: builder.KindSelect, Table: "t",
		Where: builder.Where(builder.In("id"))})
	assert.ErrorIs(t, err, builder.ErrValidation)

	assert.Empty(t, exec.stmts)
}

func TestManager_ResponseHandler(t *testing.T) {
	exec := &fakeExecutor{cursor: &fakeCursor{affected: 7}}
	m := NewManager(exec, builder.Standard)

	var seen builder.Dialect
	resp, err := m.Raw(context.Background(), "UPDATE t SET a = 1", nil,
		WithResponseHandler(func(c Cursor, d builder.Dialect) (Response, error) {
			seen = d
			return Affected(c.RowsAffected() * 2), nil
		}))
	require.NoError(t, err)

	assert.Equal(t, Affected(14), resp)
	assert.Equal(t, builder.Standard, seen)
}

func TestManager_Do(t *testing.T) {
	exec := &fakeExecutor{cursor: &fakeCursor{hasID: true, lastID: 10, affected: 2}}
	m := NewManager(exec, builder.MySQL)

	resp, err := m.Do(context.Background(), builder.Query{
		Kind:    builder.KindInsert,
		Table:   "people",
		Records: []builder.Record{builder.Rec("name", "a"), builder.Rec("name", "b")},
	})
	require.NoError(t, err)
	assert.Equal(t, InsertResult{IDs: []any{int64(10), int64(11)}}, resp)
}

func TestManager_Observer(t *testing.T) {
	var events []Event
	exec := &fakeExecutor{cursor: &fakeCursor{affected: 1}}
	var buf bytes.Buffer
	m := NewManager(exec, builder.Postgres,
		WithDebug(quietDebug(&buf)),
		WithObserver(func(_ context.Context, ev Event) { events = append(events, ev) }))

	ctx := context.Background()
	_, err := m.Delete(ctx, "t", builder.DeleteOptions{}, WithDryRun())
	require.NoError(t, err)
	_, err = m.Delete(ctx, "t", builder.DeleteOptions{})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.True(t, events[0].DryRun)
	assert.False(t, events[1].DryRun)
	assert.Equal(t, Affected(1), events[1].Response)
	assert.Equal(t, builder.NamePostgres, events[1].Dialect)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	_, err = uuid.Parse(events[1].ID)
	assert.NoError(t, err)
}

func TestManager_Accessors(t *testing.T) {
	exec := &fakeExecutor{}
	m := NewManager(exec, builder.MSSQL)

	assert.Equal(t, builder.MSSQL, m.Dialect())
	assert.Equal(t, Executor(exec), m.Executor())
}

func TestManager_NilDebugKeepsDefault(t *testing.T) {
	exec := &fakeExecutor{}
	m := NewManager(exec, builder.MySQL, WithDebug(nil))
	require.NotNil(t, m.debug)

	m.debug.Writer = &bytes.Buffer{}
	assert.NotPanics(t, func() {
		resp, err := m.Raw(context.Background(), "SELECT 1", nil, WithDryRun())
		assert.NoError(t, err)
		assert.Nil(t, resp)
	})
	assert.Empty(t, exec.stmts)
}

func TestManager_Get(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id"}, rows: [][]any{{1}, {2}}}
	exec := &fakeExecutor{cursor: cur}
	m := NewManager(exec, builder.Standard, WithDebug(quietDebug(&bytes.Buffer{})))

	row, err := m.Get(context.Background(), "t", builder.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, Row{"id": 1}, row)
	assert.Equal(t, 1, cur.closes)
	assert.Equal(t, `SELECT * FROM "t"`, exec.stmts[0].Text)

	exec.cursor = &fakeCursor{cols: []string{"id"}}
	row, err = m.Get(context.Background(), "t", builder.SelectOptions{})
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = m.Get(context.Background(), "t", builder.SelectOptions{}, WithDryRun())
	require.NoError(t, err)
	assert.Nil(t, row)
}
