package spec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chameleon-db/dsql/pkg/builder"
)

const selectDoc = `
name: adults
kind: select
table: users
fields: [id, name]
where:
  - {"age >=": 18, "status =": active}
  - {"role in": [admin, owner]}
order_by: ["-created_at"]
limit: 10
offset: 20
`

func TestParse_Select(t *testing.T) {
	descs, err := Parse(strings.NewReader(selectDoc), "adults.yml")
	require.NoError(t, err)
	require.Len(t, descs, 1)

	d := descs[0]
	assert.Equal(t, "adults", d.Title())
	assert.Equal(t, "adults.yml:2", d.Source)

	stmt, err := d.Build(builder.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id", "name" FROM "users" WHERE ("age" >= $1 AND "status" = $2) OR ("role" in ($3, $4)) `+
			`ORDER BY "created_at" DESC OFFSET 20 LIMIT 10`,
		stmt.Text)
	assert.Equal(t, []any{18, "active", "admin", "owner"}, stmt.Params)
}

func TestParse_PreservesOrder(t *testing.T) {
	doc := `
kind: insert
table: people
records:
  - {zeta: 1, alpha: 2, mid: 3}
  - {zeta: 4, alpha: 5, mid: 6}
`
	descs, err := Parse(strings.NewReader(doc), "people.yml")
	require.NoError(t, err)

	stmt, err := descs[0].Build(builder.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `people` (`zeta`, `alpha`, `mid`) VALUES (?, ?, ?), (?, ?, ?)", stmt.Text)
	assert.Equal(t, []any{1, 2, 3, 4, 5, 6}, stmt.Params)
}

func TestParse_MultipleDocumentsAndDialectOverride(t *testing.T) {
	doc := `
kind: update
table: people
patch: {age: 30}
where: {"id =": 7}
---
kind: delete
dialect: mssql
table: people
where: {"age <": 18}
---
kind: raw
sql: "SELECT 1 WHERE ? = ?"
params: [1, "1"]
`
	descs, err := Parse(strings.NewReader(doc), "multi.yml")
	require.NoError(t, err)
	require.Len(t, descs, 3)

	stmt, err := descs[0].Build(builder.Standard)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "people" SET "age" = ? WHERE ("id" = ?)`, stmt.Text)
	assert.Equal(t, []any{30, 7}, stmt.Params)

	stmt, err = descs[1].Build(builder.Standard)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM [people] WHERE ([age] < ?)`, stmt.Text)

	stmt, err = descs[2].Build(builder.Standard)
	require.NoError(t, err)
	assert.Equal(t, builder.KindRaw, stmt.Kind)
	assert.Equal(t, []any{1, "1"}, stmt.Params)
	assert.True(t, stmt.Returning)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"kind": "select", "table": "t", "where": {"name like": "a%", "id not in": [1, 2]}}`
	descs, err := Parse(strings.NewReader(doc), "t.json")
	require.NoError(t, err)

	stmt, err := descs[0].Build(builder.Standard)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE ("name" like ? AND "id" not in (?, ?))`, stmt.Text)
	assert.Equal(t, []any{"a%", 1, 2}, stmt.Params)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"missing operator", "kind: select\ntable: t\nwhere: {age: 3}\n", builder.CodeMissingOperator},
		{"bad operator", "kind: select\ntable: t\nwhere: {\"age ~\": 3}\n", builder.CodeUnsupportedOperator},
		{"bad kind", "kind: upsert\ntable: t\n", builder.CodeUnknownKind},
		{"bad dialect", "kind: select\ndialect: oracle\ntable: t\n", builder.CodeUnknownDialect},
		{"heterogeneous", "kind: insert\ntable: t\nrecords: [{a: 1}, {b: 2}]\n", builder.CodeHeterogeneous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs, err := Parse(strings.NewReader(tt.doc), "bad.yml")
			require.NoError(t, err)

			_, err = descs[0].Build(builder.Standard)
			require.Error(t, err)
			assert.Equal(t, tt.code, builder.ErrorCode(err))
			assert.Contains(t, err.Error(), "bad.yml:1")
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(strings.NewReader("kind: select\nwhere: 5\n"), "x.yml")
	assert.ErrorContains(t, err, "where/having")

	_, err = Parse(strings.NewReader("kind: [\n"), "y.yml")
	assert.ErrorContains(t, err, "y.yml")
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(sub, 0755))

	for _, name := range []string{"b.yml", "a.json", "notes.txt", filepath.Join("reports", "c.yaml")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("kind: raw\nsql: SELECT 1\n"), 0644))
	}

	files, err := Files([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(sub, "c.yaml"),
	}, files)

	descs, err := LoadFile(files[1])
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "SELECT 1", descs[0].SQL)

	_, err = Files([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
