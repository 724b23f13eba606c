package builder

import (
	"errors"
	"strconv"
	"strings"
)

// Dialect names accepted by ParseDialect.
const (
	NameStandard = "standard"
	NameMySQL    = "mysql"
	NamePostgres = "postgresql"
	NameMSSQL    = "mssql"
)

// Dialect is the per-database rendering strategy. The set of
// implementations is closed: Standard, MySQL, Postgres and MSSQL.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string
	// QuoteIdentifier wraps a table or column name.
	QuoteIdentifier(name string) string
	// Placeholder renders the n-th (1-based) positional parameter.
	Placeholder(n int) string
	// Pagination renders the LIMIT/OFFSET clause. It is only called with limit > 0.
	Pagination(limit, offset int) string
	// Returning renders the clause appended to INSERT to get generated ids
	// back as rows, or "" if the dialect reports them out of band.
	Returning(column string) string
	// InsertIDs extracts the identifiers generated by an INSERT.
	InsertIDs(c InsertCursor) ([]any, error)

	dialect()
}

// InsertCursor is the part of a finished INSERT cursor that id
// extraction reads.
type InsertCursor interface {
	LastInsertID() int64
	RowsAffected() int64
	Next() bool
	Values() ([]any, error)
	Err() error
}

var (
	Standard Dialect = standard{}
	MySQL    Dialect = mysql{}
	Postgres Dialect = postgres{}
	MSSQL    Dialect = mssql{}
)

// ParseDialect resolves a dialect by name. Driver names used by
// database/sql and pgx ("postgres", "pgx", "sqlserver", "sqlite") are
// accepted as aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameStandard, "ansi", "sqlite", "sqlite3":
		return Standard, nil
	case NameMySQL, "mariadb":
		return MySQL, nil
	case NamePostgres, "postgres", "pgx":
		return Postgres, nil
	case NameMSSQL, "sqlserver":
		return MSSQL, nil
	}
	return nil, invalid(CodeUnknownDialect, "", name,
		"unknown dialect %q (expected standard, mysql, postgresql or mssql)", name)
}

// quote wraps name in lq/rq and doubles any embedded rq.
func quote(name string, lq, rq byte) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte(lq)
	for i := 0; i < len(name); i++ {
		if name[i] == rq {
			b.WriteByte(rq)
		}
		b.WriteByte(name[i])
	}
	b.WriteByte(rq)
	return b.String()
}

// limitOffsetComma renders the two-argument MySQL form.
func limitOffsetComma(limit, offset int) string {
	return "LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
}

// countBack assumes contiguous allocation ending at last.
func countBack(last, affected int64) []any {
	ids := make([]any, 0, max(affected, 0))
	for id := last - affected; id < last; id++ {
		ids = append(ids, id)
	}
	return ids
}

// countForward assumes contiguous allocation starting at first.
func countForward(first, affected int64) []any {
	ids := make([]any, 0, max(affected, 0))
	for id := first; id < first+affected; id++ {
		ids = append(ids, id)
	}
	return ids
}

type standard struct{}

func (standard) Name() string { return NameStandard }
func (standard) QuoteIdentifier(n string) string { return quote(n, '"', '"') }
func (standard) Placeholder(int) string { return "?" }
func (standard) Pagination(limit, off int) string { return limitOffsetComma(limit, off) }
func (standard) Returning(string) string { return "" }
func (standard) dialect() {}
func (standard) InsertIDs(c InsertCursor) ([]any, error) {
	return countBack(c.LastInsertID(), c.RowsAffected()), nil
}

// mysql reports the first id of a multi-row insert and allocates the
// rest contiguously.
type mysql struct{}

func (mysql) Name() string { return NameMySQL }
func (mysql) QuoteIdentifier(n string) string { return quote(n, '`', '`') }
func (mysql) Placeholder(int) string { return "?" }
func (mysql) Pagination(limit, off int) string { return limitOffsetComma(limit, off) }
func (mysql) Returning(string) string { return "" }
func (mysql) dialect() {}
func (mysql) InsertIDs(c InsertCursor) ([]any, error) {
	return countForward(c.LastInsertID(), c.RowsAffected()), nil
}

type mssql struct{}

func (mssql) Name() string { return NameMSSQL }
func (mssql) QuoteIdentifier(n string) string { return quote(n, '[', ']') }
func (mssql) Placeholder(int) string { return "?" }
func (mssql) Pagination(limit, off int) string { return limitOffsetComma(limit, off) }
func (mssql) Returning(string) string { return "" }
func (mssql) dialect() {}
func (mssql) InsertIDs(c InsertCursor) ([]any, error) {
	return countBack(c.LastInsertID(), c.RowsAffected()), nil
}

// postgres has no last-insert-id; generated ids come back as RETURNING rows.
type postgres struct{}

func (postgres) Name() string { return NamePostgres }
func (postgres) QuoteIdentifier(n string) string { return quote(n, '"', '"') }
func (postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgres) dialect() {}

func (postgres) Pagination(limit, offset int) string {
	return "OFFSET " + strconv.Itoa(offset) + " LIMIT " + strconv.Itoa(limit)
}

func (p postgres) Returning(column string) string {
	return "RETURNING " + p.QuoteIdentifier(column)
}

func (postgres) InsertIDs(c InsertCursor) ([]any, error) {
	var ids []any
	for c.Next() {
		values, err := c.Values()
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, errors.New("dsql: returning row has no columns")
		}
		ids = append(ids, values[0])
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
