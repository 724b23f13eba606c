package builder

import (
	"fmt"
	"strings"
)

// Kind is the operation a statement performs.
type Kind int

const (
	KindSelect Kind = iota + 1
	KindInsert
	KindUpdate
	KindDelete
	KindRaw
)

var kindNames = [...]string{
	KindSelect: "select",
	KindInsert: "insert",
	KindUpdate: "update",
	KindDelete: "delete",
	KindRaw:    "raw",
}

func (k Kind) String() string {
	if k < KindSelect || k > KindRaw {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves an operation name.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for k := KindSelect; k <= KindRaw; k++ {
		if kindNames[k] == norm {
			return k, nil
		}
	}
	return 0, invalid(CodeUnknownKind, "", s, "unknown operation %q (expected select, insert, update, delete or raw)", s)
}

// Statement is a rendered statement and its positional parameters.
// The number of placeholders in Text always equals len(Params), in the
// same left-to-right order.
type Statement struct {
	Kind   Kind
	Table  string
	Text   string
	Params []any
	// Returning is set when executing the statement produces rows.
	Returning bool
}

// GeneratesIDs reports whether running the statement may generate row
// identifiers: built inserts, and raw INSERT or REPLACE statements.
func (s *Statement) GeneratesIDs() bool {
	if s.Kind == KindInsert {
		return true
	}
	if s.Kind != KindRaw {
		return false
	}
	head, _ := leadingKeyword(s.Text)
	return head == "INSERT" || head == "REPLACE"
}

// String renders the statement the way dry runs print it: the text on
// one line and the parameters on the next.
func (s *Statement) String() string {
	return fmt.Sprintf("%s\n%v", s.Text, s.Params)
}

// writer accumulates parameters while clauses are rendered in text order,
// so dialects with numbered placeholders stay in sync.
type writer struct {
	d      Dialect
	params []any
}

func newWriter(d Dialect) *writer {
	return &writer{d: d}
}

// arg binds v and returns its placeholder.
func (w *writer) arg(v any) string {
	w.params = append(w.params, v)
	return w.d.Placeholder(len(w.params))
}

func (w *writer) ident(name string) string {
	return w.d.QuoteIdentifier(name)
}

func (w *writer) idents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = w.ident(n)
	}
	return strings.Join(quoted, ", ")
}

// conditions renders "<keyword> (a AND b) OR (c)", or "" when empty.
func (w *writer) conditions(keyword string, c Conditions) string {
	if len(c) == 0 {
		return ""
	}
	groups := make([]string, len(c))
	for i, g := range c {
		preds := make([]string, len(g))
		for j, p := range g {
			preds[j] = w.predicate(p)
		}
		groups[i] = "(" + strings.Join(preds, " AND ") + ")"
	}
	return keyword + " " + strings.Join(groups, " OR ")
}

func (w *writer) predicate(p Predicate) string {
	field := w.ident(p.Field)
	if !p.Op.list() {
		return field + " " + p.Op.String() + " " + w.arg(p.Value)
	}
	vs, ok := listValues(p.Value)
	if !ok {
		vs = []any{p.Value}
	}
	phs := make([]string, len(vs))
	for i, v := range vs {
		phs[i] = w.arg(v)
	}
	return field + " " + p.Op.String() + " (" + strings.Join(phs, ", ") + ")"
}

func (w *writer) groupBy(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return "GROUP BY " + w.idents(fields)
}

// orderBy renders ORDER BY; a leading "-" on a field selects DESC.
func (w *writer) orderBy(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if strings.HasPrefix(f, "-") {
			dir = "DESC"
			f = strings.TrimLeft(f, "-")
		}
		terms[i] = w.ident(f) + " " + dir
	}
	return "ORDER BY " + strings.Join(terms, ", ")
}

func (w *writer) limit(limit, offset int) string {
	if limit == 0 {
		return ""
	}
	return w.d.Pagination(limit, offset)
}

// join concatenates the non-empty clauses with single spaces.
func join(clauses ...string) string {
	var b strings.Builder
	for _, c := range clauses {
		if c == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c)
	}
	return b.String()
}

func validateTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return invalid(CodeEmptyTable, "", table, "table name is required")
	}
	return nil
}

// validatePagination checks limit and offset. Offset only matters when
// a limit is set.
func validatePagination(limit, offset int) error {
	if limit < 0 || (limit > 0 && offset < 0) {
		return invalid(CodeInvalidPagination, "", [2]int{limit, offset},
			"limit and offset must not be negative (limit=%d offset=%d)", limit, offset)
	}
	return nil
}

func validateOrder(fields []string) error {
	for _, f := range fields {
		if strings.TrimLeft(f, "-") == "" {
			return invalid(CodeEmptyField, "", f, "order field has no name")
		}
	}
	return nil
}

func validateFields(fields []string) error {
	for _, f := range fields {
		if f == "" {
			return invalid(CodeEmptyField, "", f, "field list contains an empty name")
		}
	}
	return nil
}
