package builder

import (
	"strings"
)

// ============================================================
// SELECT
// ============================================================

// SelectOptions holds the optional clauses of a SELECT.
type SelectOptions struct {
	Fields  []string // empty selects *
	Where   Conditions
	GroupBy []string
	Having  Conditions
	OrderBy []string // "-field" sorts descending
	Limit   int      // 0 means no limit; Offset is then ignored
	Offset  int
}

// Select renders
//
//	SELECT … FROM … [WHERE …] [GROUP BY …] [HAVING …] [ORDER BY …] [LIMIT …]
//
// Parameters are the WHERE values followed by the HAVING values.
func Select(d Dialect, table string, opts SelectOptions) (*Statement, error) {
	if err := firstError(
		validateTable(table),
		validateFields(opts.Fields),
		opts.Where.validate(),
		validateFields(opts.GroupBy),
		opts.Having.validate(),
		validateOrder(opts.OrderBy),
		validatePagination(opts.Limit, opts.Offset),
	); err != nil {
		return nil, err
	}

	w := newWriter(d)
	projection := "*"
	if len(opts.Fields) > 0 {
		projection = w.idents(opts.Fields)
	}
	text := join(
		"SELECT "+projection,
		"FROM "+w.ident(table),
		w.conditions("WHERE", opts.Where),
		w.groupBy(opts.GroupBy),
		w.conditions("HAVING", opts.Having),
		w.orderBy(opts.OrderBy),
		w.limit(opts.Limit, opts.Offset),
	)
	return &Statement{
		Kind:      KindSelect,
		Table:     table,
		Text:      text,
		Params:    w.params,
		Returning: true,
	}, nil
}

// ============================================================
// INSERT
// ============================================================

// IDColumn is the generated identifier column requested by dialects that
// return ids as rows.
const IDColumn = "id"

// Insert renders one INSERT with a multi-row VALUES list. The column list
// comes from the first record; every other record must carry the same
// fields in the same order.
func Insert(d Dialect, table string, records ...Record) (*Statement, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, invalid(CodeEmptyRecords, "", nil, "at least one non-empty record is required")
	}
	first := records[0]
	if err := first.validate(); err != nil {
		return nil, err
	}
	for i, r := range records[1:] {
		if !first.sameFields(r) {
			return nil, invalid(CodeHeterogeneous, "", r.Fields(),
				"record %d has fields %v, expected %v", i+1, r.Fields(), first.Fields())
		}
	}

	w := newWriter(d)
	tuples := make([]string, len(records))
	for i, r := range records {
		phs := make([]string, len(r))
		for j, p := range r {
			phs[j] = w.arg(p.Value)
		}
		tuples[i] = "(" + strings.Join(phs, ", ") + ")"
	}
	returning := d.Returning(IDColumn)
	text := join(
		"INSERT INTO "+w.ident(table)+" ("+w.idents(first.Fields())+")",
		"VALUES "+strings.Join(tuples, ", "),
		returning,
	)
	return &Statement{
		Kind:      KindInsert,
		Table:     table,
		Text:      text,
		Params:    w.params,
		Returning: returning != "",
	}, nil
}

// ============================================================
// UPDATE
// ============================================================

// UpdateOptions holds the optional clauses of an UPDATE.
type UpdateOptions struct {
	Where   Conditions
	OrderBy []string
	Limit   int
	Offset  int
}

// Update renders UPDATE … SET … [WHERE …] [ORDER BY …] [LIMIT …].
// Parameters are the patch values followed by the WHERE values.
func Update(d Dialect, table string, patch Record, opts UpdateOptions) (*Statement, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, invalid(CodeEmptyPatch, "", nil, "update requires at least one field to set")
	}
	if err := firstError(
		patch.validate(),
		opts.Where.validate(),
		validateOrder(opts.OrderBy),
		validatePagination(opts.Limit, opts.Offset),
	); err != nil {
		return nil, err
	}

	w := newWriter(d)
	sets := make([]string, len(patch))
	for i, p := range patch {
		sets[i] = w.ident(p.Field) + " = " + w.arg(p.Value)
	}
	text := join(
		"UPDATE "+w.ident(table)+" SET "+strings.Join(sets, ", "),
		w.conditions("WHERE", opts.Where),
		w.orderBy(opts.OrderBy),
		w.limit(opts.Limit, opts.Offset),
	)
	return &Statement{
		Kind:   KindUpdate,
		Table:  table,
		Text:   text,
		Params: w.params,
	}, nil
}

// ============================================================
// DELETE
// ============================================================

// DeleteOptions holds the optional clauses of a DELETE.
type DeleteOptions struct {
	Where   Conditions
	OrderBy []string
	Limit   int
}

// Delete renders DELETE FROM … [WHERE …] [ORDER BY …] [LIMIT …].
func Delete(d Dialect, table string, opts DeleteOptions) (*Statement, error) {
	if err := firstError(
		validateTable(table),
		opts.Where.validate(),
		validateOrder(opts.OrderBy),
		validatePagination(opts.Limit, 0),
	); err != nil {
		return nil, err
	}

	w := newWriter(d)
	text := join(
		"DELETE FROM "+w.ident(table),
		w.conditions("WHERE", opts.Where),
		w.orderBy(opts.OrderBy),
		w.limit(opts.Limit, 0),
	)
	return &Statement{
		Kind:   KindDelete,
		Table:  table,
		Text:   text,
		Params: w.params,
	}, nil
}

// ============================================================
// RAW
// ============================================================

// rowKeywords start statements that produce a result set.
var rowKeywords = []string{"SELECT", "WITH", "SHOW", "VALUES", "EXPLAIN", "PRAGMA", "DESCRIBE", "TABLE"}

// Raw passes text and params through untouched. It is the escape hatch
// for statements the builder cannot express.
func Raw(text string, params ...any) *Statement {
	return &Statement{
		Kind:      KindRaw,
		Text:      text,
		Params:    params,
		Returning: producesRows(text),
	}
}

// producesRows guesses from the statement text whether it returns rows.
func producesRows(text string) bool {
	head, rest := leadingKeyword(text)
	for _, kw := range rowKeywords {
		if head == kw {
			return true
		}
	}
	for _, f := range strings.Fields(rest) {
		if strings.EqualFold(f, "RETURNING") {
			return true
		}
	}
	return false
}

// leadingKeyword returns the first word of text in upper case, skipping
// whitespace, opening parentheses and comments, and the text after it.
func leadingKeyword(text string) (string, string) {
	s := text
	for {
		s = strings.TrimLeft(s, "( \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return "", ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return "", ""
			}
			s = s[i+4:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '(' || r == ';'
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end]), s[end:]
		}
	}
}

// ============================================================
// UTILS
// ============================================================

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
