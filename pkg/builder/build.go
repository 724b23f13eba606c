package builder

// Query is the uniform description of any statement kind. Only the
// fields relevant to Kind are read.
type Query struct {
	Kind    Kind
	Table   string
	Fields  []string
	Where   Conditions
	GroupBy []string
	Having  Conditions
	OrderBy []string
	Limit   int
	Offset  int

	Records []Record // insert
	Patch   Record   // update

	Text   string // raw
	Params []any  // raw
}

// Build dispatches q to the builder for its kind.
func Build(d Dialect, q Query) (*Statement, error) {
	if d == nil {
		return nil, invalid(CodeUnknownDialect, "", nil, "no dialect given")
	}
	switch q.Kind {
	case KindSelect:
		return Select(d, q.Table, SelectOptions{
			Fields:  q.Fields,
			Where:   q.Where,
			GroupBy: q.GroupBy,
			Having:  q.Having,
			OrderBy: q.OrderBy,
			Limit:   q.Limit,
			Offset:  q.Offset,
		})
	case KindInsert:
		return Insert(d, q.Table, q.Records...)
	case KindUpdate:
		return Update(d, q.Table, q.Patch, UpdateOptions{
			Where:   q.Where,
			OrderBy: q.OrderBy,
			Limit:   q.Limit,
			Offset:  q.Offset,
		})
	case KindDelete:
		return Delete(d, q.Table, DeleteOptions{
			Where:   q.Where,
			OrderBy: q.OrderBy,
			Limit:   q.Limit,
		})
	case KindRaw:
		return Raw(q.Text, q.Params...), nil
	}
	return nil, invalid(CodeUnknownKind, "", q.Kind, "unknown operation %s", q.Kind)
}
