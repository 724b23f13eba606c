package builder

import (
	"reflect"
	"strconv"
	"strings"
)

// Op is a comparison operator. The set is closed; any other value is
// rejected when a statement is built.
type Op int

const (
	OpEQ Op = iota + 1
	OpGT
	OpLT
	OpNEQ
	OpLTE
	OpGTE
	OpIn
	OpNotIn
	OpLike
	OpNotLike
)

var opText = [...]string{
	OpEQ:      "=",
	OpGT:      ">",
	OpLT:      "<",
	OpNEQ:     "!=",
	OpLTE:     "<=",
	OpGTE:     ">=",
	OpIn:      "in",
	OpNotIn:   "not in",
	OpLike:    "like",
	OpNotLike: "not like",
}

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	if !o.Valid() {
		return "Op(" + strconv.Itoa(int(o)) + ")"
	}
	return opText[o]
}

// Valid reports whether o belongs to the supported set.
func (o Op) Valid() bool { return o >= OpEQ && o <= OpNotLike }

// list reports whether the operator takes a parenthesized value list.
func (o Op) list() bool { return o == OpIn || o == OpNotIn }

// ParseOp parses the SQL spelling of an operator. Keywords are matched
// case-insensitively and runs of whitespace are treated as one space.
func ParseOp(s string) (Op, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for op := OpEQ; op <= OpNotLike; op++ {
		if opText[op] == norm {
			return op, nil
		}
	}
	return 0, invalid(CodeUnsupportedOperator, "", s, "unsupported operator %q", s)
}

// Predicate is a single field/operator/value comparison.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func EQ(field string, v any) Predicate { return Predicate{field, OpEQ, v} }
func NEQ(field string, v any) Predicate { return Predicate{field, OpNEQ, v} }
func GT(field string, v any) Predicate { return Predicate{field, OpGT, v} }
func GTE(field string, v any) Predicate { return Predicate{field, OpGTE, v} }
func LT(field string, v any) Predicate { return Predicate{field, OpLT, v} }
func LTE(field string, v any) Predicate { return Predicate{field, OpLTE, v} }
func Like(field string, v any) Predicate { return Predicate{field, OpLike, v} }
func NotLike(field string, v any) Predicate { return Predicate{field, OpNotLike, v} }

// In matches field against any of vs.
func In(field string, vs ...any) Predicate { return Predicate{field, OpIn, vs} }

// NotIn matches field against none of vs.
func NotIn(field string, vs ...any) Predicate { return Predicate{field, OpNotIn, vs} }

// ParsePredicate parses the key-encoded form used by description files,
// where the key carries both the field and the operator:
//
//	ParsePredicate("age >", 30)
//	ParsePredicate("id not in", []any{1, 2})
//
// A key without an operator is rejected rather than defaulted to "=".
func ParsePredicate(key string, value any) (Predicate, error) {
	key = strings.TrimSpace(key)
	i := strings.IndexAny(key, " \t")
	if i < 0 {
		return Predicate{}, invalid(CodeMissingOperator, key, value,
			"the operator is missing in the predicate expression")
	}
	op, err := ParseOp(key[i+1:])
	if err != nil {
		return Predicate{}, invalid(CodeUnsupportedOperator, key, value,
			"unsupported operator %q", strings.TrimSpace(key[i+1:]))
	}
	return Predicate{Field: key[:i], Op: op, Value: value}, nil
}

func (p Predicate) validate() error {
	if p.Field == "" {
		return invalid(CodeEmptyField, "", p.Value, "predicate has no field name")
	}
	if !p.Op.Valid() {
		return invalid(CodeUnsupportedOperator, p.Field, p.Value, "unsupported operator %d", int(p.Op))
	}
	if p.Op.list() {
		if vs, ok := listValues(p.Value); ok && len(vs) == 0 {
			return invalid(CodeEmptyInList, p.Field, p.Value, "%s requires at least one value", p.Op)
		}
	}
	return nil
}

// listValues returns the elements of a slice or array value, one level
// deep. []byte is a scalar.
func listValues(v any) ([]any, bool) {
	switch vs := v.(type) {
	case nil, []byte:
		return nil, false
	case []any:
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Group is an ordered set of predicates joined with AND.
type Group []Predicate

// And groups predicates; their order fixes the parameter order.
func And(preds ...Predicate) Group { return Group(preds) }

// Conditions is a list of groups joined with OR. An empty Conditions
// renders no clause at all.
type Conditions []Group

// Or joins groups.
func Or(groups ...Group) Conditions { return Conditions(groups) }

// Where is shorthand for a single AND group.
func Where(preds ...Predicate) Conditions {
	if len(preds) == 0 {
		return nil
	}
	return Conditions{Group(preds)}
}

func (c Conditions) validate() error {
	for _, g := range c {
		if len(g) == 0 {
			return invalid(CodeEmptyCondition, "", nil, "condition group has no predicates")
		}
		for _, p := range g {
			if err := p.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
