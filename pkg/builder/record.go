package builder

import "fmt"

// Pair is one field/value entry of a Record.
type Pair struct {
	Field string
	Value any
}

// Record is an ordered field/value list. Its order fixes both the column
// order and the parameter order of the generated statement.
type Record []Pair

// Rec builds a Record from alternating field names and values:
//
//	builder.Rec("name", "a", "age", 1)
//
// It panics if kv has odd length or a field name is not a string.
func Rec(kv ...any) Record {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("builder.Rec: odd number of arguments (%d)", len(kv)))
	}
	r := make(Record, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		field, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("builder.Rec: field name at position %d is %T, not string", i, kv[i]))
		}
		r = append(r, Pair{Field: field, Value: kv[i+1]})
	}
	return r
}

// Set replaces the value of field, or appends it if absent.
func (r Record) Set(field string, v any) Record {
	for i := range r {
		if r[i].Field == field {
			r[i].Value = v
			return r
		}
	}
	return append(r, Pair{Field: field, Value: v})
}

// Get returns the value of field.
func (r Record) Get(field string) (any, bool) {
	for _, p := range r {
		if p.Field == field {
			return p.Value, true
		}
	}
	return nil, false
}

// Fields returns the field names in order.
func (r Record) Fields() []string {
	fields := make([]string, len(r))
	for i, p := range r {
		fields[i] = p.Field
	}
	return fields
}

// Values returns the values in field order.
func (r Record) Values() []any {
	values := make([]any, len(r))
	for i, p := range r {
		values[i] = p.Value
	}
	return values
}

// sameFields reports whether r and other name the same fields in the same order.
func (r Record) sameFields(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i].Field != other[i].Field {
			return false
		}
	}
	return true
}

func (r Record) validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, p := range r {
		if p.Field == "" {
			return invalid(CodeEmptyField, "", p.Value, "record has an empty field name")
		}
		if _, dup := seen[p.Field]; dup {
			return invalid(CodeDuplicateField, p.Field, p.Value, "field appears more than once in the record")
		}
		seen[p.Field] = struct{}{}
	}
	return nil
}
