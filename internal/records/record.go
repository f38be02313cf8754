package records

import "fmt"

// Record is one customer row. V is aligned to Fields; Line is the 1-based
// input line the row came from (0 when unknown).
type Record struct {
	V    []any
	Line int
}

// New returns an empty Record sized to the canonical schema.
func New(line int) Record {
	return Record{V: make([]any, len(Fields)), Line: line}
}

// Get returns the value stored for the named field, or nil when the field is
// not part of the canonical schema.
func (r Record) Get(name string) any {
	i := IndexOf(name)
	if i < 0 || i >= len(r.V) {
		return nil
	}
	return r.V[i]
}

// Set stores v under the named field.
func (r Record) Set(name string, v any) error {
	i := IndexOf(name)
	if i < 0 {
		return fmt.Errorf("records: unknown field %q", name)
	}
	if i >= len(r.V) {
		return fmt.Errorf("records: record has %d values, field %q is at %d", len(r.V), name, i)
	}
	r.V[i] = v
	return nil
}

// Country is the partition attribute, returned verbatim.
func (r Record) Country() string { return text(r.Get(Country)) }

// CustomerID is the natural key of the record.
func (r Record) CustomerID() string { return text(r.Get(CustomerID)) }

// Values returns the bind values in canonical column order.
func (r Record) Values() []any {
	out := make([]any, len(Fields))
	copy(out, r.V)
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
