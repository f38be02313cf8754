package pipe

import (
	"fmt"
	"strings"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

// Schema is the ordered field list declared by one header line, resolved
// against the canonical customer columns.
type Schema struct {
	Names []string
	Line  int

	// pos[i] is the canonical index of header position i.
	pos []int
}

// NewSchema validates a header. Every canonical field must be declared
// exactly once, in any order, and nothing else may be declared.
func NewSchema(names []string, line int) (*Schema, error) {
	pos := make([]int, len(names))
	seen := make(map[int]bool, len(names))
	var unknown, dup []string

	for i, n := range names {
		ci := records.IndexOf(n)
		pos[i] = ci
		switch {
		case ci < 0:
			unknown = append(unknown, n)
		case seen[ci]:
			dup = append(dup, n)
		default:
			seen[ci] = true
		}
	}

	var missing []string
	for i, f := range records.Fields {
		if !seen[i] {
			missing = append(missing, f.Name)
		}
	}

	if len(unknown)+len(dup)+len(missing) > 0 {
		var parts []string
		if len(unknown) > 0 {
			parts = append(parts, "unknown fields "+quoteAll(unknown))
		}
		if len(dup) > 0 {
			parts = append(parts, "duplicate fields "+quoteAll(dup))
		}
		if len(missing) > 0 {
			parts = append(parts, "missing fields "+quoteAll(missing))
		}
		return nil, &records.Error{
			Kind: records.KindSchemaMismatch,
			Line: line,
			Msg:  "header " + strings.Join(parts, "; "),
		}
	}

	return &Schema{Names: append([]string(nil), names...), Line: line, pos: pos}, nil
}

// Bind zips values against the schema positionally into a canonical record.
// Values are stored verbatim as strings.
func (s *Schema) Bind(values []string, line int) (records.Record, error) {
	if len(values) != len(s.Names) {
		return records.Record{}, &records.Error{
			Kind: records.KindSchemaMismatch,
			Line: line,
			Msg:  fmt.Sprintf("data line has %d fields, header on line %d declares %d", len(values), s.Line, len(s.Names)),
		}
	}
	rec := records.New(line)
	for i, v := range values {
		rec.V[s.pos[i]] = v
	}
	return rec, nil
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(q, " ") + "]"
}
