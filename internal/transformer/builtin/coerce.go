// Package builtin contains simple, reusable transformers used in the ETL.
package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

// Supported coercion targets.
const (
	TypeInt  = "int"
	TypeText = "text"
)

// Coerce converts selected text fields of a record to typed values in place.
//
// Unlike a lenient cleanup transform, Coerce is strict: a value that cannot be
// converted fails the record with an InvalidFieldValue error naming the field.
// Fields that are absent or already typed are left alone.
type Coerce struct {
	// Types maps field name -> target type (TypeInt or TypeText).
	Types map[string]string
}

// DefaultCoerce is the coercion applied to every customer record.
var DefaultCoerce = Coerce{Types: map[string]string{records.PostalCode: TypeInt}}

// Apply coerces rec in place.
func (c Coerce) Apply(rec records.Record) error {
	for field, typ := range c.Types {
		i := records.IndexOf(field)
		if i < 0 || i >= len(rec.V) {
			continue
		}
		s, ok := rec.V[i].(string)
		if !ok {
			continue
		}
		switch typ {
		case TypeInt:
			n, err := ParseInt(s)
			if err != nil {
				return &records.Error{
					Kind:  records.KindInvalidFieldValue,
					Line:  rec.Line,
					Field: field,
					Msg:   fmt.Sprintf("%q is not a base-10 integer", s),
					Err:   err,
				}
			}
			rec.V[i] = n
		case TypeText, "":
		default:
			return fmt.Errorf("coerce: unsupported type %q for field %s", typ, field)
		}
	}
	return nil
}

// ParseInt parses a base-10 signed integer, tolerating surrounding spaces.
func ParseInt(s string) (int64, error) {
	if HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	return strconv.ParseInt(s, 10, 64)
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
