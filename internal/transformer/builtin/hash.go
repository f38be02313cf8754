package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

// Hash computes a deterministic 64-bit xxh3 fingerprint over selected fields
// of a record. It is an equality key for rows seen in one run, not a
// cryptographic digest.
//
// Canonicalization rules:
//   - Fields are concatenated in the given order using Separator.
//   - Missing or nil values are encoded as a single NUL byte (0x00) so missing
//     differs from empty-string.
//   - Output is a lowercase hex string (length 16).
type Hash struct {
	// Fields is the ordered list of input fields used to compute the hash.
	Fields []string

	// IncludeFieldNames includes "field=value" in the canonical form.
	IncludeFieldNames bool

	// Separator between field components. Defaults to ASCII Unit Separator (0x1f).
	Separator string

	// TrimSpace trims leading/trailing ASCII whitespace of string values.
	TrimSpace bool
}

// DefaultFingerprint hashes every canonical customer field, untrimmed.
var DefaultFingerprint = Hash{Fields: records.FieldNames(), IncludeFieldNames: true}

// Sum returns the hex fingerprint of rec.
func (h Hash) Sum(rec records.Record) string {
	sep := h.Separator
	if sep == "" {
		sep = "\x1f"
	}

	var b strings.Builder
	b.Grow(len(h.Fields) * 20)

	for i, f := range h.Fields {
		if i > 0 {
			b.WriteString(sep)
		}
		if h.IncludeFieldNames {
			b.WriteString(f)
			b.WriteByte('=')
		}
		appendCanonicalValue(&b, rec.Get(f), h.TrimSpace)
	}

	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}

// appendCanonicalValue appends a stable representation of v. Postal_Code is
// an int64 after coercion, everything else a string.
func appendCanonicalValue(b *strings.Builder, v any, trimSpace bool) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')
	case string:
		if trimSpace && HasEdgeSpace(t) {
			t = strings.TrimSpace(t)
		}
		b.WriteString(t)
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case int:
		b.WriteString(strconv.Itoa(t))
	default:
		b.WriteString(fmt.Sprint(t))
	}
}
