// Package partition derives partition keys from records and maps them to
// storage identifiers.
//
// A partition key is the Country value of a record, taken verbatim. Keys are
// never spliced into SQL as-is: TableName only accepts keys drawn from a
// fixed safe character set and rejects everything else with an
// InvalidPartitionName error.
//
// Keys are case-sensitive but SQL identifiers are not, so the table suffix
// is an escaped form of the key: uppercase letters and digits are kept,
// a lowercase letter c becomes "_c" and an underscore becomes "__". "US"
// maps to table_US and "us" to table__u_s, and no two keys map to names
// that differ only by case.
package partition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

// DefaultTablePrefix reproduces the table_<country> naming scheme.
const DefaultTablePrefix = "table_"

// MaxKeyLen bounds partition keys so table names stay well inside identifier
// limits of every backend.
const MaxKeyLen = 64

var (
	keyRe    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	prefixRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Key returns the partition key of rec: its Country value, case-sensitive and
// unnormalized.
func Key(rec records.Record) string { return rec.Country() }

// ValidateKey reports whether key can be used as a partition identifier.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return &records.Error{Kind: records.KindInvalidPartitionName, Msg: "partition key is empty"}
	case len(key) > MaxKeyLen:
		return &records.Error{
			Kind:      records.KindInvalidPartitionName,
			Partition: key,
			Msg:       fmt.Sprintf("partition key longer than %d bytes", MaxKeyLen),
		}
	case !keyRe.MatchString(key):
		return &records.Error{
			Kind:      records.KindInvalidPartitionName,
			Partition: key,
			Msg:       "partition key may only contain ASCII letters, digits and underscore",
		}
	}
	return nil
}

// ValidatePrefix checks a table prefix. An empty prefix is invalid because a
// bare key could start with a digit.
func ValidatePrefix(prefix string) error {
	if !prefixRe.MatchString(prefix) {
		return fmt.Errorf("partition: invalid table prefix %q", prefix)
	}
	return nil
}

// TableName maps key to its table identifier (prefix + escaped key).
func TableName(prefix, key string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	ident, err := Ident(key)
	if err != nil {
		return "", err
	}
	return prefix + ident, nil
}

// Ident returns the escaped identifier form of key. Two distinct keys never
// yield identifiers that are equal under ASCII case folding.
func Ident(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(key) * 2)
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || c == '_' {
			b.WriteByte('_')
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// FoldedIdent is Ident folded to lower case: the name a case-insensitive
// catalog compares. Distinct keys keep distinct folded identifiers.
func FoldedIdent(key string) (string, error) {
	ident, err := Ident(key)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ident), nil
}

// KeyFromTable is the inverse of TableName. ok is false when table does not
// carry prefix or the remainder is not an escaped valid key.
func KeyFromTable(prefix, table string) (key string, ok bool) {
	if !strings.HasPrefix(table, prefix) {
		return "", false
	}
	ident := strings.TrimPrefix(table, prefix)

	var b strings.Builder
	b.Grow(len(ident))
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		switch {
		case c == '_':
			if i+1 >= len(ident) {
				return "", false
			}
			i++
			n := ident[i]
			if n != '_' && (n < 'a' || n > 'z') {
				return "", false
			}
			b.WriteByte(n)
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			return "", false
		}
	}
	key = b.String()
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}
