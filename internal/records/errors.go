package records

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an ingestion failure. Every kind is fatal for the run.
type Kind string

const (
	KindSchemaMismatch       Kind = "SchemaMismatch"
	KindInvalidFieldValue    Kind = "InvalidFieldValue"
	KindInvalidPartitionName Kind = "InvalidPartitionName"
	KindDuplicateKey         Kind = "DuplicateKey"
	KindStorageUnavailable   Kind = "StorageUnavailable"
	KindInputUnreadable      Kind = "InputUnreadable"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrSchemaMismatch       = &Error{Kind: KindSchemaMismatch}
	ErrInvalidFieldValue    = &Error{Kind: KindInvalidFieldValue}
	ErrInvalidPartitionName = &Error{Kind: KindInvalidPartitionName}
	ErrDuplicateKey         = &Error{Kind: KindDuplicateKey}
	ErrStorageUnavailable   = &Error{Kind: KindStorageUnavailable}
	ErrInputUnreadable      = &Error{Kind: KindInputUnreadable}
)

// Error is a structured ingestion failure. Zero-valued context fields are
// omitted from the message.
type Error struct {
	Kind      Kind
	Line      int
	Field     string
	Partition string
	Key       string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Line > 0 {
		fmt.Fprintf(&b, " line=%d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Partition != "" {
		fmt.Fprintf(&b, " partition=%q", e.Partition)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " key=%q", e.Key)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// WithLine fills in Line on the first *Error in err's chain when it is unset.
func WithLine(err error, line int) error {
	if e, ok := AsError(err); ok && e.Line == 0 {
		e.Line = line
	}
	return err
}
