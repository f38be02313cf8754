// Package pipe parses the line-oriented, pipe-delimited customer format:
//
//	|H|Customer_Name|Customer_ID|...     header: declares field order
//	|D|Alice|C1|...                      data: values in header order
//	anything else                        ignored
//
// There is no escaping; a literal delimiter cannot appear inside a value.
package pipe

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/transformer/builtin"
)

// LineKind classifies an input line by its marker.
type LineKind int

const (
	LineIgnored LineKind = iota
	LineHeader
	LineData
)

func (k LineKind) String() string {
	switch k {
	case LineHeader:
		return "header"
	case LineData:
		return "data"
	default:
		return "ignored"
	}
}

// Line is one classified input line. Fields is nil for ignored lines.
type Line struct {
	Num    int
	Kind   LineKind
	Fields []string
}

const maxLineBytes = 4 << 20

// Scan classifies every line of r in order and calls fn for each. Trailing
// CR/LF are removed before classification. Read failures are reported as
// InputUnreadable; errors returned by fn stop the scan and are returned as is.
func Scan(ctx context.Context, r io.Reader, opt Options, fn func(Line) error) error {
	opt = opt.withDefaults()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n++
		text := strings.TrimRight(sc.Text(), "\r\n")

		ln := Line{Num: n}
		switch {
		case strings.HasPrefix(text, opt.HeaderMarker):
			ln.Kind = LineHeader
			ln.Fields = strings.Split(text[len(opt.HeaderMarker):], opt.Delimiter)
		case strings.HasPrefix(text, opt.DataMarker):
			ln.Kind = LineData
			ln.Fields = strings.Split(text[len(opt.DataMarker):], opt.Delimiter)
		}
		if err := fn(ln); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &records.Error{Kind: records.KindInputUnreadable, Line: n + 1, Msg: "read input", Err: err}
	}
	return nil
}

// Parse reads all records from r.
//
// By default each data line binds to the header active when it was read, and
// a data line before any header is a SchemaMismatch. With BindFinalHeader,
// data lines are queued and bound to the last header after the scan.
//
// Every record passes through builtin.DefaultCoerce, so Postal_Code is an
// int64 on success. The first failure aborts parsing.
func Parse(ctx context.Context, r io.Reader, opt Options) ([]records.Record, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	var (
		schema  *Schema
		out     []records.Record
		pending []Line
	)

	bind := func(s *Schema, ln Line) error {
		rec, err := s.Bind(ln.Fields, ln.Num)
		if err != nil {
			return err
		}
		if err := builtin.DefaultCoerce.Apply(rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	}

	err := Scan(ctx, r, opt, func(ln Line) error {
		switch ln.Kind {
		case LineHeader:
			s, err := NewSchema(ln.Fields, ln.Num)
			if err != nil {
				return err
			}
			schema = s
		case LineData:
			if opt.BindFinalHeader {
				pending = append(pending, ln)
				return nil
			}
			if schema == nil {
				return &records.Error{Kind: records.KindSchemaMismatch, Line: ln.Num, Msg: "data line before any header line"}
			}
			return bind(schema, ln)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(pending) > 0 {
		if schema == nil {
			return nil, &records.Error{Kind: records.KindSchemaMismatch, Line: pending[0].Num, Msg: "no header line in input"}
		}
		for _, ln := range pending {
			if err := bind(schema, ln); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
