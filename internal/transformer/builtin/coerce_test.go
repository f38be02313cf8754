package builtin

import (
	"errors"
	"testing"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

func recordWithPostal(v any) records.Record {
	r := records.New(4)
	_ = r.Set(records.PostalCode, v)
	return r
}

func TestCoerce_PostalCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    any
		wantErr bool
	}{
		{name: "plain", in: "12345", want: int64(12345)},
		{name: "edge_spaces", in: " 94000 ", want: int64(94000)},
		{name: "negative", in: "-7", want: int64(-7)},
		{name: "letters", in: "12A45", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "float", in: "1.5", wantErr: true},
		{name: "already_typed", in: int64(5), want: int64(5)},
		{name: "nil_left_alone", in: nil, want: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := recordWithPostal(tc.in)
			err := DefaultCoerce.Apply(r)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Apply(%v) err=%v wantErr=%v", tc.in, err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, records.ErrInvalidFieldValue) {
					t.Fatalf("err=%v, want InvalidFieldValue", err)
				}
				e, _ := records.AsError(err)
				if e.Field != records.PostalCode || e.Line != 4 {
					t.Fatalf("field=%q line=%d, want Postal_Code line 4", e.Field, e.Line)
				}
				return
			}
			if got := r.Get(records.PostalCode); got != tc.want {
				t.Fatalf("Postal_Code=%v (%T), want %v (%T)", got, got, tc.want, tc.want)
			}
		})
	}
}

func TestCoerce_UnsupportedType(t *testing.T) {
	t.Parallel()

	c := Coerce{Types: map[string]string{records.State: "date"}}
	r := records.New(1)
	_ = r.Set(records.State, "CA")
	if err := c.Apply(r); err == nil {
		t.Fatalf("Apply err=nil, want unsupported type error")
	}
}

func TestHasEdgeSpace(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{"": false, "a": false, " a": true, "a\t": true, "a b": false} {
		if got := HasEdgeSpace(in); got != want {
			t.Fatalf("HasEdgeSpace(%q)=%v, want %v", in, got, want)
		}
	}
}
