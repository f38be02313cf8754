package pipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/henil-shah-98/incubyte-test/internal/config"
	"github.com/henil-shah-98/incubyte-test/internal/records"
)

const header = "|H|Customer_Name|Customer_ID|Open_Date|Last_Consulted_Date|Vaccination_ID|Dr_Name|State|Country|Postal_Code|DOB|Is_Active"

const sample = header + "\n" +
	"|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y\n" +
	"|D|Bob|C2|2020-02-02||V2|DrY|ON|CA|90001|1991-02-02|Y\n"

func parse(t *testing.T, in string, opt Options) ([]records.Record, error) {
	t.Helper()
	return Parse(context.Background(), strings.NewReader(in), opt)
}

func TestParse_SampleScenario(t *testing.T) {
	t.Parallel()

	recs, err := parse(t, sample, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs)=%d, want 2", len(recs))
	}

	a := recs[0]
	if a.Line != 2 {
		t.Fatalf("Line=%d, want 2", a.Line)
	}
	checks := map[string]any{
		records.CustomerName:      "Alice",
		records.CustomerID:        "C1",
		records.OpenDate:          "2020-01-01",
		records.LastConsultedDate: "",
		records.VaccinationID:     "V1",
		records.DrName:            "DrX",
		records.State:             "CA",
		records.Country:           "US",
		records.PostalCode:        int64(94000),
		records.DOB:               "1990-01-01",
		records.IsActive:          "Y",
	}
	for f, want := range checks {
		if got := a.Get(f); got != want {
			t.Fatalf("%s=%#v, want %#v", f, got, want)
		}
	}
	if recs[1].Country() != "CA" || recs[1].Get(records.PostalCode) != int64(90001) {
		t.Fatalf("second record=%v", recs[1].V)
	}
}

func TestParse_HeaderOrderIsIndependentOfColumnOrder(t *testing.T) {
	t.Parallel()

	in := "|H|Country|Is_Active|DOB|Postal_Code|State|Dr_Name|Vaccination_ID|Last_Consulted_Date|Open_Date|Customer_ID|Customer_Name\n" +
		"|D|US|Y|1990-01-01|94000|CA|DrX|V1||2020-01-01|C1|Alice\n"
	recs, err := parse(t, in, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := recs[0]
	if r.Get(records.CustomerName) != "Alice" || r.CustomerID() != "C1" || r.Country() != "US" {
		t.Fatalf("record=%v", r.V)
	}
	// Values() must follow canonical order, not header order.
	if v := r.Values(); v[0] != "Alice" || v[1] != "C1" {
		t.Fatalf("Values()=%v", v)
	}
}

func TestParse_IgnoresOtherLinesAndCRLF(t *testing.T) {
	t.Parallel()

	in := "# comment\r\n\r\n" + header + "\r\n" +
		"|X|junk\r\n" +
		"H|not a header\r\n" +
		"|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y\r\n"
	recs, err := parse(t, in, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs)=%d, want 1", len(recs))
	}
	if got := recs[0].Get(records.IsActive); got != "Y" {
		t.Fatalf("Is_Active=%q, want Y without line ending", got)
	}
	if recs[0].Line != 6 {
		t.Fatalf("Line=%d, want 6", recs[0].Line)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		opt      Options
		wantKind records.Kind
		wantLine int
		wantMsg  string
	}{
		{
			name:     "short_row",
			in:       header + "\n|D|Alice|C1\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 2,
			wantMsg:  "has 2 fields",
		},
		{
			name:     "long_row",
			in:       header + "\n|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y|extra\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 2,
		},
		{
			name:     "data_before_header",
			in:       "|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y\n" + header + "\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 1,
			wantMsg:  "before any header",
		},
		{
			name:     "no_header_final_mode",
			in:       "|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y\n",
			opt:      Options{BindFinalHeader: true},
			wantKind: records.KindSchemaMismatch,
			wantLine: 1,
			wantMsg:  "no header",
		},
		{
			name:     "header_missing_field",
			in:       "|H|Customer_Name|Customer_ID\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 1,
			wantMsg:  "missing fields",
		},
		{
			name:     "header_unknown_field",
			in:       header + "|Email\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 1,
			wantMsg:  `unknown fields ["Email"]`,
		},
		{
			name:     "header_duplicate_field",
			in:       strings.Replace(header, "Is_Active", "DOB", 1) + "\n",
			wantKind: records.KindSchemaMismatch,
			wantLine: 1,
			wantMsg:  "duplicate fields",
		},
		{
			name:     "bad_postal_code",
			in:       header + "\n|D|Alice|C1|2020-01-01||V1|DrX|CA|US|12A45|1990-01-01|Y\n",
			wantKind: records.KindInvalidFieldValue,
			wantLine: 2,
			wantMsg:  "12A45",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recs, err := parse(t, tc.in, tc.opt)
			if err == nil {
				t.Fatalf("Parse err=nil, recs=%d", len(recs))
			}
			e, ok := records.AsError(err)
			if !ok {
				t.Fatalf("err=%T %v, want *records.Error", err, err)
			}
			if e.Kind != tc.wantKind {
				t.Fatalf("kind=%s, want %s (%v)", e.Kind, tc.wantKind, err)
			}
			if e.Line != tc.wantLine {
				t.Fatalf("line=%d, want %d (%v)", e.Line, tc.wantLine, err)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("err=%q, want contains %q", err.Error(), tc.wantMsg)
			}
			if tc.wantKind == records.KindInvalidFieldValue && e.Field != records.PostalCode {
				t.Fatalf("field=%q, want Postal_Code", e.Field)
			}
		})
	}
}

// reordered is the canonical header with Customer_Name and Customer_ID swapped.
const reordered = "|H|Customer_ID|Customer_Name|Open_Date|Last_Consulted_Date|Vaccination_ID|Dr_Name|State|Country|Postal_Code|DOB|Is_Active"

func TestParse_HeaderBindingModes(t *testing.T) {
	t.Parallel()

	in := header + "\n" +
		"|D|Alice|C1|2020-01-01||V1|DrX|CA|US|94000|1990-01-01|Y\n" +
		reordered + "\n" +
		"|D|C2|Bob|2020-02-02||V2|DrY|ON|CA|90001|1991-02-02|Y\n"

	t.Run("streaming_binds_at_read_time", func(t *testing.T) {
		t.Parallel()
		recs, err := parse(t, in, Options{})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if recs[0].CustomerID() != "C1" || recs[1].CustomerID() != "C2" {
			t.Fatalf("ids=%q,%q want C1,C2", recs[0].CustomerID(), recs[1].CustomerID())
		}
	})

	t.Run("final_header_rebinds_earlier_rows", func(t *testing.T) {
		t.Parallel()
		recs, err := parse(t, in, Options{BindFinalHeader: true})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		// The first data line is re-read with the later header, so name and id swap.
		if recs[0].CustomerID() != "Alice" || recs[0].Get(records.CustomerName) != "C1" {
			t.Fatalf("first record=%v", recs[0].V)
		}
		if recs[1].CustomerID() != "C2" {
			t.Fatalf("second record=%v", recs[1].V)
		}
	})
}

func TestParse_CustomMarkersFromOptions(t *testing.T) {
	t.Parallel()

	opt := OptionsFrom(config.Options{"delimiter": ";", "header_marker": "#H#", "data_marker": "#D#"})
	in := "#H#" + strings.ReplaceAll(strings.TrimPrefix(header, "|H|"), "|", ";") + "\n" +
		"#D#Alice;C1;2020-01-01;;V1;DrX;CA;US;94000;1990-01-01;Y\n" +
		"|D|ignored|line\n"
	recs, err := parse(t, in, opt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 1 || recs[0].CustomerID() != "C1" {
		t.Fatalf("recs=%v", recs)
	}
}

func TestOptions_ValidateRejectsOverlappingMarkers(t *testing.T) {
	t.Parallel()

	if err := (Options{HeaderMarker: "|D|", DataMarker: "|D|"}).Validate(); err == nil {
		t.Fatalf("Validate err=nil for equal markers")
	}
	if err := (Options{HeaderMarker: "|", DataMarker: "|D|"}).Validate(); err == nil {
		t.Fatalf("Validate err=nil for overlapping markers")
	}
	if err := (Options{}).Validate(); err != nil {
		t.Fatalf("Validate(defaults)=%v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadFailureIsInputUnreadable(t *testing.T) {
	t.Parallel()

	_, err := Parse(context.Background(), failingReader{}, Options{})
	if !errors.Is(err, records.ErrInputUnreadable) {
		t.Fatalf("err=%v, want InputUnreadable", err)
	}
}

func TestNewDecodingReader(t *testing.T) {
	t.Parallel()

	t.Run("strips_utf8_bom", func(t *testing.T) {
		t.Parallel()
		r, err := NewDecodingReader(strings.NewReader("\ufeff"+sample), "")
		if err != nil {
			t.Fatalf("NewDecodingReader: %v", err)
		}
		recs, err := Parse(context.Background(), r, Options{})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("len(recs)=%d, want 2", len(recs))
		}
	})

	t.Run("windows_1252", func(t *testing.T) {
		t.Parallel()
		utf := strings.Replace(sample, "Alice", "Zoë", 1)
		encoded, err := charmap.Windows1252.NewEncoder().String(utf)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		r, err := NewDecodingReader(bytes.NewReader([]byte(encoded)), "windows-1252")
		if err != nil {
			t.Fatalf("NewDecodingReader: %v", err)
		}
		b, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(string(b), "|D|Zoë|C1|") {
			t.Fatalf("decoded=%q", string(b))
		}
	})

	t.Run("unknown_encoding", func(t *testing.T) {
		t.Parallel()
		if _, err := NewDecodingReader(strings.NewReader(""), "ebcdic"); err == nil {
			t.Fatalf("err=nil, want unsupported encoding")
		}
	})
}

func TestScan_ClassifiesLines(t *testing.T) {
	t.Parallel()

	var kinds []LineKind
	err := Scan(context.Background(), strings.NewReader("x\n"+header+"\n|D|a|b\n"), Options{}, func(ln Line) error {
		kinds = append(kinds, ln.Kind)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []LineKind{LineIgnored, LineHeader, LineData}
	if len(kinds) != len(want) {
		t.Fatalf("kinds=%v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds[%d]=%s, want %s", i, kinds[i], want[i])
		}
	}
}
