package records

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFields_CanonicalOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		"Customer_Name", "Customer_ID", "Open_Date", "Last_Consulted_Date",
		"Vaccination_ID", "Dr_Name", "State", "Country", "Postal_Code", "DOB", "Is_Active",
	}
	got := FieldNames()
	if len(got) != len(want) {
		t.Fatalf("len(FieldNames())=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FieldNames()[%d]=%q, want %q", i, got[i], want[i])
		}
		if IndexOf(want[i]) != i {
			t.Fatalf("IndexOf(%q)=%d, want %d", want[i], IndexOf(want[i]), i)
		}
	}
	if IndexOf("nope") != -1 {
		t.Fatalf("IndexOf(unknown) should be -1")
	}

	var pk []string
	for _, f := range Fields {
		if f.PrimaryKey {
			pk = append(pk, f.Name)
		}
	}
	if len(pk) != 1 || pk[0] != CustomerID {
		t.Fatalf("primary key columns=%v, want [Customer_ID]", pk)
	}
	if Fields[IndexOf(PostalCode)].Type != TypeInteger {
		t.Fatalf("Postal_Code must be INTEGER")
	}
}

func TestFieldNames_ReturnsCopy(t *testing.T) {
	t.Parallel()

	n := FieldNames()
	n[0] = "mutated"
	if Fields[0].Name != CustomerName {
		t.Fatalf("FieldNames leaked internal state")
	}
}

func TestRecord_GetSetAccessors(t *testing.T) {
	t.Parallel()

	r := New(7)
	if err := r.Set(Country, "US"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Set(CustomerID, "C1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Set(PostalCode, int64(94000)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Set("Unknown", "x"); err == nil {
		t.Fatalf("Set(unknown) err=nil, want error")
	}

	if r.Country() != "US" || r.CustomerID() != "C1" {
		t.Fatalf("Country=%q CustomerID=%q", r.Country(), r.CustomerID())
	}
	if got := r.Get(PostalCode); got != int64(94000) {
		t.Fatalf("Get(Postal_Code)=%v (%T)", got, got)
	}
	if r.Get("Unknown") != nil {
		t.Fatalf("Get(unknown) should be nil")
	}

	vals := r.Values()
	vals[IndexOf(Country)] = "CA"
	if r.Country() != "US" {
		t.Fatalf("Values() must return a copy")
	}
}

func TestError_IsMatchesByKind(t *testing.T) {
	t.Parallel()

	base := &Error{Kind: KindDuplicateKey, Partition: "US", Key: "C1", Err: errors.New("constraint")}
	wrapped := fmt.Errorf("line 3: %w", base)

	if !errors.Is(wrapped, ErrDuplicateKey) {
		t.Fatalf("errors.Is(wrapped, ErrDuplicateKey)=false")
	}
	if errors.Is(wrapped, ErrSchemaMismatch) {
		t.Fatalf("errors.Is(wrapped, ErrSchemaMismatch)=true")
	}
	if KindOf(wrapped) != KindDuplicateKey {
		t.Fatalf("KindOf=%q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("KindOf(plain) should be empty")
	}

	msg := base.Error()
	for _, sub := range []string{"DuplicateKey", `partition="US"`, `key="C1"`, "constraint"} {
		if !strings.Contains(msg, sub) {
			t.Fatalf("Error()=%q, want contains %q", msg, sub)
		}
	}
}

func TestWithLine_FillsOnlyWhenUnset(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindInvalidFieldValue, Field: PostalCode}
	_ = WithLine(fmt.Errorf("wrap: %w", e), 12)
	if e.Line != 12 {
		t.Fatalf("Line=%d, want 12", e.Line)
	}
	_ = WithLine(e, 99)
	if e.Line != 12 {
		t.Fatalf("Line overwritten: %d", e.Line)
	}
	if err := WithLine(errors.New("plain"), 3); err == nil {
		t.Fatalf("WithLine must return its input")
	}
}
