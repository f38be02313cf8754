package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

type fakeStore struct{ cfg Config }

func (f *fakeStore) Partitions(context.Context) ([]string, error)                 { return nil, nil }
func (f *fakeStore) ReadPartition(context.Context, string) ([][]any, error)       { return nil, nil }
func (f *fakeStore) EnsurePartition(context.Context, string) error                { return nil }
func (f *fakeStore) WritePartition(context.Context, string, records.Record) error { return nil }
func (f *fakeStore) Commit() error                                                { return nil }
func (f *fakeStore) Close() error                                                 { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("fake-test", func(_ context.Context, cfg Config) (PartitionStore, error) {
		return &fakeStore{cfg: cfg}, nil
	})

	s, err := New(context.Background(), Config{Kind: "fake-test", DSN: "x", TablePrefix: "t_"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fs, ok := s.(*fakeStore)
	if !ok {
		t.Fatalf("New returned %T", s)
	}
	if fs.cfg.DSN != "x" || fs.cfg.TablePrefix != "t_" {
		t.Fatalf("config not forwarded: %+v", fs.cfg)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds()=%v, want contains fake-test", Kinds())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("New(empty kind) err=nil")
	}
	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Fatalf("New(unknown kind) err=%v", err)
	}
}

func TestRegister_PanicsOnMisuse(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	ok := func(context.Context, Config) (PartitionStore, error) { return &fakeStore{}, nil }
	Register("dup-test", ok)

	mustPanic("empty kind", func() { Register("", ok) })
	mustPanic("nil factory", func() { Register("nil-test", nil) })
	mustPanic("duplicate", func() { Register("dup-test", ok) })
}

func TestPartitionTable_FollowsCanonicalFields(t *testing.T) {
	t.Parallel()

	spec := PartitionTable("table_US")
	if spec.Name != "table_US" {
		t.Fatalf("Name=%q", spec.Name)
	}
	names := spec.ColumnNames()
	want := records.FieldNames()
	if len(names) != len(want) {
		t.Fatalf("columns=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("column[%d]=%q, want %q", i, names[i], want[i])
		}
	}
	if !spec.Columns[1].PrimaryKey || spec.Columns[1].Name != records.CustomerID {
		t.Fatalf("Customer_ID must be the primary key: %+v", spec.Columns[1])
	}
	if spec.Columns[0].Nullable || spec.Columns[2].Nullable {
		t.Fatalf("Customer_Name and Open_Date must be NOT NULL")
	}
}
