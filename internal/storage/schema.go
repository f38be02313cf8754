// To keep backends interchangeable, the table model lives here where both the
// pipeline and every backend package can import it without cycles.
package storage

import "github.com/henil-shah-98/incubyte-test/internal/records"

type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

type ColumnSpec struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// PartitionTable returns the fixed partition table definition under name.
// Column order is records.Fields order.
func PartitionTable(name string) TableSpec {
	cols := make([]ColumnSpec, len(records.Fields))
	for i, f := range records.Fields {
		cols[i] = ColumnSpec{
			Name:       f.Name,
			Type:       f.Type,
			Nullable:   f.Nullable,
			PrimaryKey: f.PrimaryKey,
		}
	}
	return TableSpec{Name: name, Columns: cols}
}

// ColumnNames returns the column names of t in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
