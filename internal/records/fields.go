// Package records holds the canonical customer record model shared by the
// parser, the storage backends and the report.
//
// The column order of every partition table and the bind order of every
// insert both come from Fields. Nothing else in the module is allowed to
// decide column order.
package records

// Column types used by the fixed partition table.
const (
	TypeText    = "TEXT"
	TypeInteger = "INTEGER"
)

// Field names as they appear in the input header and in the partition tables.
const (
	CustomerName      = "Customer_Name"
	CustomerID        = "Customer_ID"
	OpenDate          = "Open_Date"
	LastConsultedDate = "Last_Consulted_Date"
	VaccinationID     = "Vaccination_ID"
	DrName            = "Dr_Name"
	State             = "State"
	Country           = "Country"
	PostalCode        = "Postal_Code"
	DOB               = "DOB"
	IsActive          = "Is_Active"
)

// Field describes one canonical column.
type Field struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// Fields is the canonical, ordered customer schema.
var Fields = []Field{
	{Name: CustomerName, Type: TypeText, Nullable: false},
	{Name: CustomerID, Type: TypeText, PrimaryKey: true},
	{Name: OpenDate, Type: TypeText, Nullable: false},
	{Name: LastConsultedDate, Type: TypeText, Nullable: true},
	{Name: VaccinationID, Type: TypeText, Nullable: true},
	{Name: DrName, Type: TypeText, Nullable: true},
	{Name: State, Type: TypeText, Nullable: true},
	{Name: Country, Type: TypeText, Nullable: true},
	{Name: PostalCode, Type: TypeInteger, Nullable: true},
	{Name: DOB, Type: TypeText, Nullable: true},
	{Name: IsActive, Type: TypeText, Nullable: true},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(Fields))
	for i, f := range Fields {
		m[f.Name] = i
	}
	return m
}()

// FieldNames returns the canonical column names in order. The returned slice
// is a copy.
func FieldNames() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = f.Name
	}
	return out
}

// IndexOf returns the canonical position of name, or -1.
func IndexOf(name string) int {
	if i, ok := fieldIndex[name]; ok {
		return i
	}
	return -1
}
