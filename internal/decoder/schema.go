// Package decoder turns raw lines of the registry dump into typed records.
//
// Every entity kind is described by a Schema, declared as data: the ordered
// column list with each column's type and constraints. Decoding never fails
// with a Go error; malformed input is reported on the returned Record.
package decoder

// FieldType is the decoded type of one column
type FieldType int

const (
	String FieldType = iota
	Int
	Date
	Decimal
	List
	Flag
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Date:
		return "date"
	case Decimal:
		return "decimal"
	case List:
		return "list"
	case Flag:
		return "flag"
	default:
		return "unknown"
	}
}

// Column describes one position of a delimited line
type Column struct {
	Name string
	Type FieldType
	// Required columns make the whole row invalid when absent.
	Required bool
	// Digits, when set on a String column, is the exact number of decimal
	// digits the value must have.
	Digits int
	// ListSep separates items of a List column. Defaults to ",".
	ListSep string
}

// Schema is the ordered column layout of one file kind
type Schema struct {
	Name    string
	Columns []Column
	index   map[string]int
}

// NewSchema builds a schema and its column index
func NewSchema(name string, columns ...Column) *Schema {
	s := &Schema{
		Name:    name,
		Columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		s.index[c.Name] = i
	}
	return s
}

// Index returns the position of the named column
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}
