package query

import (
	"sort"

	"github.com/jackc/pgx/v5"
)

// Identifier is a column or table name that passed an AllowList. It is the only
// way user input can reach statement text; the zero value is never valid.
type Identifier struct {
	name string
}

// Name returns the bare, unquoted name.
func (i Identifier) Name() string {
	return i.name
}

// Quoted returns the identifier quoted for Postgres.
func (i Identifier) Quoted() string {
	return pgx.Identifier{i.name}.Sanitize()
}

// IsZero reports whether i was never validated.
func (i Identifier) IsZero() bool {
	return i.name == ""
}

// AllowList is a fixed set of names that may be spliced into SQL as identifiers.
type AllowList struct {
	kind  string
	names map[string]struct{}
}

func newAllowList(kind string, names ...string) AllowList {
	a := AllowList{kind: kind, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		a.names[n] = struct{}{}
	}
	return a
}

// Validate returns an Identifier for name, or an *UnknownIdentifierError if name
// is not on the list. Matching is exact and case-sensitive.
func (a AllowList) Validate(name string) (Identifier, error) {
	if _, ok := a.names[name]; !ok {
		return Identifier{}, &UnknownIdentifierError{Name: name, Kind: a.kind}
	}
	return Identifier{name: name}, nil
}

// Contains reports whether name is on the list.
func (a AllowList) Contains(name string) bool {
	_, ok := a.names[name]
	return ok
}

// Names returns the allowed names in lexical order.
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Measured variables of the readings table, in table column order.
var variableColumns = []string{
	"temperature",
	"pressure",
	"wind_speed",
	"wind_direction",
	"humidity",
	"delta_t",
}

var (
	// Variables holds the measured columns that may be projected or aggregated.
	Variables = newAllowList("variable", variableColumns...)

	// Columns holds every column of the readings table.
	Columns = newAllowList("column", append([]string{"station_name", "date", "time"}, variableColumns...)...)

	// Tables holds the relations the compiler may read from.
	Tables = newAllowList("table", "aws_10min", "aws_realtime")
)

// VariableColumns returns the measured variables in table column order.
func VariableColumns() []string {
	out := make([]string, len(variableColumns))
	copy(out, variableColumns)
	return out
}

func mustIdentifier(a AllowList, name string) Identifier {
	id, err := a.Validate(name)
	if err != nil {
		panic(err)
	}
	return id
}
