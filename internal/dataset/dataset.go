package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDataUnavailable is returned by a Source when its backing store does not exist
// or cannot be reached.
var ErrDataUnavailable = errors.New("data unavailable")

// UnavailableError matches ErrDataUnavailable while carrying a caller-facing message.
type UnavailableError struct {
	Msg string
	Err error
}

func (e *UnavailableError) Error() string        { return e.Msg }
func (e *UnavailableError) Unwrap() error        { return e.Err }
func (e *UnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func unavailable(cause error, format string, args ...any) error {
	return &UnavailableError{Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Kind is the closed set of value families a column can hold.
// It is decided once when the dataset is loaded and never re-validated.
type Kind int

const (
	KindOther Kind = iota
	KindNumeric
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindOther:
		return "other"
	}
	return "unknown"
}

// Declared type labels produced by CSV inference.
const (
	TypeInteger   = "integer"
	TypeFloat     = "float"
	TypeBoolean   = "boolean"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

// KindOf maps a declared type label to its Kind.
func KindOf(declared string) Kind {
	switch declared {
	case TypeInteger, TypeFloat:
		return KindNumeric
	case TypeText:
		return KindText
	default:
		return KindOther
	}
}

// Column is a named, homogeneously typed sequence of values.
// Values hold nil (missing), int64, float64, bool or string.
type Column struct {
	Name   string
	Type   string
	Kind   Kind
	Values []any
}

// Table is an ordered sequence of columns sharing the same row count.
type Table struct {
	Name    string
	Columns []Column
}

// RowCount returns the number of rows. A table without columns has no rows.
func (t *Table) RowCount() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Columns[c].Values[i]
	}
	return row
}

// Rows returns every row in order.
func (t *Table) Rows() [][]any {
	n := t.RowCount()
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Row(i)
	}
	return rows
}

// Source loads a dataset from its backing store. Implementations re-read the store
// on every call; nothing is cached between loads.
type Source interface {
	Load(ctx context.Context) (*Table, error)
	// Describe returns a human-readable identifier of the backing store (path, table).
	Describe() string
}

// uniqueColumnNames names empty headers column_N (1-based position) and suffixes
// repeats with _1, _2, ... Names are compared case-insensitively, as SQLite does.
func uniqueColumnNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		candidate := name
		for n := 1; ; n++ {
			if _, dup := seen[strings.ToLower(candidate)]; !dup {
				break
			}
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[strings.ToLower(candidate)] = struct{}{}
		out[i] = candidate
	}
	return out
}
