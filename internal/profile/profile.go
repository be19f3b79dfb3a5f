// Package profile builds column-level schema summaries of a dataset while
// withholding statistics for sensitive columns.
package profile

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/rickchristie/tabular-mcp/internal/classify"
	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

// ErrEmptyDataset is returned when the dataset has zero rows.
var ErrEmptyDataset = errors.New("dataset is empty")

// ProtectedType replaces the declared type of a sensitive column.
const ProtectedType = "PROTECTED"

// NoData is what an unset Bound serializes to.
const NoData = "no data"

const (
	numericSampleLimit     = 3
	categoricalSampleLimit = 5
)

// Summary describes a dataset. Built fresh on every call.
type Summary struct {
	TableName string
	Columns   []string
	RowCount  int
	Details   map[string]ColumnProfile
}

// ColumnProfile is the profile of one column. Stats is exactly one of
// Protected, NumericSummary or CategoricalSummary.
type ColumnProfile struct {
	DataType  string
	Sensitive bool
	Stats     Stats
}

// Stats is the closed set of per-column statistics variants.
type Stats interface {
	isStats()
}

// Protected marks a sensitive column. It carries nothing.
type Protected struct{}

// NumericSummary profiles a numeric column.
type NumericSummary struct {
	Min          Bound
	Max          Bound
	SampleValues []any
}

// CategoricalSummary profiles any non-numeric column.
type CategoricalSummary struct {
	UniqueCount  int
	SampleValues []any
}

func (Protected) isStats()          {}
func (NumericSummary) isStats()     {}
func (CategoricalSummary) isStats() {}

// Bound is a min or max that is undefined when a column has no values.
type Bound struct {
	Value float64
	Valid bool
}

// MarshalJSON writes the value, or the NoData marker when unset.
func (b Bound) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return json.Marshal(NoData)
	}
	return json.Marshal(b.Value)
}

// Profile summarizes every column of t. Sensitive columns (by name) are never
// scanned: no statistics, no samples.
func Profile(t *dataset.Table, c *classify.Classifier) (*Summary, error) {
	if t.RowCount() == 0 {
		return nil, ErrEmptyDataset
	}
	s := &Summary{
		TableName: t.Name,
		Columns:   t.ColumnNames(),
		RowCount:  t.RowCount(),
		Details:   make(map[string]ColumnProfile, len(t.Columns)),
	}
	for _, col := range t.Columns {
		s.Details[col.Name] = profileColumn(col, c)
	}
	return s, nil
}

func profileColumn(col dataset.Column, c *classify.Classifier) ColumnProfile {
	if c.IsSensitiveName(col.Name) {
		return ColumnProfile{DataType: ProtectedType, Sensitive: true, Stats: Protected{}}
	}
	switch col.Kind {
	case dataset.KindNumeric:
		return ColumnProfile{DataType: col.Type, Stats: numericSummary(col.Values)}
	case dataset.KindText, dataset.KindOther:
		return ColumnProfile{DataType: col.Type, Stats: categoricalSummary(col.Values)}
	}
	panic("profile: unknown column kind " + col.Kind.String())
}

func numericSummary(values []any) NumericSummary {
	s := NumericSummary{SampleValues: []any{}}
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		if len(s.SampleValues) < numericSampleLimit {
			s.SampleValues = append(s.SampleValues, v)
		}
		minV = math.Min(minV, f)
		maxV = math.Max(maxV, f)
		s.Min.Valid = true
	}
	if s.Min.Valid {
		s.Min.Value = minV
		s.Max = Bound{Value: maxV, Valid: true}
	}
	return s
}

func categoricalSummary(values []any) CategoricalSummary {
	s := CategoricalSummary{SampleValues: []any{}}
	seen := make(map[any]struct{})
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if len(s.SampleValues) < categoricalSampleLimit {
			s.SampleValues = append(s.SampleValues, v)
		}
	}
	s.UniqueCount = len(seen)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
