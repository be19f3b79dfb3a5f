package tabmcp

import (
	"context"
	"errors"
	"time"

	"github.com/rickchristie/tabular-mcp/internal/dataset"
	"github.com/rickchristie/tabular-mcp/internal/profile"
)

// GetDataSchema loads the dataset and returns its column-level profile.
// Sensitive columns are reported as PROTECTED with no statistics. Failures are
// placed in output.Error; no Go error is returned.
func (g *Gateway) GetDataSchema(ctx context.Context) *SchemaOutput {
	startTime := time.Now()

	t, err := g.source.Load(ctx)
	if err != nil {
		return g.schemaError(err)
	}
	summary, err := profile.Profile(t, g.classifier)
	if err != nil {
		return g.schemaError(err)
	}

	out := &SchemaOutput{
		TableName:     summary.TableName,
		Columns:       summary.Columns,
		RowCount:      summary.RowCount,
		ColumnDetails: make(map[string]ColumnDetail, len(summary.Details)),
	}
	protected := 0
	for name, cp := range summary.Details {
		out.ColumnDetails[name] = g.columnDetail(cp)
		if cp.Sensitive {
			protected++
		}
	}

	g.logger.Info().
		Str("source", g.source.Describe()).
		Dur("duration", time.Since(startTime)).
		Int("row_count", out.RowCount).
		Int("column_count", len(out.Columns)).
		Int("protected_columns", protected).
		Msg("schema profiled")
	return out
}

func (g *Gateway) columnDetail(cp profile.ColumnProfile) ColumnDetail {
	d := ColumnDetail{DataType: cp.DataType, Sensitive: cp.Sensitive}
	switch s := cp.Stats.(type) {
	case profile.Protected:
	case profile.NumericSummary:
		d.Min = s.Min
		d.Max = s.Max
		d.SampleValues = s.SampleValues
	case profile.CategoricalSummary:
		n := s.UniqueCount
		d.UniqueCount = &n
		d.SampleValues = g.maskSamples(s.SampleValues)
	}
	return d
}

// maskSamples scrubs emails from free-text samples of non-sensitive columns.
func (g *Gateway) maskSamples(samples []any) []any {
	out := make([]any, len(samples))
	for i, v := range samples {
		if str, ok := v.(string); ok {
			out[i] = g.sanitizer.MaskText(str)
			continue
		}
		out[i] = v
	}
	return out
}

// schemaError converts a load or profile failure into its caller-facing text.
func (g *Gateway) schemaError(err error) *SchemaOutput {
	var msg string
	switch {
	case errors.Is(err, dataset.ErrDataUnavailable):
		msg = err.Error()
	case errors.Is(err, profile.ErrEmptyDataset):
		if _, isCSV := g.source.(*dataset.CSVSource); isCSV {
			msg = "CSV file is empty"
		} else {
			msg = "dataset is empty"
		}
	default:
		msg = "Error reading data: " + err.Error()
	}
	g.logger.Error().Err(err).Str("source", g.source.Describe()).Msg("schema error")
	return &SchemaOutput{Error: msg}
}
