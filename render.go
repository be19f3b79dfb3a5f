package tabmcp

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

// renderMarkdown renders t as a GitHub-flavored Markdown table. Column names are
// kept verbatim; missing values render as empty cells.
func renderMarkdown(t *dataset.Table) string {
	tw := table.NewWriter()
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	tw.AppendHeader(header)

	for r := 0; r < t.RowCount(); r++ {
		row := make(table.Row, len(t.Columns))
		for c := range t.Columns {
			row[c] = formatCell(t.Columns[c].Values[r])
		}
		tw.AppendRow(row)
	}
	return tw.RenderMarkdown()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
