package tabmcp_test

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	tabmcp "github.com/rickchristie/tabular-mcp"
)

func TestRunSQLQuery_NameMatchRedactsWholeColumn(t *testing.T) {
	t.Parallel()
	g := newTestGateway(t, defaultConfig(writeCSV(t,
		"Customer_Name,Email,Category,Amount\nJohn Smith,john@x.com,Electronics,50.0\n")))

	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT * FROM data"})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}
	if !reflect.DeepEqual(out.Columns, []string{"Customer_Name", "Email", "Category", "Amount"}) {
		t.Fatalf("unexpected columns: %v", out.Columns)
	}
	want := []any{"[REDACTED]", "[REDACTED]", "Electronics", 50.0}
	if !reflect.DeepEqual(out.Rows[0], want) {
		t.Fatalf("expected %v, got %v", want, out.Rows[0])
	}
	if !reflect.DeepEqual(out.MaskedColumns, []string{"Customer_Name", "Email"}) {
		t.Fatalf("unexpected masked columns: %v", out.MaskedColumns)
	}
}

func TestRunSQLQuery_EmailInFreeText(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT Notes FROM data WHERE Category = 'Electronics' ORDER BY Amount"})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Rows))
	}
	if out.Rows[0][0] != "contact [EMAIL_REDACTED] for details" {
		t.Fatalf("unexpected masked note: %v", out.Rows[0][0])
	}
	if out.Rows[1][0] != "VIP" {
		t.Fatalf("expected VIP unchanged, got %v", out.Rows[1][0])
	}
}

func TestRunSQLQuery_AliasedEmailIsStillScrubbed(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT Email AS contact FROM data ORDER BY Amount"})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}
	for _, row := range out.Rows {
		if row[0] != "[EMAIL_REDACTED]" {
			t.Fatalf("expected aliased email scrubbed, got %v", row[0])
		}
	}
}

func TestRunSQLQuery_Aggregation(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{
		SQL: "SELECT Category, COUNT(*) AS orders, SUM(Amount) AS total FROM data GROUP BY Category ORDER BY Category",
	})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}
	want := [][]any{
		{"Books", int64(1), 12.5},
		{"Electronics", int64(2), 149.0},
	}
	if !reflect.DeepEqual(out.Rows, want) {
		t.Fatalf("expected %v, got %v", want, out.Rows)
	}
}

func TestRunSQLQuery_RepeatedAndBlankHeaders(t *testing.T) {
	t.Parallel()
	g := newTestGateway(t, defaultConfig(writeCSV(t, "Amount,Category,amount,\n10,a,20,x\n")))

	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT Amount, amount_1, column_4 FROM data"})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}
	want := [][]any{{int64(10), int64(20), "x"}}
	if !reflect.DeepEqual(out.Rows, want) {
		t.Fatalf("expected %v, got %v", want, out.Rows)
	}

	schema := g.GetDataSchema(context.Background())
	if len(schema.ColumnDetails) != len(schema.Columns) {
		t.Fatalf("expected %d column details, got %d", len(schema.Columns), len(schema.ColumnDetails))
	}
}

func TestRunSQLQuery_CustomTableName(t *testing.T) {
	t.Parallel()
	config := defaultConfig(writeCSV(t, salesCSV))
	config.Dataset.TableName = "sales"
	g := newTestGateway(t, config)

	out := g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT COUNT(*) FROM sales"})
	if out.Error != "" {
		t.Fatalf("unexpected error: %s", out.Error)
	}

	out = g.RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT COUNT(*) FROM data"})
	if !strings.Contains(out.Error, "no such table") {
		t.Fatalf("expected no such table, got %q", out.Error)
	}
	if !strings.Contains(out.Error, `"sales"`) {
		t.Fatalf("expected guidance naming the table, got %q", out.Error)
	}
}

func TestRunSQLQuery_SQLTooLong(t *testing.T) {
	t.Parallel()
	config := defaultConfig(writeCSV(t, salesCSV))
	config.Query.MaxSQLLength = 10
	out := newTestGateway(t, config).RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT * FROM data"})
	if !strings.Contains(out.Error, "too long") {
		t.Fatalf("expected length error, got %q", out.Error)
	}
}

func TestRunSQLQuery_EmptyQuery(t *testing.T) {
	t.Parallel()
	out := newSalesGateway(t).RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "   "})
	if out.Error == "" {
		t.Fatal("expected error for empty query")
	}
}

func TestRunSQLQuery_ResultTruncation(t *testing.T) {
	t.Parallel()
	config := defaultConfig(writeCSV(t, salesCSV))
	config.Query.MaxResultLength = 20
	out := newTestGateway(t, config).RunSQLQuery(context.Background(), tabmcp.QueryInput{SQL: "SELECT * FROM data"})

	if out.Rows != nil {
		t.Fatalf("expected rows dropped on truncation, got %v", out.Rows)
	}
	if !strings.HasSuffix(out.Error, tabmcp.TruncationMarker) {
		t.Fatalf("expected truncation marker, got %q", out.Error)
	}
}

func TestRunSQLQuery_CanceledContext(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := g.RunSQLQuery(ctx, tabmcp.QueryInput{SQL: "SELECT * FROM data"})
	if out.Error == "" {
		t.Fatal("expected error for canceled context")
	}
}

func TestQueryText_MarkdownIsMasked(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	text := g.QueryText(context.Background(), "SELECT * FROM data")

	if !strings.HasPrefix(text, "|") {
		t.Fatalf("expected a markdown table, got %q", text)
	}
	for _, want := range []string{"Customer_Name", "Category", "[REDACTED]", "Electronics", "[EMAIL_REDACTED]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	for _, leak := range []string{"John Smith", "john@x.com", "jane@co.com", "bob@z.org"} {
		if strings.Contains(text, leak) {
			t.Fatalf("output leaks %q:\n%s", leak, text)
		}
	}
}

func TestQueryText_NoResults(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	text := g.QueryText(context.Background(), "SELECT * FROM data WHERE Amount > 1000")
	if text != tabmcp.NoResultsMessage {
		t.Fatalf("expected no results message, got %q", text)
	}
	if strings.HasPrefix(text, tabmcp.SQLErrorPrefix) {
		t.Fatal("no results must be distinct from an error")
	}
}

func TestQueryText_SQLError(t *testing.T) {
	t.Parallel()
	g := newSalesGateway(t)
	text := g.QueryText(context.Background(), "SELECT revenue FROM data")
	if !strings.HasPrefix(text, "SQL Error: ") {
		t.Fatalf("expected SQL Error prefix, got %q", text)
	}
	if !strings.Contains(text, "no such column") {
		t.Fatalf("expected SQLite message, got %q", text)
	}
	if !strings.Contains(text, "get_data_schema") {
		t.Fatalf("expected guidance appended, got %q", text)
	}
}

func TestQueryText_MissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing.csv")
	text := newTestGateway(t, defaultConfig(path)).QueryText(context.Background(), "SELECT 1")
	if text != "SQL Error: CSV file not found: "+path {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestQueryText_Truncation(t *testing.T) {
	t.Parallel()
	config := defaultConfig(writeCSV(t, salesCSV))
	config.Query.MaxResultLength = 30
	text := newTestGateway(t, config).QueryText(context.Background(), "SELECT * FROM data")

	if !strings.HasSuffix(text, tabmcp.TruncationMarker) {
		t.Fatalf("expected truncation marker, got %q", text)
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(text, tabmcp.TruncationMarker)); got != 30 {
		t.Fatalf("expected 30 characters before the marker, got %d", got)
	}
}

func TestQueryText_OperatorMaskingRule(t *testing.T) {
	t.Parallel()
	config := defaultConfig(writeCSV(t, salesCSV))
	config.Masking.Rules = []tabmcp.MaskingRule{{Pattern: `VIP`, Replacement: "[TIER]"}}
	text := newTestGateway(t, config).QueryText(context.Background(), "SELECT Notes FROM data WHERE Amount > 90")
	if !strings.Contains(text, "[TIER]") || strings.Contains(text, "VIP") {
		t.Fatalf("expected operator rule applied, got %q", text)
	}
}
