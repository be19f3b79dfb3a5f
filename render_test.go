package tabmcp

import (
	"math"
	"strings"
	"testing"

	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	tbl := &dataset.Table{Name: "result", Columns: []dataset.Column{
		{Name: "Category", Kind: dataset.KindText, Values: []any{"Books", nil}},
		{Name: "total_amount", Kind: dataset.KindNumeric, Values: []any{12.5, int64(3)}},
	}}

	out := renderMarkdown(tbl)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), out)
	}
	// Header keeps the original column names, not upper-cased.
	if !strings.Contains(lines[0], "Category") || !strings.Contains(lines[0], "total_amount") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Fatalf("expected separator line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Books") || !strings.Contains(lines[2], "12.5") {
		t.Fatalf("unexpected first row %q", lines[2])
	}
	if !strings.Contains(lines[3], "3") {
		t.Fatalf("unexpected second row %q", lines[3])
	}
}

func TestFormatCell(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{int64(-42), "-42"},
		{0.1, "0.1"},
		{1e21, "1000000000000000000000"},
		{true, "true"},
		{math.Pi, "3.141592653589793"},
	}
	for _, tt := range tests {
		if got := formatCell(tt.in); got != tt.want {
			t.Fatalf("formatCell(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()
	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
	got := truncateText("héllo wörld", 5)
	if got != "héllo"+TruncationMarker {
		t.Fatalf("expected rune-based cut, got %q", got)
	}
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()
	if got := truncateForLog("SELECT 1", 200); got != "SELECT 1" {
		t.Fatalf("expected unchanged, got %q", got)
	}
	// "é" is two bytes; cutting at byte 2 must not split it.
	got := truncateForLog("aé", 2)
	if got != "a...[truncated]" {
		t.Fatalf("expected cut before multi-byte rune, got %q", got)
	}
}
