package errprompt

import (
	"strings"
	"testing"
)

func TestMatchNoSuchColumn(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `(?i)no such column`, Message: "Call get_data_schema first."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Match("SQL logic error: no such column: revenue (1)")
	if got != "Call get_data_schema first." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestNoMatch(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher(DefaultRules("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Match("interrupted"); got != "" {
		t.Fatalf("expected empty string for non-matching error, got: %s", got)
	}
}

func TestMultipleMatches(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `(?i)no such`, Message: "first"},
		{Pattern: `(?i)table`, Message: "second"},
		{Pattern: `(?i)column`, Message: "third"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Match("no such table: orders")
	if got != "first\nsecond" {
		t.Fatalf("expected rules in order, got %q", got)
	}
	patterns := m.MatchedPatterns("no such table: orders")
	if len(patterns) != 2 || patterns[0] != `(?i)no such` {
		t.Fatalf("unexpected patterns: %v", patterns)
	}
}

func TestDefaultRulesNameTable(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher(DefaultRules("sales"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Match("SQL logic error: no such table: orders (1)")
	if !strings.Contains(got, `"sales"`) {
		t.Fatalf("expected guidance to name the table, got %q", got)
	}
}

func TestAnnotate(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher(DefaultRules("data"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Annotate(`near "SELEC": syntax error`)
	if !strings.HasPrefix(got, `near "SELEC": syntax error`+"\n\n") {
		t.Fatalf("expected original message first, got %q", got)
	}
	if got := m.Annotate("interrupted"); got != "interrupted" {
		t.Fatalf("expected message unchanged, got %q", got)
	}
}

func TestEmptyRules(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Match("no such table"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
	if m.MatchedPatterns("no such table") != nil {
		t.Fatal("expected nil patterns")
	}
}

func TestInvalidRegex(t *testing.T) {
	t.Parallel()
	_, err := NewMatcher([]Rule{{Pattern: `(unclosed`, Message: "x"}})
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
	if !strings.Contains(err.Error(), "(unclosed") {
		t.Fatalf("expected error to name the pattern, got %v", err)
	}
}
