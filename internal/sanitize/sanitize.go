package sanitize

import (
	"fmt"
	"regexp"

	"github.com/rickchristie/tabular-mcp/internal/classify"
	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

const (
	// Redacted replaces every cell of a sensitively named column.
	Redacted = "[REDACTED]"
	// EmailRedacted replaces each email substring inside free text.
	EmailRedacted = "[EMAIL_REDACTED]"
)

// Rule is the sanitizer's own rule type.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Sanitizer masks query results before they leave the process.
// It holds no mutable state and is safe for concurrent use.
type Sanitizer struct {
	classifier *classify.Classifier
	rules      []compiledRule
}

// NewSanitizer creates a new Sanitizer. Operator rules run on string cells of
// non-sensitive columns after email scrubbing. Returns an error on invalid regex patterns.
func NewSanitizer(classifier *classify.Classifier, rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Sanitizer{classifier: classifier, rules: compiled}, nil
}

// HasRules returns true if the sanitizer has any operator rules configured.
func (s *Sanitizer) HasRules() bool {
	return len(s.rules) > 0
}

// MaskTable returns a masked copy of t. The input is not modified.
//
// Per column, first match wins:
//  1. sensitive name: every cell becomes Redacted, whatever its type;
//  2. text column holding an email: each email substring becomes EmailRedacted;
//  3. otherwise the column passes through.
//
// Column names, column order and row order never change.
func (s *Sanitizer) MaskTable(t *dataset.Table) *dataset.Table {
	out := &dataset.Table{Name: t.Name, Columns: make([]dataset.Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = s.maskColumn(col)
	}
	return out
}

// MaskedColumns returns the names of columns MaskTable would fully redact.
func (s *Sanitizer) MaskedColumns(t *dataset.Table) []string {
	var names []string
	for _, col := range t.Columns {
		if s.classifier.IsSensitiveName(col.Name) {
			names = append(names, col.Name)
		}
	}
	return names
}

// MaskText scrubs emails and applies operator rules to free text.
func (s *Sanitizer) MaskText(text string) string {
	return s.applyRules(classify.EmailPattern.ReplaceAllString(text, EmailRedacted))
}

func (s *Sanitizer) maskColumn(col dataset.Column) dataset.Column {
	values := make([]any, len(col.Values))

	if s.classifier.IsSensitiveName(col.Name) {
		for i := range values {
			values[i] = Redacted
		}
		return dataset.Column{Name: col.Name, Type: dataset.TypeText, Kind: dataset.KindText, Values: values}
	}

	scrubEmail := col.Kind == dataset.KindText && classify.ContainsEmail(stringCells(col.Values))
	for i, v := range col.Values {
		str, ok := v.(string)
		if !ok {
			values[i] = v
			continue
		}
		if scrubEmail {
			str = classify.EmailPattern.ReplaceAllString(str, EmailRedacted)
		}
		values[i] = s.applyRules(str)
	}
	return dataset.Column{Name: col.Name, Type: col.Type, Kind: col.Kind, Values: values}
}

func (s *Sanitizer) applyRules(str string) string {
	for _, rule := range s.rules {
		str = rule.pattern.ReplaceAllString(str, rule.replacement)
	}
	return str
}

func stringCells(values []any) []string {
	var out []string
	for _, v := range values {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
