// Package errprompt appends operator guidance to SQL error text so an agent can
// correct its next query.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error-message pattern to guidance text.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// DefaultRules covers the SQLite failures agents hit most often. tableName is the
// relation queries must address.
func DefaultRules(tableName string) []Rule {
	return []Rule{
		{
			Pattern: `(?i)no such table`,
			Message: fmt.Sprintf("The dataset is exposed as a single table named %q. Query that table.", tableName),
		},
		{
			Pattern: `(?i)no such column`,
			Message: "The column does not exist. Call get_data_schema to list columns, and double-quote names that contain spaces or capitals.",
		},
		{
			Pattern: `(?i)syntax error`,
			Message: "The query is not valid SQLite syntax.",
		},
	}
}

// Matcher checks error messages against patterns and returns guidance.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher creates a new Matcher. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Match returns every matching rule's message, top to bottom, joined with newlines.
// Returns empty string if no match.
func (m *Matcher) Match(errMsg string) string {
	var matches []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// Annotate returns errMsg followed by any matching guidance on a new paragraph.
func (m *Matcher) Annotate(errMsg string) string {
	if guidance := m.Match(errMsg); guidance != "" {
		return errMsg + "\n\n" + guidance
	}
	return errMsg
}

// MatchedPatterns returns the regex patterns that matched the given error message.
func (m *Matcher) MatchedPatterns(errMsg string) []string {
	var patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
