// Package classify decides whether a column is likely to hold personally
// identifiable information.
//
// Classification is heuristic. A missed column is an accepted risk; an
// over-eager match only costs redaction, so name folding is biased toward
// matching more.
package classify

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// SensitiveTerms is the built-in vocabulary. A column whose folded name contains
// any of these substrings is sensitive.
var SensitiveTerms = []string{
	"email",
	"phone",
	"credit_card",
	"ssn",
	"password",
	"address",
	"name",
	"zip",
	"postal",
}

// EmailPattern matches an email-shaped substring: local-part @ domain . TLD.
var EmailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

var defaultClassifier = New(nil)

// Classifier matches column names against a fixed vocabulary.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	terms        []string
	compactTerms []string
}

// New returns a Classifier using SensitiveTerms plus extra operator-supplied terms.
// Empty extra terms are ignored.
func New(extra []string) *Classifier {
	c := &Classifier{}
	seen := make(map[string]struct{})
	for _, term := range append(append([]string{}, SensitiveTerms...), extra...) {
		folded := fold(term)
		if folded == "" {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		c.terms = append(c.terms, folded)
		c.compactTerms = append(c.compactTerms, compact(folded))
	}
	return c
}

// Terms returns the folded vocabulary in match order.
func (c *Classifier) Terms() []string {
	return append([]string(nil), c.terms...)
}

// IsSensitiveName reports whether the column name contains a vocabulary term.
func (c *Classifier) IsSensitiveName(name string) bool {
	folded := fold(name)
	if folded == "" {
		return false
	}
	for _, term := range c.terms {
		if strings.Contains(folded, term) {
			return true
		}
	}
	// "CreditCard" folds to "creditcard"; compare with separators removed.
	squeezed := compact(folded)
	for _, term := range c.compactTerms {
		if strings.Contains(squeezed, term) {
			return true
		}
	}
	return false
}

// IsSensitiveName classifies using the built-in vocabulary only.
func IsSensitiveName(name string) bool {
	return defaultClassifier.IsSensitiveName(name)
}

// ContainsEmail reports whether any value holds an email-shaped substring.
func ContainsEmail(values []string) bool {
	for _, v := range values {
		if EmailPattern.MatchString(v) {
			return true
		}
	}
	return false
}

// fold transliterates to ASCII, lower-cases and maps common separators to '_'.
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\t':
			return '_'
		}
		return r
	}, s)
}

func compact(s string) string {
	return strings.ReplaceAll(s, "_", "")
}
