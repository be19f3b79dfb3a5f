// Package summarize forwards masked query output to a chat-completion model and
// classifies its failures.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxInputLength is the number of characters of data context sent downstream.
	DefaultMaxInputLength = 4000

	// TruncationMarker is appended to a data context cut to the input limit.
	TruncationMarker = "\n... [Data Truncated due to Rate Limits] ..."

	// SystemPrompt asks the model for the fixed section layout.
	SystemPrompt = `You are a helpful data analyst. Always format your response with these exact subtitles:
- summary
- insights
- recommendations

Under each subtitle, provide relevant content. Be concise and specific.`
)

var (
	// ErrNotConfigured is returned when no completion backend is configured.
	ErrNotConfigured = errors.New("completion backend not configured")
	// ErrRateLimited is returned when the backend throttles the request.
	ErrRateLimited = errors.New("completion rate limited")
	// ErrQuotaExceeded is returned when the account has no credit left.
	ErrQuotaExceeded = errors.New("completion quota exceeded")
)

// UnknownError is any backend failure that is neither throttling nor quota.
type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string {
	return e.Message
}

// Completer sends one system+user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Truncate cuts text to max characters and appends TruncationMarker.
// Returns the text unchanged and false when it already fits.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:max]) + TruncationMarker, true
}

// UserMessage builds the user turn sent to the model.
func UserMessage(question, dataContext string) string {
	return fmt.Sprintf("Question: %s\nData:\n%s", question, dataContext)
}

// Analyzer bounds the data context and performs one completion round-trip.
// Nothing is retried.
type Analyzer struct {
	completer      Completer
	maxInputLength int
	logger         zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A nil completer makes every Analyze call
// return ErrNotConfigured. maxInputLength <= 0 uses DefaultMaxInputLength.
func NewAnalyzer(completer Completer, maxInputLength int, logger zerolog.Logger) *Analyzer {
	if maxInputLength <= 0 {
		maxInputLength = DefaultMaxInputLength
	}
	return &Analyzer{completer: completer, maxInputLength: maxInputLength, logger: logger}
}

// Configured reports whether a completion backend is available.
func (a *Analyzer) Configured() bool {
	return a.completer != nil
}

// Analyze sends dataContext and question downstream. Failures are classified into
// ErrNotConfigured, ErrRateLimited, ErrQuotaExceeded or *UnknownError.
func (a *Analyzer) Analyze(ctx context.Context, dataContext, question string) (string, error) {
	if a.completer == nil {
		return "", ErrNotConfigured
	}

	originalLength := utf8.RuneCountInString(dataContext)
	dataContext, truncated := Truncate(dataContext, a.maxInputLength)
	if truncated {
		a.logger.Info().
			Int("original_length", originalLength).
			Int("max_input_length", a.maxInputLength).
			Msg("data context truncated")
	}

	reply, err := a.completer.Complete(ctx, SystemPrompt, UserMessage(question, dataContext))
	if err != nil {
		return "", Classify(err)
	}
	if !strings.Contains(strings.ToLower(reply), "summary") {
		a.logger.Warn().Int("reply_length", len(reply)).Msg("completion reply has no summary section")
	}
	return reply, nil
}
