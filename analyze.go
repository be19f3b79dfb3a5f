package tabmcp

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rickchristie/tabular-mcp/internal/summarize"
)

// Caller-facing analysis failure texts.
const (
	NotConfiguredMessage = "Error: OPENAI_API_KEY not set."
	RateLimitedMessage   = "OpenAI Rate Limit Reached. Wait a moment or reduce data size."
	QuotaExceededMessage = "OpenAI Error: You ran out of credits (Check Billing)."
	unknownErrorPrefix   = "Error calling OpenAI: "
)

// AnalyzeWithAI sends dataContext, with emails scrubbed and its length bounded,
// to the completion model in a single round-trip. Failures are placed in
// output.Error as caller-facing text; nothing is retried.
func (g *Gateway) AnalyzeWithAI(ctx context.Context, input AnalyzeInput) *AnalyzeOutput {
	startTime := time.Now()

	dataContext := g.sanitizer.MaskText(input.DataContext)
	text, err := g.analyzer.Analyze(ctx, dataContext, input.UserQuestion)
	if err != nil {
		msg := analysisErrorText(err)
		g.logger.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("analysis error")
		return &AnalyzeOutput{Error: msg}
	}

	g.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("context_length", utf8.RuneCountInString(input.DataContext)).
		Int("reply_length", utf8.RuneCountInString(text)).
		Msg("analysis completed")
	return &AnalyzeOutput{Text: text}
}

// AnalyzeText is AnalyzeWithAI for the text-only MCP surface.
func (g *Gateway) AnalyzeText(ctx context.Context, dataContext, question string) string {
	out := g.AnalyzeWithAI(ctx, AnalyzeInput{DataContext: dataContext, UserQuestion: question})
	if out.Error != "" {
		return out.Error
	}
	return out.Text
}

func analysisErrorText(err error) string {
	var unknown *summarize.UnknownError
	switch {
	case errors.Is(err, summarize.ErrNotConfigured):
		return NotConfiguredMessage
	case errors.Is(err, summarize.ErrQuotaExceeded):
		return QuotaExceededMessage
	case errors.Is(err, summarize.ErrRateLimited):
		return RateLimitedMessage
	case errors.As(err, &unknown):
		return unknownErrorPrefix + unknown.Message
	default:
		return unknownErrorPrefix + err.Error()
	}
}
