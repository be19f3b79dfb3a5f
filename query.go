package tabmcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

const (
	// NoResultsMessage is returned by QueryText when the query matched nothing.
	NoResultsMessage = "Query executed successfully but returned no results."
	// TruncationMarker is appended to results cut to query.max_result_length.
	TruncationMarker = "...[truncated] Result is too long! Add limits in your query!"
	// SQLErrorPrefix prefixes every failure returned by QueryText.
	SQLErrorPrefix = "SQL Error: "
)

// RunSQLQuery executes the query pipeline and returns masked rows.
// All errors (SQL errors, load failures, limits, timeouts) are converted to
// output.Error. The error message is then evaluated against error_prompts and
// any matching prompt messages are appended.
func (g *Gateway) RunSQLQuery(ctx context.Context, input QueryInput) *QueryOutput {
	masked, maskedCols, err := g.runQuery(ctx, input.SQL)
	if err != nil {
		return &QueryOutput{Error: g.handleError(err)}
	}
	output := &QueryOutput{
		Columns:       masked.ColumnNames(),
		Rows:          masked.Rows(),
		MaskedColumns: maskedCols,
	}
	g.truncateIfNeeded(output)
	return output
}

// QueryText executes the query pipeline and renders the masked result as a
// Markdown table. Failures return "SQL Error: <message>"; an empty result returns
// NoResultsMessage.
func (g *Gateway) QueryText(ctx context.Context, sql string) string {
	masked, _, err := g.runQuery(ctx, sql)
	if err != nil {
		return SQLErrorPrefix + g.handleError(err)
	}
	if masked.RowCount() == 0 {
		return NoResultsMessage
	}
	return truncateText(renderMarkdown(masked), g.config.Query.MaxResultLength)
}

// runQuery loads the dataset, executes sql against it and masks the result.
// Also returns the names of fully redacted columns.
func (g *Gateway) runQuery(ctx context.Context, sql string) (*dataset.Table, []string, error) {
	startTime := time.Now()

	// 1. Acquire semaphore (respects context cancellation to prevent deadlock)
	select {
	case g.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("failed to acquire query slot: all %d slots are in use, context cancelled while waiting: %w", cap(g.semaphore), ctx.Err())
	}
	defer func() { <-g.semaphore }()

	// 2. Check SQL length before loading anything
	if strings.TrimSpace(sql) == "" {
		return nil, nil, errors.New("query must not be empty")
	}
	if len(sql) > g.config.Query.MaxSQLLength {
		return nil, nil, fmt.Errorf("SQL query too long: %d bytes exceeds maximum of %d bytes", len(sql), g.config.Query.MaxSQLLength)
	}

	// 3. Determine timeout
	timeout, timeoutRule := g.timeoutMgr.GetTimeoutWithPattern(sql)
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 4. Load the dataset and execute
	src, err := g.source.Load(queryCtx)
	if err != nil {
		return nil, nil, timeoutError(queryCtx, timeout, err)
	}
	result, err := g.engine.Execute(queryCtx, src, sql)
	if err != nil {
		return nil, nil, timeoutError(queryCtx, timeout, err)
	}

	// 5. Mask before anything leaves the process
	masked := g.sanitizer.MaskTable(result)
	maskedCols := g.sanitizer.MaskedColumns(result)

	logEvent := g.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int("source_rows", src.RowCount()).
		Int("row_count", masked.RowCount())
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	if len(maskedCols) > 0 {
		logEvent = logEvent.Strs("masked_columns", maskedCols)
	}
	logEvent.Msg("query executed")

	return masked, maskedCols, nil
}

// timeoutError replaces an error caused by the query deadline with a message
// naming the timeout.
func timeoutError(queryCtx context.Context, timeout time.Duration, err error) error {
	if errors.Is(queryCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("query timed out after %s: %w", timeout, err)
	}
	return err
}

// handleError converts any error into caller-facing text.
// The error message is evaluated against error_prompts; matching prompt messages are appended.
func (g *Gateway) handleError(err error) string {
	errMsg := err.Error()
	patterns := g.errPrompts.MatchedPatterns(errMsg)

	logEvent := g.logger.Error().Err(err)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("query error")

	return g.errPrompts.Annotate(errMsg)
}

// truncateIfNeeded truncates query output rows if they exceed MaxResultLength (in characters).
func (g *Gateway) truncateIfNeeded(output *QueryOutput) {
	jsonBytes, _ := json.Marshal(output.Rows)
	jsonStr := string(jsonBytes)
	if utf8.RuneCountInString(jsonStr) <= g.config.Query.MaxResultLength {
		return
	}
	output.Rows = nil
	output.Error = truncateText(jsonStr, g.config.Query.MaxResultLength)
}

// truncateText cuts s to max characters and appends TruncationMarker.
func truncateText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + TruncationMarker
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
