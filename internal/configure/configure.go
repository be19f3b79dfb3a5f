package configure

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"

	tabmcp "github.com/rickchristie/tabular-mcp"
	"github.com/rickchristie/tabular-mcp/internal/engine"
	"github.com/rickchristie/tabular-mcp/internal/summarize"
)

// Run runs the interactive configuration wizard.
// Reads existing config (if any), prompts for each field,
// writes updated config to the given path.
func Run(configPath string) error {
	return run(configPath, os.Stdin, os.Stderr)
}

func run(configPath string, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	cfg, isNew := loadExisting(configPath)
	if isNew {
		applyDefaults(cfg)
	}

	p := &prompter{
		scanner: scanner,
		output:  output,
		isNew:   isNew,
	}

	fmt.Fprintf(output, "gotabmcp configuration wizard\n")
	fmt.Fprintf(output, "Config file: %s\n\n", configPath)

	// Dataset
	fmt.Fprintf(output, "=== Dataset ===\n")
	cfg.Dataset.Source = p.promptEnum("dataset.source", cfg.Dataset.Source, sources)
	if cfg.Dataset.Source == tabmcp.SourcePostgres {
		cfg.Dataset.Path = p.promptStringWithHint("dataset.path", cfg.Dataset.Path, "unused for postgres")
	} else {
		cfg.Dataset.Path = p.promptRequiredStringWithHint("dataset.path", cfg.Dataset.Path, "CSV file path, required")
	}
	cfg.Dataset.Encoding = p.promptEncoding(cfg.Dataset.Encoding)
	cfg.Dataset.Comma = p.promptComma(cfg.Dataset.Comma)
	cfg.Dataset.TableName = p.promptStringWithHint("dataset.table_name", cfg.Dataset.TableName, "table name used in SQL")
	if cfg.Dataset.Source == tabmcp.SourcePostgres {
		cfg.Dataset.PostgresTable = p.promptRequiredStringWithHint("dataset.postgres_table", cfg.Dataset.PostgresTable, "e.g. public.orders, required")
	} else {
		cfg.Dataset.PostgresTable = p.promptStringWithHint("dataset.postgres_table", cfg.Dataset.PostgresTable, "unused for csv")
	}

	// Server
	fmt.Fprintf(output, "\n=== Server ===\n")
	cfg.Server.Port = p.promptPositiveInt("server.port", cfg.Server.Port, "must be > 0")
	cfg.Server.HealthCheckEnabled = p.promptBool("server.health_check_enabled", cfg.Server.HealthCheckEnabled)
	cfg.Server.HealthCheckPath = p.promptStringWithHint("server.health_check_path", cfg.Server.HealthCheckPath, "e.g. /healthz, required when health_check_enabled is true")

	// Logging
	fmt.Fprintf(output, "\n=== Logging ===\n")
	cfg.Logging.Level = p.promptEnum("logging.level", cfg.Logging.Level, logLevels)
	cfg.Logging.Format = p.promptEnum("logging.format", cfg.Logging.Format, logFormats)
	cfg.Logging.Output = p.promptStringWithHint("logging.output", cfg.Logging.Output, "stdout, stderr, or file path")

	// Query
	fmt.Fprintf(output, "\n=== Query ===\n")
	cfg.Query.DefaultTimeoutSeconds = p.promptPositiveInt("query.default_timeout_seconds", cfg.Query.DefaultTimeoutSeconds, "seconds, must be > 0")
	cfg.Query.MaxSQLLength = p.promptPositiveInt("query.max_sql_length", cfg.Query.MaxSQLLength, "bytes, must be > 0")
	cfg.Query.MaxResultLength = p.promptPositiveInt("query.max_result_length", cfg.Query.MaxResultLength, "characters, must be > 0")
	cfg.Query.MaxConcurrent = p.promptPositiveInt("query.max_concurrent", cfg.Query.MaxConcurrent, "queries loading the dataset at once, must be > 0")

	// Analysis
	fmt.Fprintf(output, "\n=== Analysis ===\n")
	cfg.Analysis.Model = p.promptString("analysis.model", cfg.Analysis.Model)
	cfg.Analysis.BaseURL = p.promptStringWithHint("analysis.base_url", cfg.Analysis.BaseURL, "empty = api.openai.com")
	cfg.Analysis.MaxInputLength = p.promptPositiveInt("analysis.max_input_length", cfg.Analysis.MaxInputLength, "characters, must be > 0")
	cfg.Analysis.MaxTokens = p.promptPositiveInt("analysis.max_tokens", cfg.Analysis.MaxTokens, "must be > 0")
	cfg.Analysis.Temperature = p.promptTemperature(cfg.Analysis.Temperature)

	// Array fields
	fmt.Fprintf(output, "\n=== Sensitive Column Terms ===\n")
	cfg.Masking.SensitiveTerms = p.promptTerms(cfg.Masking.SensitiveTerms)

	fmt.Fprintf(output, "\n=== Masking Rules ===\n")
	cfg.Masking.Rules = p.promptMaskingRules(cfg.Masking.Rules)

	fmt.Fprintf(output, "\n=== Timeout Rules ===\n")
	cfg.Query.TimeoutRules = p.promptTimeoutRules(cfg.Query.TimeoutRules)

	fmt.Fprintf(output, "\n=== Error Prompts ===\n")
	cfg.ErrorPrompts = p.promptErrorPrompts(cfg.ErrorPrompts)

	if err := writeConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(output, "\nConfiguration saved to %s\n", configPath)
	fmt.Fprintf(output, "Set OPENAI_API_KEY in the environment or .env to enable analyze_with_ai.\n")
	return nil
}

func loadExisting(configPath string) (*tabmcp.ServerConfig, bool) {
	cfg := &tabmcp.ServerConfig{}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, true
	}
	// Start with whatever was parseable.
	_ = json.Unmarshal(data, cfg)
	return cfg, false
}

// applyDefaults sets the values New() would fall back to, so the written file is explicit.
func applyDefaults(cfg *tabmcp.ServerConfig) {
	cfg.Dataset.Source = tabmcp.SourceCSV
	cfg.Dataset.Encoding = "utf-8"
	cfg.Dataset.Comma = ","
	cfg.Dataset.TableName = engine.DefaultTableName
	cfg.Server.Port = 8080
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stderr"
	cfg.Query.DefaultTimeoutSeconds = 30
	cfg.Query.MaxSQLLength = tabmcp.DefaultMaxSQLLength
	cfg.Query.MaxResultLength = tabmcp.DefaultMaxResultLength
	cfg.Query.MaxConcurrent = tabmcp.DefaultMaxConcurrent
	cfg.Analysis.Model = summarize.DefaultModel
	cfg.Analysis.MaxInputLength = summarize.DefaultMaxInputLength
	cfg.Analysis.MaxTokens = summarize.DefaultMaxTokens
	temperature := float32(summarize.DefaultTemperature)
	cfg.Analysis.Temperature = &temperature
}

var (
	sources    = []string{tabmcp.SourceCSV, tabmcp.SourcePostgres}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

func writeConfig(configPath string, cfg *tabmcp.ServerConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", configPath, err)
	}

	return nil
}

// prompter handles reading user input and displaying prompts.
type prompter struct {
	scanner *bufio.Scanner
	output  io.Writer
	isNew   bool
	eof     bool
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	p.eof = true
	return ""
}

func (p *prompter) valueLabel() string {
	if p.isNew {
		return "default"
	}
	return "current"
}

func (p *prompter) promptString(field string, current string) string {
	fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptStringWithHint(field string, current string, hint string) string {
	fmt.Fprintf(p.output, "%s [%s] (%s: %q): ", field, hint, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

// promptRequiredStringWithHint is promptStringWithHint that refuses to keep an empty value.
func (p *prompter) promptRequiredStringWithHint(field string, current string, hint string) string {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %q): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input != "" {
			return input
		}
		if current != "" {
			return current
		}
		fmt.Fprintf(p.output, "  Value is required, try again.\n")
		if !p.hasMoreInput() {
			return current
		}
	}
}

func (p *prompter) promptPositiveInt(field string, current int, hint string) int {
	for {
		fmt.Fprintf(p.output, "%s [%s] (%s: %d): ", field, hint, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			if current > 0 {
				return current
			}
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			if !p.hasMoreInput() {
				return current
			}
			continue
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return val
	}
}

func (p *prompter) promptBool(field string, current bool) bool {
	for {
		fmt.Fprintf(p.output, "%s (%s: %v): ", field, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		switch strings.ToLower(input) {
		case "true", "t", "yes", "y", "1":
			return true
		case "false", "f", "no", "n", "0":
			return false
		default:
			fmt.Fprintf(p.output, "  Invalid value %q, use true/false/yes/no, try again.\n", input)
		}
	}
}

func (p *prompter) promptEnum(field string, current string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q, options: %s): ", field, p.valueLabel(), current, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return current
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}

// promptEncoding accepts any charset name the CSV reader can decode.
func (p *prompter) promptEncoding(current string) string {
	for {
		fmt.Fprintf(p.output, "dataset.encoding [IANA charset, e.g. utf-8, windows-1252, shift_jis] (%s: %q): ", p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		if enc, err := ianaindex.IANA.Encoding(input); err != nil || (enc == nil && !strings.EqualFold(input, "utf-8")) {
			fmt.Fprintf(p.output, "  Unsupported charset %q, try again.\n", input)
			continue
		}
		return input
	}
}

func (p *prompter) promptComma(current string) string {
	for {
		fmt.Fprintf(p.output, "dataset.comma [single character, \\t for tab] (%s: %q): ", p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		if input == `\t` {
			return "\t"
		}
		if utf8.RuneCountInString(input) != 1 {
			fmt.Fprintf(p.output, "  Delimiter must be a single character, try again.\n")
			continue
		}
		return input
	}
}

// promptTemperature keeps nil (the completer default) on Enter; 0 is a valid answer.
func (p *prompter) promptTemperature(current *float32) *float32 {
	shown := float32(summarize.DefaultTemperature)
	if current != nil {
		shown = *current
	}
	for {
		fmt.Fprintf(p.output, "analysis.temperature [0 to 2] (%s: %g): ", p.valueLabel(), shown)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.ParseFloat(input, 32)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid number %q, try again.\n", input)
			continue
		}
		if val < 0 || val > 2 {
			fmt.Fprintf(p.output, "  Value must be between 0 and 2, try again.\n")
			continue
		}
		t := float32(val)
		return &t
	}
}

// hasMoreInput reports whether input remains, so retry loops stop at EOF.
func (p *prompter) hasMoreInput() bool {
	return !p.eof
}

// Array field editors

func (p *prompter) promptTerms(current []string) []string {
	terms := current
	for {
		if len(terms) == 0 {
			fmt.Fprintf(p.output, "  (no entries, built-in terms always apply)\n")
		}
		for i, term := range terms {
			fmt.Fprintf(p.output, "  [%d] %q\n", i, term)
		}
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			if term := p.promptNewField("term"); term != "" {
				terms = append(terms, term)
			}
		case "r":
			terms = removeByIndex(p, "sensitive term", terms)
		case "c", "":
			return terms
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) promptMaskingRules(current []tabmcp.MaskingRule) []tabmcp.MaskingRule {
	rules := current
	for {
		p.displayMaskingRules(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			replacement := p.promptNewField("replacement")
			description := p.promptNewField("description")
			rules = append(rules, tabmcp.MaskingRule{
				Pattern:     pattern,
				Replacement: replacement,
				Description: description,
			})
		case "r":
			rules = removeByIndex(p, "masking rule", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayMaskingRules(rules []tabmcp.MaskingRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q replacement=%q description=%q\n", i, r.Pattern, r.Replacement, r.Description)
	}
}

func (p *prompter) promptTimeoutRules(current []tabmcp.TimeoutRule) []tabmcp.TimeoutRule {
	rules := current
	for {
		p.displayTimeoutRules(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			timeout := p.promptNewPositiveIntField("timeout_seconds")
			rules = append(rules, tabmcp.TimeoutRule{
				Pattern:        pattern,
				TimeoutSeconds: timeout,
			})
		case "r":
			rules = removeByIndex(p, "timeout rule", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayTimeoutRules(rules []tabmcp.TimeoutRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q timeout_seconds=%d\n", i, r.Pattern, r.TimeoutSeconds)
	}
}

func (p *prompter) promptErrorPrompts(current []tabmcp.ErrorPromptRule) []tabmcp.ErrorPromptRule {
	rules := current
	for {
		p.displayErrorPrompts(rules)
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		choice := strings.ToLower(p.readLine())
		switch choice {
		case "a":
			pattern := p.promptNewRegexField("pattern")
			message := p.promptNewField("message")
			rules = append(rules, tabmcp.ErrorPromptRule{
				Pattern: pattern,
				Message: message,
			})
		case "r":
			rules = removeByIndex(p, "error prompt", rules)
		case "c", "":
			return rules
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func (p *prompter) displayErrorPrompts(rules []tabmcp.ErrorPromptRule) {
	if len(rules) == 0 {
		fmt.Fprintf(p.output, "  (no entries)\n")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(p.output, "  [%d] pattern=%q message=%q\n", i, r.Pattern, r.Message)
	}
}

func (p *prompter) promptNewField(name string) string {
	fmt.Fprintf(p.output, "  %s: ", name)
	return p.readLine()
}

func (p *prompter) promptNewRegexField(name string) string {
	for {
		fmt.Fprintf(p.output, "  %s (regex): ", name)
		input := p.readLine()
		if input == "" {
			return ""
		}
		if _, err := regexp.Compile(input); err != nil {
			fmt.Fprintf(p.output, "  Invalid regex %q: %v, try again.\n", input, err)
			continue
		}
		return input
	}
}

func (p *prompter) promptNewPositiveIntField(name string) int {
	for {
		fmt.Fprintf(p.output, "  %s (must be > 0): ", name)
		input := p.readLine()
		if input == "" {
			fmt.Fprintf(p.output, "  Value is required and must be > 0, try again.\n")
			if !p.hasMoreInput() {
				return 0
			}
			continue
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return val
	}
}

// removeByIndex removes one element, chosen by the user, from items.
func removeByIndex[T any](p *prompter, label string, items []T) []T {
	if len(items) == 0 {
		fmt.Fprintf(p.output, "  No %s entries to remove.\n", label)
		return items
	}
	fmt.Fprintf(p.output, "  Index to remove: ")
	input := p.readLine()
	idx, err := strconv.Atoi(input)
	if err != nil || idx < 0 || idx >= len(items) {
		fmt.Fprintf(p.output, "  Invalid index.\n")
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
