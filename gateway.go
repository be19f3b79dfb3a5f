package tabmcp

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/rickchristie/tabular-mcp/internal/classify"
	"github.com/rickchristie/tabular-mcp/internal/dataset"
	"github.com/rickchristie/tabular-mcp/internal/engine"
	"github.com/rickchristie/tabular-mcp/internal/errprompt"
	"github.com/rickchristie/tabular-mcp/internal/sanitize"
	"github.com/rickchristie/tabular-mcp/internal/summarize"
	"github.com/rickchristie/tabular-mcp/internal/timeout"
)

// Defaults applied by New for zero-valued settings.
const (
	DefaultMaxSQLLength    = 100000
	DefaultMaxResultLength = 100000
	DefaultMaxConcurrent   = 4
)

// ConfigurationMissingError reports a required credential that was not supplied.
type ConfigurationMissingError struct {
	Name string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s is not set", e.Name)
}

// Gateway is the core engine behind the get_data_schema, run_sql_query and
// analyze_with_ai tools. The dataset is re-read on every call and nothing is
// cached, so all exported methods are safe for concurrent use.
type Gateway struct {
	config     Config
	source     dataset.Source
	classifier *classify.Classifier
	engine     *engine.Engine
	semaphore  chan struct{}
	sanitizer  *sanitize.Sanitizer
	errPrompts *errprompt.Matcher
	timeoutMgr *timeout.Manager
	analyzer   *summarize.Analyzer
	logger     zerolog.Logger
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	source    dataset.Source
	completer summarize.Completer
}

// WithSource replaces the source built from Config.Dataset.
func WithSource(src dataset.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithCompleter replaces the OpenAI completer built from Credentials.OpenAIAPIKey.
func WithCompleter(c summarize.Completer) Option {
	return func(o *options) {
		o.completer = c
	}
}

// New creates a new Gateway.
// Panics on invalid config. Returns *ConfigurationMissingError when a credential the
// configured source needs is absent. A missing OpenAI key is not an error here:
// analyze_with_ai reports it per call.
func New(config Config, creds Credentials, logger zerolog.Logger, opts ...Option) (*Gateway, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("tabmcp: query.default_timeout_seconds must be > 0")
	}
	if config.Query.MaxSQLLength < 0 {
		panic("tabmcp: query.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("tabmcp: query.max_result_length must be > 0")
	}
	if config.Query.MaxConcurrent < 0 {
		panic("tabmcp: query.max_concurrent must be > 0")
	}
	if config.Analysis.MaxInputLength < 0 {
		panic("tabmcp: analysis.max_input_length must be > 0")
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("tabmcp: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// Apply defaults for zero values
	if config.Dataset.Source == "" {
		config.Dataset.Source = SourceCSV
	}
	if config.Dataset.TableName == "" {
		config.Dataset.TableName = engine.DefaultTableName
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = DefaultMaxSQLLength
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = DefaultMaxResultLength
	}
	if config.Query.MaxConcurrent == 0 {
		config.Query.MaxConcurrent = DefaultMaxConcurrent
	}
	if config.Analysis.MaxInputLength == 0 {
		config.Analysis.MaxInputLength = summarize.DefaultMaxInputLength
	}

	// --- Dataset source ---

	src := o.source
	if src == nil {
		var err error
		src, err = newSource(config.Dataset, creds)
		if err != nil {
			return nil, err
		}
	}

	// --- Initialize internal components ---

	classifier := classify.New(config.Masking.SensitiveTerms)

	san, err := sanitize.NewSanitizer(classifier, mapMaskingRules(config.Masking.Rules))
	if err != nil {
		panic(fmt.Sprintf("tabmcp: %v", err))
	}

	promptRules := append(mapErrorPromptRules(config.ErrorPrompts), errprompt.DefaultRules(config.Dataset.TableName)...)
	matcher, err := errprompt.NewMatcher(promptRules)
	if err != nil {
		panic(fmt.Sprintf("tabmcp: %v", err))
	}

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})
	if err != nil {
		panic(fmt.Sprintf("tabmcp: %v", err))
	}

	logger.Debug().
		Strs("sensitive_terms", classifier.Terms()).
		Bool("masking_rules", san.HasRules()).
		Int("timeout_rules", len(timeoutRules)).
		Msg("masking configured")

	completer := o.completer
	if completer == nil && creds.OpenAIAPIKey != "" {
		completer = summarize.NewOpenAI(summarize.OpenAIConfig{
			APIKey:      creds.OpenAIAPIKey,
			Model:       config.Analysis.Model,
			BaseURL:     config.Analysis.BaseURL,
			MaxTokens:   config.Analysis.MaxTokens,
			Temperature: config.Analysis.Temperature,
		})
	}

	return &Gateway{
		config:     config,
		source:     src,
		classifier: classifier,
		engine:     engine.New(config.Dataset.TableName),
		semaphore:  make(chan struct{}, config.Query.MaxConcurrent),
		sanitizer:  san,
		errPrompts: matcher,
		timeoutMgr: tmgr,
		analyzer:   summarize.NewAnalyzer(completer, config.Analysis.MaxInputLength, logger),
		logger:     logger,
	}, nil
}

// CheckConfiguration reports credentials that were absent at construction and
// leave a tool degraded. Returns nil when everything is configured.
func (g *Gateway) CheckConfiguration() error {
	if !g.analyzer.Configured() {
		return &ConfigurationMissingError{Name: "OPENAI_API_KEY"}
	}
	return nil
}

// Source returns a description of the dataset's backing store.
func (g *Gateway) Source() string {
	return g.source.Describe()
}

func newSource(cfg DatasetConfig, creds Credentials) (dataset.Source, error) {
	switch cfg.Source {
	case SourceCSV:
		if cfg.Path == "" {
			panic("tabmcp: dataset.path must be non-empty for csv source")
		}
		comma := ','
		if cfg.Comma != "" {
			r, size := utf8.DecodeRuneInString(cfg.Comma)
			if size != len(cfg.Comma) || r == utf8.RuneError {
				panic(fmt.Sprintf("tabmcp: dataset.comma must be a single character, got %q", cfg.Comma))
			}
			comma = r
		}
		return &dataset.CSVSource{
			Path:      cfg.Path,
			Encoding:  cfg.Encoding,
			Comma:     comma,
			TableName: cfg.TableName,
		}, nil
	case SourcePostgres:
		if cfg.PostgresTable == "" {
			panic("tabmcp: dataset.postgres_table must be non-empty for postgres source")
		}
		if creds.PostgresConnString == "" {
			return nil, &ConfigurationMissingError{Name: "postgres connection string"}
		}
		return &dataset.PostgresSource{
			ConnString: creds.PostgresConnString,
			Table:      cfg.PostgresTable,
			TableName:  cfg.TableName,
		}, nil
	default:
		panic(fmt.Sprintf("tabmcp: unknown dataset.source %q", cfg.Source))
	}
}

// mapMaskingRules converts tabmcp MaskingRules to internal sanitize.Rules.
func mapMaskingRules(rules []MaskingRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}

// mapErrorPromptRules converts tabmcp ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}
