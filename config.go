package tabmcp

// Dataset source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config is the base configuration used by library mode via New().
type Config struct {
	Dataset      DatasetConfig     `json:"dataset"`
	Query        QueryConfig       `json:"query"`
	Masking      MaskingConfig     `json:"masking"`
	Analysis     AnalysisConfig    `json:"analysis"`
	ErrorPrompts []ErrorPromptRule `json:"error_prompts"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// Credentials are secrets supplied out of band (environment), never read from the
// config file.
type Credentials struct {
	// OpenAIAPIKey enables analyze_with_ai. Empty leaves it unconfigured.
	OpenAIAPIKey string
	// PostgresConnString is required when dataset.source is "postgres".
	PostgresConnString string
}

// DatasetConfig selects the tabular source exposed to agents.
type DatasetConfig struct {
	Source   string `json:"source"`   // csv (default), postgres
	Path     string `json:"path"`     // csv: file path
	Encoding string `json:"encoding"` // csv: IANA charset, default utf-8
	Comma    string `json:"comma"`    // csv: single-character delimiter, default ","
	// TableName is the relation name queries address. Defaults to "data".
	TableName     string `json:"table_name"`
	PostgresTable string `json:"postgres_table"` // postgres: relation to read, optionally schema-qualified
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, or file path
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds int `json:"default_timeout_seconds"`
	MaxSQLLength          int `json:"max_sql_length"`
	MaxResultLength       int `json:"max_result_length"`
	// MaxConcurrent bounds how many queries hold an in-memory copy of the dataset at once.
	MaxConcurrent int           `json:"max_concurrent"`
	TimeoutRules  []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a SQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// MaskingConfig extends the built-in masking policy.
type MaskingConfig struct {
	// SensitiveTerms are added to the built-in column-name vocabulary.
	SensitiveTerms []string      `json:"sensitive_terms"`
	Rules          []MaskingRule `json:"rules"`
}

// MaskingRule is a regex replacement applied to string cells of columns that are
// not fully redacted.
type MaskingRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// AnalysisConfig configures the analyze_with_ai completion call.
type AnalysisConfig struct {
	Model          string `json:"model"`
	BaseURL        string `json:"base_url"`
	MaxInputLength int    `json:"max_input_length"`
	MaxTokens      int    `json:"max_tokens"`
	// Temperature is nil when unset, which selects the completer default. 0 is kept.
	Temperature *float32 `json:"temperature,omitempty"`
}
