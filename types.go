package tabmcp

// SchemaOutput is the output of the GetDataSchema tool. Failures are placed in
// Error and every other field is left empty.
type SchemaOutput struct {
	TableName     string                  `json:"table_name,omitempty"`
	Columns       []string                `json:"columns,omitempty"`
	RowCount      int                     `json:"row_count,omitempty"`
	ColumnDetails map[string]ColumnDetail `json:"column_details,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// ColumnDetail is one column's profile. Min/Max are set for numeric columns,
// UniqueCount for categorical ones; a sensitive column carries only DataType and
// Sensitive.
type ColumnDetail struct {
	DataType     string `json:"data_type"`
	Sensitive    bool   `json:"sensitive"`
	Min          any    `json:"min,omitempty"`
	Max          any    `json:"max,omitempty"`
	UniqueCount  *int   `json:"unique_count,omitempty"`
	SampleValues []any  `json:"sample_values,omitempty"`
}

// QueryInput is the input for the RunSQLQuery tool.
type QueryInput struct {
	SQL string `json:"query"`
}

// QueryOutput is the output of the RunSQLQuery tool. Rows are already masked.
// All errors (SQL errors, load failures, limits) are placed in Error with any
// matching error prompt appended.
type QueryOutput struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// MaskedColumns lists columns whose every cell was redacted.
	MaskedColumns []string `json:"masked_columns,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// AnalyzeInput is the input for the AnalyzeWithAI tool.
type AnalyzeInput struct {
	DataContext  string `json:"data_context"`
	UserQuestion string `json:"user_question"`
}

// AnalyzeOutput is the output of the AnalyzeWithAI tool. Error holds the
// caller-facing failure text.
type AnalyzeOutput struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
