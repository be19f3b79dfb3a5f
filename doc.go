// Package tabmcp exposes one tabular dataset to AI agents through the Model
// Context Protocol (MCP) while keeping personal data out of every response.
//
// It provides three tools:
//
//   - get_data_schema profiles the dataset. Columns whose names look like
//     personal data (email, phone, name, ...) are reported as PROTECTED with no
//     statistics or samples.
//   - run_sql_query runs an SQLite query against the dataset, loaded into a
//     private in-memory database per call. Results are masked before they are
//     rendered: sensitive columns are fully redacted and email addresses inside
//     free text are replaced.
//   - analyze_with_ai forwards query output to a chat-completion model, bounded
//     to a fixed input length, and classifies rate-limit and quota failures.
//
// The dataset is a CSV file or a Postgres table and is re-read on every call.
//
// # Library Usage
//
//	g, err := tabmcp.New(tabmcp.Config{
//		Dataset: tabmcp.DatasetConfig{Path: "sales.csv"},
//		Query:   tabmcp.QueryConfig{DefaultTimeoutSeconds: 30},
//	}, tabmcp.Credentials{OpenAIAPIKey: os.Getenv("OPENAI_API_KEY")}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Use directly
//	schema := g.GetDataSchema(ctx)
//	output := g.RunSQLQuery(ctx, tabmcp.QueryInput{SQL: "SELECT * FROM data LIMIT 10"})
//
//	// Or register as MCP tools
//	tabmcp.RegisterMCPTools(mcpServer, g)
package tabmcp
