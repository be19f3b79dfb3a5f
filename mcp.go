package tabmcp

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names exposed over MCP.
const (
	ToolGetDataSchema = "get_data_schema"
	ToolRunSQLQuery   = "run_sql_query"
	ToolAnalyzeWithAI = "analyze_with_ai"
)

// RegisterMCPTools registers get_data_schema, run_sql_query and analyze_with_ai
// as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, g *Gateway) {
	// get_data_schema tool
	schemaTool := mcp.NewTool(ToolGetDataSchema,
		mcp.WithDescription("Scans the dataset and returns metadata about it: table name, column names, row count and per-column statistics. "+
			"Columns that look like personal data are reported as PROTECTED without statistics. ALWAYS run this tool first to learn the column names."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(schemaTool, g.loggedToolHandler(ToolGetDataSchema, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output := g.GetDataSchema(ctx)
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal schema result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// run_sql_query tool
	queryTool := mcp.NewTool(ToolRunSQLQuery,
		mcp.WithDescription("Executes a SQLite query against the dataset, exposed as the table \""+g.engine.TableName()+"\", "+
			"and returns the result as a Markdown table. Personal data in the result is masked."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
	)

	mcpServer.AddTool(queryTool, g.loggedToolHandler(ToolRunSQLQuery, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		return mcp.NewToolResultText(g.QueryText(ctx, query)), nil
	}))

	// analyze_with_ai tool
	analyzeTool := mcp.NewTool(ToolAnalyzeWithAI,
		mcp.WithDescription("Sends query output to an AI analyst and returns a structured answer with summary, insights and recommendations sections. "+
			"Long input is truncated."),
		mcp.WithString("data_context",
			mcp.Required(),
			mcp.Description("The data to analyze, typically the output of run_sql_query"),
		),
		mcp.WithString("user_question",
			mcp.Description("The question to answer about the data"),
		),
	)

	mcpServer.AddTool(analyzeTool, g.loggedToolHandler(ToolAnalyzeWithAI, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dataContext, err := req.RequireString("data_context")
		if err != nil {
			return mcp.NewToolResultError("data_context parameter is required"), nil
		}
		question := req.GetString("user_question", "")
		return mcp.NewToolResultText(g.AnalyzeText(ctx, dataContext, question)), nil
	}))
}

// loggedToolHandler wraps a tool handler to log request and response lengths
// under a per-call request id.
func (g *Gateway) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		g.logger.Info().
			Str("tool", tool).
			Str("request_id", requestID).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
