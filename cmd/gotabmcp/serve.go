package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	tabmcp "github.com/rickchristie/tabular-mcp"
	"github.com/rickchristie/tabular-mcp/internal/meta"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	envConfigPath = "GOTABMCP_CONFIG_PATH"
	envOpenAIKey  = "OPENAI_API_KEY"
	envPGConn     = "GOTABMCP_PG_CONNSTRING"

	defaultConfigPath = ".gotabmcp/config.json"
)

func runServe() error {
	// 1. Pick up credentials from .env when present
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Port <= 0 {
		panic("gotabmcp: server.port must be > 0")
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Create Gateway
	creds := loadCredentials(os.Getenv)
	gateway, err := tabmcp.New(serverConfig.Config, creds, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	if err := gateway.CheckConfiguration(); err != nil {
		logger.Warn().Err(err).Msg("analyze_with_ai is disabled")
	}

	// 5. Check the dataset can be read before accepting agents
	logger.Info().Str("source", gateway.Source()).Msg("checking dataset")
	if out := gateway.GetDataSchema(context.Background()); out.Error != "" {
		// Not fatal: the file may appear later and every call re-reads it.
		logger.Warn().Str("error", out.Error).Msg("dataset check failed")
	} else {
		logger.Info().Int("row_count", out.RowCount).Int("columns", len(out.Columns)).Msg("dataset check successful")
	}

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gotabmcp", meta.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	tabmcp.RegisterMCPTools(mcpServer, gateway)

	// 7. Start HTTP server with optional health check
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not dataset availability)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("gotabmcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Start() does not register the handler when a custom *http.Server is given.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Str("version", meta.Version).Msg("starting gotabmcp server")
	return streamableServer.Start(addr)
}

func configPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadServerConfig() (*tabmcp.ServerConfig, error) {
	path := configPath()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config tabmcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// loadCredentials reads secrets through getenv so tests need not touch the process environment.
func loadCredentials(getenv func(string) string) tabmcp.Credentials {
	return tabmcp.Credentials{
		OpenAIAPIKey:       strings.TrimSpace(getenv(envOpenAIKey)),
		PostgresConnString: getenv(envPGConn),
	}
}

func setupLogger(config tabmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
