package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"

	tabmcp "github.com/rickchristie/tabular-mcp"
	"github.com/rickchristie/tabular-mcp/internal/meta"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	path := fs.String("config", configPath(), "Path to configuration file")
	fs.Parse(os.Args[2:])

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *path, os.Getenv)
}

func doctor(w io.Writer, useColor bool, configPath string, getenv func(string) string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gotabmcp %s\n\n", meta.Version)

	config, ok := doctorValidateConfig(w, useColor, configPath, getenv)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gotabmcp doctor' again.")
		return nil
	}

	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all required checks passed. A missing
// OpenAI key is reported but does not fail the run.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string, getenv func(string) string) (*tabmcp.ServerConfig, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid JSON
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		return nil, false
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	var config tabmcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid JSON: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, "Config file is valid JSON")

	// Check 2: dataset is reachable
	if !doctorCheckDataset(w, useColor, config.Dataset, getenv) {
		allPassed = false
	}

	// Check 3: server.port > 0
	if config.Server.Port <= 0 {
		printCheck(w, useColor, false, "server.port is > 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("server.port is > 0 (%d)", config.Server.Port))
	}

	// Check 4: Health check path set when enabled
	if config.Server.HealthCheckEnabled {
		if config.Server.HealthCheckPath == "" {
			printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("health_check_path is set (%s)", config.Server.HealthCheckPath))
		}
	}

	// Check 5: OpenAI key
	if strings.TrimSpace(getenv(envOpenAIKey)) == "" {
		printWarning(w, useColor, envOpenAIKey+" is not set (analyze_with_ai will report an error)")
	} else {
		printCheck(w, useColor, true, envOpenAIKey+" is set")
	}

	// Check 6: Regex patterns compile
	regexOK := true

	for i, rule := range config.ErrorPrompts {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("error_prompts[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Masking.Rules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("masking.rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Query.TimeoutRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("timeout_rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	return &config, allPassed
}

// doctorCheckDataset verifies the configured source can be located. It does not
// read the data.
func doctorCheckDataset(w io.Writer, useColor bool, cfg tabmcp.DatasetConfig, getenv func(string) string) bool {
	switch cfg.Source {
	case "", tabmcp.SourceCSV:
		if cfg.Path == "" {
			printCheck(w, useColor, false, "dataset.path is set")
			return false
		}
		info, err := os.Stat(cfg.Path)
		if err != nil || info.IsDir() {
			printCheck(w, useColor, false, fmt.Sprintf("CSV file exists (%s)", cfg.Path))
			return false
		}
		printCheck(w, useColor, true, fmt.Sprintf("CSV file exists (%s)", cfg.Path))
		if cfg.Comma != "" && utf8.RuneCountInString(cfg.Comma) != 1 {
			printCheck(w, useColor, false, fmt.Sprintf("dataset.comma is a single character (%q)", cfg.Comma))
			return false
		}
		return true
	case tabmcp.SourcePostgres:
		ok := true
		if cfg.PostgresTable == "" {
			printCheck(w, useColor, false, "dataset.postgres_table is set")
			ok = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("dataset.postgres_table is set (%s)", cfg.PostgresTable))
		}
		if getenv(envPGConn) == "" {
			printCheck(w, useColor, false, envPGConn+" is set")
			ok = false
		} else {
			printCheck(w, useColor, true, envPGConn+" is set")
		}
		return ok
	default:
		printCheck(w, useColor, false, fmt.Sprintf("dataset.source is csv or postgres (%q)", cfg.Source))
		return false
	}
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

func printWarning(w io.Writer, useColor bool, msg string) {
	if useColor {
		fmt.Fprintf(w, "  \033[33m!\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(w, "  ! %s\n", msg)
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *tabmcp.ServerConfig) {
	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)

	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http tabular %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "tabular": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "tabular": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "tabular": {
        "url": "%s"
      }
    }
  }
`, url)
}
