package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tabmcp "github.com/rickchristie/tabular-mcp"
)

func TestDoctorValidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig(writeDataFile(t, dir))
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	err := doctor(&buf, false, path, envMap(map[string]string{envOpenAIKey: "sk-test"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "✗") {
		t.Fatalf("expected all checks to pass, but found failures in output:\n%s", output)
	}
	for _, want := range []string{
		"Config file readable",
		"Config file is valid JSON",
		"CSV file exists",
		"server.port is > 0",
		"OPENAI_API_KEY is set",
		"All regex patterns compile",
		"Agent Connection Snippets",
		"claude mcp add --transport http tabular",
		"Gemini CLI",
		"Cursor",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestDoctorMissingAPIKeyIsWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig(writeDataFile(t, dir)))

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "! OPENAI_API_KEY is not set") {
		t.Fatalf("expected API key warning in output:\n%s", output)
	}
	if !strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected snippets despite missing key:\n%s", output)
	}
}

func TestDoctorMissingConfig(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := doctor(&buf, false, "/nonexistent/path/config.json", envMap(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ Config file readable") {
		t.Fatalf("expected failed readable check:\n%s", output)
	}
	if strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected no agent snippets when config is missing:\n%s", output)
	}
}

func TestDoctorInvalidJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ Config file is valid JSON") {
		t.Fatalf("expected failed JSON check:\n%s", output)
	}
	if strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected no agent snippets when JSON is invalid:\n%s", output)
	}
}

func TestDoctorMissingCSVFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig(filepath.Join(dir, "absent.csv")))

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ CSV file exists") {
		t.Fatalf("expected failed CSV check:\n%s", output)
	}
	if !strings.Contains(output, "Fix the issues above") {
		t.Fatalf("expected 'Fix the issues above' message in output:\n%s", output)
	}
}

func TestDoctorMissingPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig(""))

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ dataset.path is set") {
		t.Fatalf("expected failed path check:\n%s", buf.String())
	}
}

func TestDoctorPostgresSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig("")
	cfg.Dataset.Source = tabmcp.SourcePostgres
	cfg.Dataset.PostgresTable = "sales.orders"
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "✓ dataset.postgres_table is set (sales.orders)") {
		t.Fatalf("expected postgres_table check:\n%s", output)
	}
	if !strings.Contains(output, "✗ GOTABMCP_PG_CONNSTRING is set") {
		t.Fatalf("expected failed connection string check:\n%s", output)
	}

	buf.Reset()
	if err := doctor(&buf, false, path, envMap(map[string]string{envPGConn: "postgres://localhost/db"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "✗") {
		t.Fatalf("expected all checks to pass:\n%s", buf.String())
	}
}

func TestDoctorUnknownSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig("")
	cfg.Dataset.Source = "parquet"
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `dataset.source is csv or postgres ("parquet")`) {
		t.Fatalf("expected source check failure:\n%s", buf.String())
	}
}

func TestDoctorInvalidRegex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig(writeDataFile(t, dir))
	cfg.ErrorPrompts = []tabmcp.ErrorPromptRule{
		{Pattern: "[invalid(regex", Message: "test"},
	}
	cfg.Masking.Rules = []tabmcp.MaskingRule{
		{Pattern: "(unclosed", Replacement: "x"},
	}
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "error_prompts[0] regex compiles") {
		t.Fatalf("expected 'error_prompts[0] regex compiles' check in output:\n%s", output)
	}
	if !strings.Contains(output, "masking.rules[0] regex compiles") {
		t.Fatalf("expected 'masking.rules[0] regex compiles' check in output:\n%s", output)
	}
	if strings.Contains(output, "All regex patterns compile") {
		t.Fatalf("expected no all-pass regex line:\n%s", output)
	}
}

func TestDoctorPortInSnippets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig(writeDataFile(t, dir))
	cfg.Server.Port = 9999
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Claude Code command + .mcp.json, Gemini CLI, Cursor
	expectedURL := "http://localhost:9999/mcp"
	if count := strings.Count(buf.String(), expectedURL); count != 4 {
		t.Fatalf("expected %s to appear 4 times in agent snippets, found %d times:\n%s", expectedURL, count, buf.String())
	}
}
