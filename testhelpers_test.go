package tabmcp_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	tabmcp "github.com/rickchristie/tabular-mcp"
)

const salesCSV = `Customer_Name,Email,Category,Amount,Notes
John Smith,john@x.com,Electronics,50.0,contact jane@co.com for details
Jane Doe,jane@co.com,Books,12.5,
Bob Lee,bob@z.org,Electronics,99.0,VIP
`

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// writeCSV writes content to a fresh temp file and returns its path.
func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	return path
}

func defaultConfig(path string) tabmcp.Config {
	return tabmcp.Config{
		Dataset: tabmcp.DatasetConfig{Path: path},
		Query: tabmcp.QueryConfig{
			DefaultTimeoutSeconds: 30,
			MaxSQLLength:          100000,
			MaxResultLength:       100000,
		},
	}
}

func newTestGateway(t *testing.T, config tabmcp.Config, opts ...tabmcp.Option) *tabmcp.Gateway {
	t.Helper()
	g, err := tabmcp.New(config, tabmcp.Credentials{}, testLogger(), opts...)
	if err != nil {
		t.Fatalf("Failed to create Gateway: %v", err)
	}
	return g
}

// newSalesGateway returns a Gateway over salesCSV.
func newSalesGateway(t *testing.T, opts ...tabmcp.Option) *tabmcp.Gateway {
	t.Helper()
	return newTestGateway(t, defaultConfig(writeCSV(t, salesCSV)), opts...)
}

// fakeCompleter records the last exchange and replies with a fixed text or error.
type fakeCompleter struct {
	reply string
	err   error
	user  string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}
