// Package engine runs ad-hoc SQL against a dataset loaded into a private
// in-memory SQLite database.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rickchristie/tabular-mcp/internal/dataset"
)

// DefaultTableName is the relation name queries address when none is configured.
const DefaultTableName = "data"

// ResultTableName is stamped on every result Table.
const ResultTableName = "result"

// ErrNoColumns is returned when the dataset has no columns to build a relation from.
var ErrNoColumns = errors.New("dataset has no columns")

// QueryError wraps a failure reported by SQLite while running the caller's query.
// Its message is SQLite's own and is meant to be shown to the caller.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// Engine executes queries. It holds no database between calls and is safe for
// concurrent use.
type Engine struct {
	tableName string
}

// New returns an Engine that exposes datasets under tableName.
func New(tableName string) *Engine {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &Engine{tableName: tableName}
}

// TableName returns the relation name queries must address.
func (e *Engine) TableName() string {
	return e.tableName
}

// Execute loads src into a fresh in-memory database, runs query verbatim and
// returns the result. The database is discarded before returning.
//
// Failures while building the relation are returned as plain wrapped errors;
// failures of the query itself are returned as *QueryError.
func (e *Engine) Execute(ctx context.Context, src *dataset.Table, query string) (*dataset.Table, error) {
	if len(src.Columns) == 0 {
		return nil, ErrNoColumns
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	defer db.Close()

	if err := e.load(ctx, db, src); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	result, err := collect(rows)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return result, nil
}

func (e *Engine) load(ctx context.Context, db *sql.DB, src *dataset.Table) error {
	colDefs := make([]string, len(src.Columns))
	colList := make([]string, len(src.Columns))
	for i, c := range src.Columns {
		colList[i] = sqlIdent(c.Name)
		colDefs[i] = colList[i] + " " + sqliteType(c)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(e.tableName), strings.Join(colDefs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", e.tableName, err)
	}

	n := src.RowCount()
	if n == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimRight(strings.Repeat("?,", len(src.Columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(e.tableName), strings.Join(colList, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(src.Columns))
	for r := 0; r < n; r++ {
		for c := range src.Columns {
			args[c] = toSQLite(src.Columns[c].Values[r])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", r+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func collect(rows *sql.Rows) (*dataset.Table, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := &dataset.Table{Name: ResultTableName, Columns: make([]dataset.Column, len(colTypes))}
	for i, ct := range colTypes {
		result.Columns[i] = dataset.Column{Name: ct.Name(), Values: []any{}}
	}

	raw := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range raw {
			result.Columns[i].Values = append(result.Columns[i].Values, fromSQLite(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, ct := range colTypes {
		result.Columns[i].Kind, result.Columns[i].Type = resultKind(result.Columns[i].Values, ct.DatabaseTypeName())
	}
	return result, nil
}

// resultKind derives a result column's Kind from the values it returned. Any string
// makes it text; otherwise any number makes it numeric. An all-null column falls
// back to the declared SQLite type.
func resultKind(values []any, declared string) (dataset.Kind, string) {
	var hasNumber, hasFloat bool
	for _, v := range values {
		switch v.(type) {
		case string:
			return dataset.KindText, dataset.TypeText
		case int64:
			hasNumber = true
		case float64:
			hasNumber = true
			hasFloat = true
		}
	}
	if hasNumber {
		if hasFloat {
			return dataset.KindNumeric, dataset.TypeFloat
		}
		return dataset.KindNumeric, dataset.TypeInteger
	}

	switch strings.ToUpper(declared) {
	case "INTEGER", "INT", "BIGINT":
		return dataset.KindNumeric, dataset.TypeInteger
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC":
		return dataset.KindNumeric, dataset.TypeFloat
	case "TEXT":
		return dataset.KindText, dataset.TypeText
	}
	return dataset.KindOther, strings.ToLower(declared)
}

// sqliteType picks the column affinity. Booleans are stored as 0/1 and
// dates/timestamps as their source text.
func sqliteType(c dataset.Column) string {
	switch c.Type {
	case dataset.TypeInteger, dataset.TypeBoolean:
		return "INTEGER"
	case dataset.TypeFloat:
		return "REAL"
	case dataset.TypeText, dataset.TypeDate, dataset.TypeTimestamp:
		return "TEXT"
	}
	switch c.Kind {
	case dataset.KindNumeric:
		return "NUMERIC"
	case dataset.KindText:
		return "TEXT"
	}
	// Unknown source types (postgres json, uuid, ...) keep no affinity.
	return "BLOB"
}

func toSQLite(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	}
	return v
}

func fromSQLite(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(val)
	case float64:
		switch {
		case math.IsNaN(val):
			return "NaN"
		case math.IsInf(val, 1):
			return "Infinity"
		case math.IsInf(val, -1):
			return "-Infinity"
		}
	}
	return v
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
