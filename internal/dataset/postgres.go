package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PostgresSource reads every row of one Postgres table or view.
// A fresh connection is opened per Load and closed before returning.
type PostgresSource struct {
	ConnString string
	// Table is the relation to read, optionally schema-qualified ("sales.orders").
	Table string
	// TableName is stamped on the loaded Table.
	TableName string
}

// Describe returns the relation name.
func (s *PostgresSource) Describe() string {
	return "postgres:" + s.Table
}

// Load runs SELECT * against the relation. Connection failures and missing relations
// are returned as *UnavailableError.
func (s *PostgresSource) Load(ctx context.Context) (*Table, error) {
	conn, err := pgx.Connect(ctx, s.ConnString)
	if err != nil {
		return nil, unavailable(err, "failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT * FROM "+qualifiedIdent(s.Table), pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, classifyPgError(s.Table, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	t := &Table{Name: s.TableName, Columns: make([]Column, len(fieldDescs))}
	typeMap := conn.TypeMap()
	names := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		names[i] = fd.Name
	}
	names = uniqueColumnNames(names)
	for i, fd := range fieldDescs {
		typeName := "unknown"
		if dt, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
			typeName = dt.Name
		}
		t.Columns[i] = Column{
			Name:   names[i],
			Type:   typeName,
			Kind:   kindForOID(fd.DataTypeOID),
			Values: []any{},
		}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read postgres row: %w", err)
		}
		for i, v := range values {
			t.Columns[i].Values = append(t.Columns[i].Values, normalizePgValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(s.Table, err)
	}
	return t, nil
}

func classifyPgError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return unavailable(err, "table not found: %s", table)
	}
	return fmt.Errorf("read postgres table %s: %w", table, err)
}

func kindForOID(oid uint32) Kind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID, pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return KindNumeric
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		return KindText
	default:
		return KindOther
	}
}

// normalizePgValue narrows pgx values onto the dataset value set.
func normalizePgValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case float32:
		return float64(val)
	case float64:
		return val
	case pgtype.Numeric:
		if !val.Valid || val.NaN {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid || math.IsInf(f.Float64, 0) {
			return nil
		}
		return f.Float64
	case bool:
		return val
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// qualifiedIdent quotes each dot-separated part of a relation name.
func qualifiedIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
