package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/ianaindex"
)

// nullTokens are cell values treated as missing in addition to the empty string.
var nullTokens = map[string]struct{}{
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
}

// CSVSource reads a delimited text file with a header row.
type CSVSource struct {
	Path string
	// Encoding is an IANA charset name (e.g. "windows-1252"). Empty means UTF-8.
	Encoding string
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// TableName is stamped on the loaded Table.
	TableName string
}

// Describe returns the file path.
func (s *CSVSource) Describe() string {
	return s.Path
}

// Load reads and type-infers the whole file. Returns an *UnavailableError
// when the file does not exist.
func (s *CSVSource) Load(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, unavailable(err, "CSV file not found: %s", s.Path)
		}
		return nil, fmt.Errorf("open CSV file %s: %w", s.Path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.Encoding != "" && !strings.EqualFold(s.Encoding, "utf-8") && !strings.EqualFold(s.Encoding, "utf8") {
		enc, err := ianaindex.IANA.Encoding(s.Encoding)
		if err != nil {
			return nil, fmt.Errorf("unsupported CSV encoding %q: %w", s.Encoding, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("unsupported CSV encoding %q", s.Encoding)
		}
		r = enc.NewDecoder().Reader(f)
	}

	return ReadCSV(ctx, r, s.Comma, s.TableName)
}

// ReadCSV parses CSV text with a header row into a Table, inferring one declared
// type per column.
func ReadCSV(ctx context.Context, r io.Reader, comma rune, tableName string) (*Table, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// No header at all: an empty table, reported as empty by the profiler.
			return &Table{Name: tableName}, nil
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = strings.TrimSpace(h)
	}
	header = uniqueColumnNames(header)

	var records [][]string
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	types := inferTypes(len(header), records)
	t := &Table{Name: tableName, Columns: make([]Column, len(header))}
	for col, name := range header {
		values := make([]any, len(records))
		for row, rec := range records {
			cell := ""
			if col < len(rec) {
				cell = rec[col]
			}
			values[row] = convertCell(cell, types[col])
		}
		t.Columns[col] = Column{
			Name:   name,
			Type:   types[col],
			Kind:   KindOf(types[col]),
			Values: values,
		}
	}
	return t, nil
}

func isNullCell(v string) bool {
	if v == "" {
		return true
	}
	_, ok := nullTokens[v]
	return ok
}

// inferTypes picks the most specific type every non-null cell of a column satisfies.
// A column with no non-null cells is "float", so its numeric summary reports no data.
func inferTypes(width int, rows [][]string) []string {
	out := make([]string, width)

	for col := 0; col < width; col++ {
		var seen bool
		allInt := true
		allFloat := true
		allBool := true
		allDate := true
		allTS := true

		for _, r := range rows {
			if col >= len(r) {
				continue
			}
			v := strings.TrimSpace(r[col])
			if isNullCell(v) {
				continue
			}
			seen = true

			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if allBool {
				if _, ok := parseBool(v); !ok {
					allBool = false
				}
			}
			if allDate {
				if !isDate(v) {
					allDate = false
				}
			}
			if allTS {
				if !isTimestamp(v) {
					allTS = false
				}
			}
		}

		switch {
		case !seen:
			out[col] = TypeFloat
		case allInt:
			out[col] = TypeInteger
		case allBool:
			out[col] = TypeBoolean
		case allDate:
			out[col] = TypeDate
		case allTS:
			out[col] = TypeTimestamp
		case allFloat:
			out[col] = TypeFloat
		default:
			out[col] = TypeText
		}
	}
	return out
}

func convertCell(cell, declared string) any {
	v := strings.TrimSpace(cell)
	if isNullCell(v) {
		return nil
	}
	switch declared {
	case TypeInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case TypeFloat:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case TypeBoolean:
		b, _ := parseBool(v)
		return b
	case TypeDate, TypeTimestamp:
		return v
	default:
		// Text keeps the raw cell, including surrounding whitespace.
		return cell
	}
}

func parseBool(v string) (bool, bool) {
	switch v {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	}
	return false, false
}

func isDate(v string) bool {
	_, err := time.Parse("2006-01-02", v)
	return err == nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

func isTimestamp(v string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
