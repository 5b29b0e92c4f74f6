// Package loader turns files and bundled dataset names into tables.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/razeghi71/wrangle/dataset"
	"github.com/razeghi71/wrangle/logger"
	"github.com/razeghi71/wrangle/table"
)

// Load reads a source and returns a Table. A source is either the name of a
// bundled dataset or a file path whose extension selects the format.
func Load(source string) (*table.Table, error) {
	t, ok, err := dataset.Lookup(source)
	if err != nil {
		return nil, err
	}
	if ok {
		logger.Debug("loaded bundled dataset", "source", source, "rows", t.NumRows())
		return t, nil
	}

	ext := strings.ToLower(filepath.Ext(source))
	switch ext {
	case ".csv":
		t, err = loadFile(source, ReadCSV)
	case ".json":
		t, err = loadFile(source, ReadJSON)
	case ".jsonl":
		t, err = loadFile(source, ReadJSONL)
	case ".avro":
		t, err = loadFile(source, ReadAvro)
	case ".parquet":
		t, err = loadParquet(source)
	default:
		return nil, fmt.Errorf("unsupported file format %q (supported: .csv, .json, .jsonl, .avro, .parquet, or one of %v)",
			ext, dataset.Names())
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded file", "source", source, "format", strings.TrimPrefix(ext, "."),
		"rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

func loadFile(filename string, read func(io.Reader) (*table.Table, error)) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	t, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// ReadCSV reads a CSV document with a header row. Cell types are inferred
// per cell; missing trailing cells are null.
func ReadCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	b := table.NewBuilder(columns)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}
		if len(record) > len(columns) {
			return nil, &table.SchemaError{Row: b.Len(), Reason: fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(columns))}
		}

		if len(record) < len(columns) {
			logger.Warn("short CSV row padded with nulls", "line", line, "fields", len(record), "columns", len(columns))
		}

		vals := make([]table.Value, len(columns))
		for i := range columns {
			if i < len(record) {
				vals[i] = parseValue(strings.TrimSpace(record[i]))
			} else {
				vals[i] = table.Null()
			}
		}
		b.Append(vals)
	}

	return b.Build()
}

// parseValue infers the type of a CSV cell value.
func parseValue(s string) table.Value {
	if s == "" || strings.EqualFold(s, "null") || s == "NA" {
		return table.Null()
	}

	// Try integer
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return table.IntVal(v)
	}

	// Try float
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return table.FloatVal(v)
	}

	// Try boolean
	lower := strings.ToLower(s)
	if lower == "true" {
		return table.BoolVal(true)
	}
	if lower == "false" {
		return table.BoolVal(false)
	}

	return table.StrVal(s)
}

// ReadJSON reads an array of objects. Columns appear in first-seen key
// order; keys absent from a record are null.
func ReadJSON(r io.Reader) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("cannot parse JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.New("cannot parse JSON: expected array of objects")
	}

	var rs recordSet
	for dec.More() {
		if err := rs.decode(dec); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(rs.records), err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("cannot parse JSON: %w", err)
	}
	return rs.build()
}

// ReadJSONL reads one JSON object per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) (*table.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var rs recordSet
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := rs.decode(dec); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL: %w", err)
	}

	return rs.build()
}

// recordSet collects decoded objects and the union of their keys.
type recordSet struct {
	columns []string
	seen    map[string]bool
	records []map[string]any
}

// decode reads one object from dec, keeping key order.
func (rs *recordSet) decode(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	if rs.seen == nil {
		rs.seen = make(map[string]bool)
	}

	rec := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		rec[key] = v
		if !rs.seen[key] {
			rs.seen[key] = true
			rs.columns = append(rs.columns, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	rs.records = append(rs.records, rec)
	return nil
}

func (rs *recordSet) build() (*table.Table, error) {
	b := table.NewBuilder(rs.columns)
	b.Grow(len(rs.records))
	for _, rec := range rs.records {
		vals := make([]table.Value, len(rs.columns))
		for i, col := range rs.columns {
			v, ok := rec[col]
			if !ok || v == nil {
				vals[i] = table.Null()
				continue
			}
			vals[i] = jsonValue(v)
		}
		b.Append(vals)
	}
	return b.Build()
}

func jsonValue(v any) table.Value {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return table.IntVal(n)
		}
		f, _ := val.Float64()
		return table.FloatVal(f)
	case string:
		return table.StrVal(val)
	case bool:
		return table.BoolVal(val)
	case nil:
		return table.Null()
	default:
		// For nested objects/arrays, just stringify
		b, _ := json.Marshal(val)
		return table.StrVal(string(b))
	}
}
