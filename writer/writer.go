// Package writer renders tables for output.
package writer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/razeghi71/wrangle/table"
	"github.com/vmihailenco/msgpack/v5"
)

// Format names an output encoding.
type Format string

const (
	Text    Format = "text"
	CSV     Format = "csv"
	JSON    Format = "json"
	Msgpack Format = "msgpack"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{Text, CSV, JSON, Msgpack}
}

// ParseFormat validates a format name. The empty string means Text.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return Text, nil
	}
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (supported: text, csv, json, msgpack)", s)
}

// Write encodes t to w in the given format.
func Write(w io.Writer, t *table.Table, f Format) error {
	bw := bufio.NewWriter(w)
	var err error
	switch f {
	case Text, "":
		err = writeText(bw, t)
	case CSV:
		err = writeCSV(bw, t)
	case JSON:
		err = writeJSON(bw, t)
	case Msgpack:
		err = writeMsgpack(bw, t)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeText(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	if len(cols) == 0 {
		return nil
	}

	// Calculate column widths
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = utf8.RuneCountInString(col)
	}

	// Format all cell values
	cells := make([][]string, t.NumRows())
	for i, row := range t.Rows() {
		cells[i] = make([]string, len(cols))
		for j := range cols {
			cells[i][j] = row.At(j).AsString()
			widths[j] = max(widths[j], utf8.RuneCountInString(cells[i][j]))
		}
	}

	headerParts := make([]string, len(cols))
	sepParts := make([]string, len(cols))
	for i, col := range cols {
		headerParts[i] = padRight(col, widths[i])
		sepParts[i] = strings.Repeat("-", widths[i])
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(headerParts, " | "), " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(sepParts, "-+-")); err != nil {
		return err
	}

	for _, row := range cells {
		parts := make([]string, len(cols))
		for i := range cols {
			parts[i] = padRight(row[i], widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, " | "), " ")); err != nil {
			return err
		}
	}
	return nil
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// writeCSV writes a header and one record per row. Null cells are empty.
func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	record := make([]string, t.NumColumns())
	for _, row := range t.Rows() {
		for j := range record {
			v := row.At(j)
			if v.IsNull() {
				record[j] = ""
			} else {
				record[j] = v.AsString()
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON writes an array of objects with keys in column order, one
// row per line. Nested tables are written inline the same way.
func writeJSON(w io.Writer, t *table.Table) error {
	var sb strings.Builder
	if err := appendTable(&sb, t, true); err != nil {
		return err
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func appendTable(sb *strings.Builder, t *table.Table, top bool) error {
	cols := t.Columns()
	sb.WriteByte('[')
	for i, row := range t.Rows() {
		switch {
		case top && i > 0:
			sb.WriteString(",\n  ")
		case top:
			sb.WriteString("\n  ")
		case i > 0:
			sb.WriteString(", ")
		}
		sb.WriteByte('{')
		for j, c := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			if err := appendJSON(sb, c); err != nil {
				return err
			}
			sb.WriteString(": ")
			if err := appendValue(sb, row.At(j)); err != nil {
				return fmt.Errorf("column %s row %d: %w", c, i, err)
			}
		}
		sb.WriteByte('}')
	}
	if top && t.NumRows() > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteByte(']')
	return nil
}

// appendValue writes one cell. Non-finite floats have no JSON form and are
// written as strings.
func appendValue(sb *strings.Builder, v table.Value) error {
	switch {
	case v.Type == table.TypeNested && v.Nested != nil:
		return appendTable(sb, v.Nested, false)
	case v.Type == table.TypeFloat && (math.IsNaN(v.Float) || math.IsInf(v.Float, 0)):
		return appendJSON(sb, v.AsString())
	}
	return appendJSON(sb, v.Interface())
}

func appendJSON(sb *strings.Builder, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sb.Write(b)
	return nil
}

// writeMsgpack writes an array with one map per row, keys in column order.
// Nested tables are encoded the same way.
func writeMsgpack(w io.Writer, t *table.Table) error {
	return encodeTable(msgpack.NewEncoder(w), t)
}

func encodeTable(enc *msgpack.Encoder, t *table.Table) error {
	cols := t.Columns()
	if err := enc.EncodeArrayLen(t.NumRows()); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		if err := enc.EncodeMapLen(len(cols)); err != nil {
			return err
		}
		for j, c := range cols {
			if err := enc.EncodeString(c); err != nil {
				return err
			}
			var err error
			v := row.At(j)
			if v.Type == table.TypeNested && v.Nested != nil {
				err = encodeTable(enc, v.Nested)
			} else {
				err = enc.Encode(v.Interface())
			}
			if err != nil {
				return fmt.Errorf("column %s: %w", c, err)
			}
		}
	}
	return nil
}
