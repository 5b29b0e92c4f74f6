package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/razeghi71/wrangle/table"
)

func loadParquet(filename string) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", filename, err)
	}
	t, err := ReadParquet(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// ReadParquet reads every row group of a parquet file. Each leaf column
// becomes a table column; nested leaves are named by their dotted path.
// Repeated columns are not supported.
func ReadParquet(r io.ReaderAt, size int64) (*table.Table, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("cannot open parquet file: %w", err)
	}

	paths := pf.Schema().Columns()
	columns := make([]string, len(paths))
	for i, p := range paths {
		columns[i] = strings.Join(p, ".")
	}

	b := table.NewBuilder(columns)
	b.Grow(int(pf.NumRows()))
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, b, len(columns)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, b *table.Builder, width int) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			vals, convErr := parquetRow(row, width)
			if convErr != nil {
				return &table.SchemaError{Row: b.Len(), Reason: convErr.Error()}
			}
			b.Append(vals)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading parquet rows: %w", err)
		}
	}
}

func parquetRow(row parquet.Row, width int) ([]table.Value, error) {
	vals := make([]table.Value, width)
	set := make([]bool, width)
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= width {
			return nil, fmt.Errorf("value for unknown column %d", c)
		}
		if set[c] {
			return nil, fmt.Errorf("repeated column %d is not supported", c)
		}
		set[c] = true
		vals[c] = parquetValue(v)
	}
	return vals, nil
}

func parquetValue(v parquet.Value) table.Value {
	if v.IsNull() {
		return table.Null()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return table.BoolVal(v.Boolean())
	case parquet.Int32:
		return table.IntVal(int64(v.Int32()))
	case parquet.Int64:
		return table.IntVal(v.Int64())
	case parquet.Float:
		return table.FloatVal(float64(v.Float()))
	case parquet.Double:
		return table.FloatVal(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.StrVal(string(v.ByteArray()))
	default:
		return table.StrVal(v.String())
	}
}
