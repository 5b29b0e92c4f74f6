// Package dataset holds small tables bundled into the binary.
//
// The only one today is "murders": U.S. gun murders by state for 2010,
// with columns state, abb, region, population and total.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/razeghi71/wrangle/table"
)

//go:embed murders.csv
var murdersCSV []byte

// column kinds of a bundled file, in header order
type kind int

const (
	text kind = iota
	integer
)

type bundled struct {
	data  []byte
	kinds []kind
	load  func() (*table.Table, error)
}

var registry = map[string]*bundled{
	"murders": {data: murdersCSV, kinds: []kind{text, text, text, integer, integer}},
}

func init() {
	for _, b := range registry {
		b.load = sync.OnceValues(func() (*table.Table, error) {
			return parse(b.data, b.kinds)
		})
	}
}

// Names lists the bundled datasets in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the bundled dataset called name. Tables are parsed once
// and shared; they are immutable so callers may keep them.
func Lookup(name string) (*table.Table, bool, error) {
	b, ok := registry[name]
	if !ok {
		return nil, false, nil
	}
	t, err := b.load()
	if err != nil {
		return nil, true, fmt.Errorf("dataset %s: %w", name, err)
	}
	return t, true, nil
}

// Murders returns the murders table. It panics if the embedded data is
// malformed.
func Murders() *table.Table {
	t, _, err := Lookup("murders")
	if err != nil {
		panic(err)
	}
	return t
}

func parse(data []byte, kinds []kind) (*table.Table, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}
	header, body := records[0], records[1:]
	if len(header) != len(kinds) {
		return nil, fmt.Errorf("header has %d columns, want %d", len(header), len(kinds))
	}

	b := table.NewBuilder(header)
	b.Grow(len(body))
	for i, rec := range body {
		vals := make([]table.Value, len(rec))
		for j, cell := range rec {
			if kinds[j] == text {
				vals[j] = table.StrVal(cell)
				continue
			}
			n, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, header[j], err)
			}
			vals[j] = table.IntVal(n)
		}
		b.Append(vals)
	}
	return b.Build()
}
