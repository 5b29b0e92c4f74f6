// Command gendata writes the bundled murders table as parquet, for trying the
// parquet loader on a real file:
//
//	go run ./cmd/gendata -o /tmp/murders.parquet
//	wrangle '/tmp/murders.parquet | head 5'
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/razeghi71/wrangle/dataset"
	"github.com/razeghi71/wrangle/table"
)

type murder struct {
	State      string `parquet:"state"`
	Abb        string `parquet:"abb"`
	Region     string `parquet:"region"`
	Population int64  `parquet:"population"`
	Total      int32  `parquet:"total"`
}

func main() {
	out := flag.String("o", "murders.parquet", "output file")
	flag.Parse()
	if err := run(*out); err != nil {
		fmt.Fprintln(os.Stderr, "gendata:", err)
		os.Exit(1)
	}
}

func run(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, dataset.Murders())
}

func write(w io.Writer, t *table.Table) error {
	pw := parquet.NewGenericWriter[murder](w)
	rows := make([]murder, 0, t.NumRows())
	for _, r := range t.Rows() {
		rows = append(rows, murder{
			State:      r.Get("state").Str,
			Abb:        r.Get("abb").Str,
			Region:     r.Get("region").Str,
			Population: r.Get("population").Int,
			Total:      int32(r.Get("total").Int),
		})
	}
	if _, err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}
