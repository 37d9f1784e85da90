// Package csvio reads and writes record tables as CSV.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rowscout/rowscout/pkg/record"
)

// Read parses a CSV document into a Table. The first row is the header;
// short data rows are padded and all cells are trimmed (see record.FromRows).
func Read(r io.Reader) (record.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return record.Table{}, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return record.Table{}, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return record.Table{}, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, rec)
	}
	return record.FromRows(header, rows)
}

// Write writes the table as CSV with columns in table order.
func Write(w io.Writer, t record.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			row[i] = rec.Value(col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileSource reads a table from a CSV file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Read(ctx context.Context) (record.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return record.Table{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	return Read(f)
}

// FileSink writes a table to a CSV file, creating or truncating it.
type FileSink struct {
	Path string
}

func (s FileSink) Write(ctx context.Context, t record.Table) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := Write(f, t); err != nil {
		return err
	}
	return f.Close()
}
