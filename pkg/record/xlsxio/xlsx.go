// Package xlsxio reads and writes record tables as XLSX workbooks.
package xlsxio

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/rowscout/rowscout/pkg/record"
)

// SheetName is the sheet written by Write and FileSink.
const SheetName = "Enriched"

// Read parses the first sheet of a workbook into a Table. The first row is
// the header; trailing empty cells are padded (see record.FromRows).
func Read(r io.Reader) (record.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return record.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return record.Table{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return record.Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return record.Table{}, fmt.Errorf("sheet %q has no header row", sheets[0])
	}
	return record.FromRows(rows[0], rows[1:])
}

// Write writes the table to a new workbook on the SheetName sheet,
// header in row 1 and one record per row after it.
func Write(w io.Writer, t record.Table) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if index, _ := f.GetSheetIndex(SheetName); index == -1 {
		if _, err := f.NewSheet(SheetName); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)
	// Read takes the first sheet, so the workbook default must go.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, col); err != nil {
			return err
		}
	}

	row := 2
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(SheetName, cell, rec.Value(col)); err != nil {
				return err
			}
		}
		row++
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// FileSource reads a table from the first sheet of an XLSX file.
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

// FileSink writes a table to an XLSX file, creating or truncating it.
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
