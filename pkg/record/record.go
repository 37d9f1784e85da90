// Package record models the tabular input and output of an enrichment run:
// an ordered set of named columns and one Record per row.
package record

import (
	"context"
	"fmt"
	"strings"
)

// Record is one row of a Table: a mapping from column name to text value.
// Keys are the canonical (trimmed) header names of the owning Table.
type Record map[string]string

// Table is an ordered batch of records sharing one column set.
type Table struct {
	Columns []string
	Records []Record
}

// Source supplies an ordered table of named columns. Implementations must
// guarantee stable column membership across all rows.
type Source interface {
	Read(ctx context.Context) (Table, error)
}

// Sink consumes a final table for display or write-back.
type Sink interface {
	Write(ctx context.Context, t Table) error
}

// FromRows builds a Table from a raw header and cell rows, applying the
// load-time cleanup every source shares: header and cell whitespace is
// trimmed, short rows are padded with empty values, and rows wider than the
// header are rejected. Empty or duplicate column names are rejected.
func FromRows(header []string, rows [][]string) (Table, error) {
	cols := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return Table{}, fmt.Errorf("column %d has an empty name", i+1)
		}
		key := strings.ToLower(h)
		if j, ok := seen[key]; ok {
			return Table{}, fmt.Errorf("duplicate column %q (positions %d and %d)", h, j+1, i+1)
		}
		seen[key] = i
		cols[i] = h
	}

	records := make([]Record, 0, len(rows))
	for idx, raw := range rows {
		if len(raw) > len(cols) {
			return Table{}, fmt.Errorf("row %d has %d values for %d columns", idx+1, len(raw), len(cols))
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			v := ""
			if i < len(raw) {
				v = strings.TrimSpace(raw[i])
			}
			rec[col] = v
		}
		records = append(records, rec)
	}
	return Table{Columns: cols, Records: records}, nil
}

// ResolveColumn matches name against the table's columns case-insensitively
// and returns the canonical column name.
func (t Table) ResolveColumn(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return col, true
		}
	}
	return "", false
}

// Value returns the record's value for col, or "" when absent.
func (r Record) Value(col string) string {
	if r == nil {
		return ""
	}
	return r[col]
}
