package enrich

import (
	"fmt"
	"strings"
)

// DefaultValueColumn receives the extracted text when no value column is
// configured.
const DefaultValueColumn = "Extracted Information"

// OutputSlots names the columns the batch appends to the input table.
// Status and Error are optional; empty means the column is not written.
type OutputSlots struct {
	// Value receives the extracted text, or the failure placeholder.
	Value string
	// Status receives done/failed per record.
	Status string
	// Error receives the redacted failure detail of failed records.
	Error string
}

func (s OutputSlots) withDefaults() OutputSlots {
	s.Value = strings.TrimSpace(s.Value)
	s.Status = strings.TrimSpace(s.Status)
	s.Error = strings.TrimSpace(s.Error)
	if s.Value == "" {
		s.Value = DefaultValueColumn
	}
	return s
}

// columns returns the declared slot names in output order.
func (s OutputSlots) columns() []string {
	cols := []string{s.Value}
	if s.Status != "" {
		cols = append(cols, s.Status)
	}
	if s.Error != "" {
		cols = append(cols, s.Error)
	}
	return cols
}

// validate checks the declared slots against the input columns: names must
// be mutually distinct and must not collide with an input column. All
// comparisons are case-insensitive, matching column resolution.
func (s OutputSlots) validate(input []string) error {
	declared := s.columns()
	for i, a := range declared {
		for _, b := range declared[i+1:] {
			if strings.EqualFold(a, b) {
				return fmt.Errorf("output columns must be distinct: %q declared twice", a)
			}
		}
		for _, col := range input {
			if strings.EqualFold(a, col) {
				return fmt.Errorf("output column %q collides with input column %q", a, col)
			}
		}
	}
	return nil
}
