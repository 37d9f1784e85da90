package enrich

import (
	"time"

	"github.com/rowscout/rowscout/pkg/record"
	"github.com/rowscout/rowscout/pkg/redact"
)

// Enriched is one input record plus its enrichment outcome.
type Enriched struct {
	Record record.Record
	Status Status

	// Reason is set when Status is StatusFailed.
	Reason Reason

	// Value is the extracted text; on failed records it carries the
	// configured placeholder.
	Value string

	// NotFound reports that the model explicitly answered with the miss
	// sentinel. Such records are done, not failed.
	NotFound bool

	// Err is the per-record failure, nil on done records.
	Err error
}

// Summary aggregates one batch run.
type Summary struct {
	Total    int
	Done     int
	NotFound int
	Failed   int
	Reasons  map[Reason]int
	Elapsed  time.Duration
}

// Output is the complete result of one batch, in source order.
type Output struct {
	// Columns are the input columns in source order.
	Columns []string
	// Slots are the normalized output columns the batch wrote.
	Slots OutputSlots

	Records []Enriched
	Summary Summary
}

// Table materializes the output for sinks: every input column, then the
// declared output slots. One row per input record, source order. Error
// text is secret-redacted before it enters the table.
func (o *Output) Table() record.Table {
	cols := append([]string(nil), o.Columns...)
	cols = append(cols, o.Slots.columns()...)

	out := record.Table{
		Columns: cols,
		Records: make([]record.Record, 0, len(o.Records)),
	}
	for _, er := range o.Records {
		row := make(record.Record, len(cols))
		for _, c := range o.Columns {
			row[c] = er.Record.Value(c)
		}
		row[o.Slots.Value] = er.Value
		if o.Slots.Status != "" {
			row[o.Slots.Status] = string(er.Status)
		}
		if o.Slots.Error != "" {
			text := ""
			if er.Err != nil {
				text = redact.Secrets(er.Err.Error())
			}
			row[o.Slots.Error] = text
		}
		out.Records = append(out.Records, row)
	}
	return out
}
