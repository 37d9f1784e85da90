// Package enrich drives the per-record enrichment loop: render a query
// from the entity value, search, extract, account progress, and isolate
// per-record failures so one bad row never stops the batch.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/extract"
	"github.com/rowscout/rowscout/pkg/progress"
	"github.com/rowscout/rowscout/pkg/query"
	"github.com/rowscout/rowscout/pkg/record"
	"github.com/rowscout/rowscout/pkg/search"
)

// Extractor is the extraction capability invoked once per record.
// *extract.Engine satisfies it.
type Extractor interface {
	Extract(ctx context.Context, instruction string, results []search.Result) (extract.Outcome, error)
}

// Plan describes one enrichment batch. It is plain configuration data;
// Run validates it before touching any record.
type Plan struct {
	// EntityColumn is the input column holding the entity value.
	// Resolution is case-insensitive.
	EntityColumn string

	// Template is the raw query template; it must contain the entity
	// placeholder exactly once.
	Template string

	// Instruction is the extraction prompt. Empty means each record's
	// rendered query doubles as its instruction.
	Instruction string

	// Slots names the output columns.
	Slots OutputSlots

	// Placeholder is written to the value slot of failed records.
	Placeholder string
}

// Orchestrator runs enrichment batches against injected capabilities.
type Orchestrator struct {
	plan     Plan
	provider search.Provider
	engine   Extractor
	emitter  progress.Emitter
	logger   *zap.SugaredLogger
}

// New constructs an Orchestrator. A nil emitter or logger is substituted
// with a no-op implementation.
func New(plan Plan, provider search.Provider, engine Extractor, emitter progress.Emitter, logger *zap.SugaredLogger) *Orchestrator {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		plan:     plan,
		provider: provider,
		engine:   engine,
		emitter:  emitter,
		logger:   logger,
	}
}

// Run processes every record of the table in source order, one at a time.
//
// Configuration problems (malformed template, unknown entity column, bad
// output slots) return a *ConfigurationError before any record is touched.
// Per-record failures are recorded on the row and never abort the batch.
// Exactly one progress event is emitted per record, success or failure.
func (o *Orchestrator) Run(ctx context.Context, table record.Table) (*Output, error) {
	start := time.Now()

	tpl, err := query.New(o.plan.Template)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	entityCol, ok := table.ResolveColumn(o.plan.EntityColumn)
	if !ok {
		return nil, &ConfigurationError{
			Err: fmt.Errorf("entity column %q not found in input columns %v", o.plan.EntityColumn, table.Columns),
		}
	}
	slots := o.plan.Slots.withDefaults()
	if err := slots.validate(table.Columns); err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	total := len(table.Records)
	out := &Output{
		Columns: append([]string(nil), table.Columns...),
		Slots:   slots,
		Records: make([]Enriched, 0, total),
		Summary: Summary{Total: total, Reasons: make(map[Reason]int)},
	}

	o.logger.Infow("Batch started",
		"records", total,
		"entity_column", entityCol)

	for i, rec := range table.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		er := o.processRecord(ctx, tpl, entityCol, rec)
		out.Records = append(out.Records, er)
		switch {
		case er.Status == StatusDone && er.NotFound:
			out.Summary.Done++
			out.Summary.NotFound++
		case er.Status == StatusDone:
			out.Summary.Done++
		default:
			out.Summary.Failed++
			out.Summary.Reasons[er.Reason]++
		}

		o.emitter.Emit(i+1, total)
	}

	out.Summary.Elapsed = time.Since(start)
	o.logger.Infow("Batch complete",
		"done", out.Summary.Done,
		"not_found", out.Summary.NotFound,
		"failed", out.Summary.Failed,
		"elapsed", out.Summary.Elapsed)
	return out, nil
}

// processRecord runs one record through query → search → extract. All
// failures are converted into a failed Enriched carrying the placeholder;
// nothing escapes to the batch loop.
func (o *Orchestrator) processRecord(ctx context.Context, tpl query.Template, entityCol string, rec record.Record) Enriched {
	out := Enriched{
		Record: rec,
		Status: StatusFailed,
		Value:  o.plan.Placeholder,
	}

	entity := strings.TrimSpace(rec.Value(entityCol))
	if entity == "" {
		out.Reason = ReasonMissingEntity
		out.Err = &PerRecordError{Reason: ReasonMissingEntity, Err: errors.New("entity value is empty")}
		return out
	}

	q := tpl.Render(entity)

	results, err := o.provider.Search(ctx, q)
	if err != nil {
		o.logger.Warnw("Search failed", "entity", entity, "error", err)
		out.Reason = ReasonSearchFailed
		out.Err = &PerRecordError{Reason: ReasonSearchFailed, Err: err}
		return out
	}

	instruction := strings.TrimSpace(o.plan.Instruction)
	if instruction == "" {
		instruction = q
	}

	outcome, err := o.engine.Extract(ctx, instruction, results)
	if err != nil {
		o.logger.Warnw("Extraction failed", "entity", entity, "error", err)
		out.Reason = ReasonExtractionFailed
		out.Err = &PerRecordError{Reason: ReasonExtractionFailed, Err: err}
		return out
	}

	out.Status = StatusDone
	out.Value = outcome.Text
	out.NotFound = outcome.NotFound
	return out
}
