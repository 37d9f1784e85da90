// Package app wires configuration, sources, providers, the enrichment
// orchestrator, and sinks into runnable commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowscout/rowscout/internal/config"
	"github.com/rowscout/rowscout/pkg/enrich"
	"github.com/rowscout/rowscout/pkg/extract"
)

// Run executes one enrichment batch: read the input table, process every
// record, write the primary CSV result plus any optional write-backs.
func Run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return &enrich.ConfigurationError{Err: err}
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	runStart := time.Now()

	reporter := newReporter(cfg)

	source, err := newSource(cfg)
	if err != nil {
		return &enrich.ConfigurationError{Err: err}
	}

	reporter.EmitStage("load", "Reading input table")
	readStart := time.Now()
	table, err := source.Read(ctx)
	if err != nil {
		reporter.EmitError("load", err)
		return errors.Wrap(err, "load input")
	}
	logger.Infow("Input loaded",
		"records", len(table.Records),
		"columns", len(table.Columns),
		"elapsed", time.Since(readStart).Round(time.Millisecond).String(),
	)

	provider, err := newSearchProvider(cfg, logger)
	if err != nil {
		return &enrich.ConfigurationError{Err: err}
	}
	completer, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return &enrich.ConfigurationError{Err: err}
	}
	engine := extract.New(completer, extract.Options{
		MaxSnippets:  cfg.Extract.MaxSnippets,
		SnippetChars: cfg.Extract.SnippetChars,
		ContextChars: cfg.Extract.ContextChars,
	}, logger)

	plan := enrich.Plan{
		EntityColumn: cfg.Job.EntityColumn,
		Template:     cfg.Job.Template,
		Instruction:  cfg.Job.Instruction,
		Slots: enrich.OutputSlots{
			Value:  cfg.Job.ValueColumn,
			Status: cfg.Job.StatusColumn,
			Error:  cfg.Job.ErrorColumn,
		},
		Placeholder: cfg.Job.Placeholder,
	}
	orchestrator := enrich.New(plan, provider, engine, reporter, logger)

	reporter.EmitStage("enrich", fmt.Sprintf("Processing %d records", len(table.Records)))
	out, err := orchestrator.Run(ctx, table)
	if err != nil {
		reporter.EmitError("enrich", err)
		return err
	}

	outputPath := cfg.Output.Path
	if outputPath == "" {
		outputPath = defaultOutputName(time.Now())
	}
	reporter.EmitStage("write", "Writing results to "+outputPath)
	if err := writeOutputs(ctx, cfg, outputPath, out, logger); err != nil {
		reporter.EmitError("write", err)
		return err
	}

	reporter.EmitComplete(map[string]any{
		"output":    outputPath,
		"total":     out.Summary.Total,
		"done":      out.Summary.Done,
		"not_found": out.Summary.NotFound,
		"failed":    out.Summary.Failed,
	})
	logger.Infow("Run complete",
		"output", outputPath,
		"done", out.Summary.Done,
		"failed", out.Summary.Failed,
		"elapsed", time.Since(runStart).Round(time.Millisecond).String(),
	)
	return nil
}

// Columns reads just the input table's header so users can pick the entity
// column before configuring a run.
func Columns(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	source, err := newSource(cfg)
	if err != nil {
		return nil, &enrich.ConfigurationError{Err: err}
	}
	table, err := source.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load input")
	}
	logger.Debugw("Input columns resolved", "columns", len(table.Columns))
	return table.Columns, nil
}

// defaultOutputName names the result file when output.path is not set.
func defaultOutputName(now time.Time) string {
	return "enriched_data_" + now.Format("20060102_150405") + ".csv"
}
