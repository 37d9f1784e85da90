package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/rowscout/rowscout/internal/config"
	"github.com/rowscout/rowscout/pkg/enrich"
	"github.com/rowscout/rowscout/pkg/record"
	"github.com/rowscout/rowscout/pkg/record/csvio"
	"github.com/rowscout/rowscout/pkg/record/sqliteio"
	"github.com/rowscout/rowscout/pkg/record/xlsxio"
)

// writeOutputs persists the batch result. The CSV at path is the primary
// artifact and its failure fails the run; the XLSX and SQLite write-backs
// are best-effort extras whose failures are logged and swallowed — the
// in-memory results and the primary CSV stay valid.
func writeOutputs(ctx context.Context, cfg *config.Config, path string, out *enrich.Output, logger *zap.SugaredLogger) error {
	table := out.Table()

	if err := (csvio.FileSink{Path: path}).Write(ctx, table); err != nil {
		return &enrich.SinkError{Sink: "csv", Err: err}
	}
	logger.Infow("Results written", "sink", "csv", "path", path, "rows", len(table.Records))

	if cfg.Output.XLSXPath != "" {
		if err := (xlsxio.FileSink{Path: cfg.Output.XLSXPath}).Write(ctx, table); err != nil {
			logger.Warnw("Optional write-back failed",
				"sink", "xlsx",
				"error", &enrich.SinkError{Sink: "xlsx", Err: err},
			)
		} else {
			logger.Infow("Results written", "sink", "xlsx", "path", cfg.Output.XLSXPath, "rows", len(table.Records))
		}
	}

	if cfg.Output.SQLitePath != "" {
		writeSQLite(ctx, cfg, table, logger)
	}
	return nil
}

func writeSQLite(ctx context.Context, cfg *config.Config, table record.Table, logger *zap.SugaredLogger) {
	db, err := sqliteio.Open(cfg.Output.SQLitePath, logger)
	if err != nil {
		logger.Warnw("Optional write-back failed",
			"sink", "sqlite",
			"error", &enrich.SinkError{Sink: "sqlite", Err: err},
		)
		return
	}
	defer func() {
		_ = db.Close()
	}()

	sink := sqliteio.NewTableSink(db, cfg.Output.SQLiteTable, logger)
	if err := sink.Write(ctx, table); err != nil {
		logger.Warnw("Optional write-back failed",
			"sink", "sqlite",
			"error", &enrich.SinkError{Sink: "sqlite", Err: err},
		)
	}
}
