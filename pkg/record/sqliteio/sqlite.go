// Package sqliteio persists a result table into a SQLite database for
// write-back. The run's output replaces the target table as one snapshot.
package sqliteio

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rowscout/rowscout/pkg/record"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens a SQLite database at the specified path with settings suited
// to batch write-back.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger.Debugw("Opening write-back database", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// TableSink writes a result table into one SQLite table, replacing any
// previous snapshot, all inside a single transaction.
type TableSink struct {
	db     *sql.DB
	table  string
	logger *zap.SugaredLogger
}

// NewTableSink creates a sink writing into the named table.
func NewTableSink(db *sql.DB, table string, logger *zap.SugaredLogger) *TableSink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TableSink{db: db, table: table, logger: logger}
}

func (s *TableSink) Write(ctx context.Context, t record.Table) error {
	if !tableNameRe.MatchString(s.table) {
		return fmt.Errorf("invalid write-back table name %q", s.table)
	}

	cols := make([]string, len(t.Columns))
	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		defs[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write-back transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(s.table)); err != nil {
		return fmt.Errorf("drop previous snapshot: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	args := make([]any, len(t.Columns))
	for i, rec := range t.Records {
		for j, col := range t.Columns {
			args[j] = rec.Value(col)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write-back: %w", err)
	}

	s.logger.Infow("Write-back complete",
		"table", s.table,
		"rows", len(t.Records),
	)
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
