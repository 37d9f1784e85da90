package app_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rowscout/rowscout/internal/app"
	"github.com/rowscout/rowscout/internal/config"
	"github.com/rowscout/rowscout/pkg/enrich"
)

// fakeSearch serves the SerpAPI wire shape with canned snippets and records
// every query it sees.
type fakeSearch struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeSearch) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]any{
				{"title": "Company profile", "snippet": "Founded in 1994 in Springfield.", "link": "https://example.com/profile", "position": 1},
				{"title": "News", "snippet": "Quarterly results announced.", "link": "https://example.com/news", "position": 2},
			},
		})
	})
}

func (f *fakeSearch) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// fakeLLM serves the chat-completions wire shape with a fixed answer.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	content string
}

func (f *fakeLLM) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls++
		content := f.content
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	})
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(t *testing.T, searchURL, llmURL string) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "companies.csv")
	input := "company,city\nAcme Corp,Berlin\nGlobex,Paris\n"
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	outputPath := filepath.Join(dir, "enriched.csv")

	return &config.Config{
		Input:  config.InputConfig{Path: inputPath},
		Output: config.OutputConfig{Path: outputPath, SQLiteTable: "enriched_records"},
		Job: config.JobConfig{
			EntityColumn: "company",
			Template:     "latest news about {entity}",
			Instruction:  "Extract the founding year",
			StatusColumn: "Status",
		},
		Search: config.SearchConfig{
			Provider:    config.SearchSerpAPI,
			SerpAPIKey:  "sk-test",
			BaseURL:     searchURL,
			MaxResults:  5,
			TimeoutSecs: 5,
		},
		LLM: config.LLMConfig{
			Backend:     config.LLMGroq,
			GroqAPIKey:  "gsk-test",
			BaseURL:     llmURL,
			Temperature: 0.3,
			TimeoutSecs: 5,
		},
		Progress: config.ProgressConfig{Format: "none"},
	}, outputPath
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("parse output csv: %v", err)
	}
	return records
}

func TestRunEndToEnd(t *testing.T) {
	search := &fakeSearch{}
	searchSrv := httptest.NewServer(search.handler())
	defer searchSrv.Close()

	llm := &fakeLLM{content: "1994"}
	llmSrv := httptest.NewServer(llm.handler())
	defer llmSrv.Close()

	cfg, outputPath := testConfig(t, searchSrv.URL, llmSrv.URL)
	logger := zaptest.NewLogger(t).Sugar()

	if err := app.Run(context.Background(), cfg, logger); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	records := readCSV(t, outputPath)
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}

	wantHeader := []string{"company", "city", "Extracted Information", "Status"}
	if len(records[0]) != len(wantHeader) {
		t.Fatalf("header: got %v want %v", records[0], wantHeader)
	}
	for i := range wantHeader {
		if records[0][i] != wantHeader[i] {
			t.Fatalf("header[%d]: got %q want %q", i, records[0][i], wantHeader[i])
		}
	}

	if records[1][0] != "Acme Corp" || records[1][2] != "1994" || records[1][3] != "done" {
		t.Fatalf("unexpected row[1]: %#v", records[1])
	}
	if records[2][0] != "Globex" || records[2][2] != "1994" || records[2][3] != "done" {
		t.Fatalf("unexpected row[2]: %#v", records[2])
	}

	queries := search.seen()
	if len(queries) != 2 {
		t.Fatalf("expected 2 search calls, got %d: %v", len(queries), queries)
	}
	if queries[0] != "latest news about Acme Corp" || queries[1] != "latest news about Globex" {
		t.Fatalf("unexpected queries: %v", queries)
	}
	if got := llm.callCount(); got != 2 {
		t.Fatalf("expected 2 llm calls, got %d", got)
	}
}

func TestRunWritesOptionalSinks(t *testing.T) {
	search := &fakeSearch{}
	searchSrv := httptest.NewServer(search.handler())
	defer searchSrv.Close()

	llm := &fakeLLM{content: "1994"}
	llmSrv := httptest.NewServer(llm.handler())
	defer llmSrv.Close()

	cfg, _ := testConfig(t, searchSrv.URL, llmSrv.URL)
	dir := t.TempDir()
	cfg.Output.XLSXPath = filepath.Join(dir, "enriched.xlsx")
	cfg.Output.SQLitePath = filepath.Join(dir, "enriched.db")

	if err := app.Run(context.Background(), cfg, zaptest.NewLogger(t).Sugar()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fi, err := os.Stat(cfg.Output.XLSXPath); err != nil || fi.Size() == 0 {
		t.Fatalf("xlsx write-back missing or empty: %v", err)
	}

	// The sqlite driver is registered by the sink package.
	db, err := sql.Open("sqlite", cfg.Output.SQLitePath)
	if err != nil {
		t.Fatalf("open write-back db: %v", err)
	}
	defer db.Close()
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "enriched_records"`).Scan(&rows); err != nil {
		t.Fatalf("count write-back rows: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 write-back rows, got %d", rows)
	}
}

func TestRunAbortsOnMalformedTemplateBeforeAnyCall(t *testing.T) {
	search := &fakeSearch{}
	searchSrv := httptest.NewServer(search.handler())
	defer searchSrv.Close()

	llm := &fakeLLM{content: "1994"}
	llmSrv := httptest.NewServer(llm.handler())
	defer llmSrv.Close()

	cfg, outputPath := testConfig(t, searchSrv.URL, llmSrv.URL)
	cfg.Job.Template = "latest news with no placeholder"

	err := app.Run(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	if err == nil {
		t.Fatal("expected error for malformed template")
	}
	var cfgErr *enrich.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if got := len(search.seen()); got != 0 {
		t.Fatalf("expected no search calls, got %d", got)
	}
	if got := llm.callCount(); got != 0 {
		t.Fatalf("expected no llm calls, got %d", got)
	}
	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestRunRejectsMissingCredentials(t *testing.T) {
	cfg, _ := testConfig(t, "http://unused.invalid", "http://unused.invalid")
	cfg.LLM.GroqAPIKey = ""

	err := app.Run(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	if err == nil {
		t.Fatal("expected error for missing credential")
	}
	var cfgErr *enrich.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if want := "GROQ_API_KEY"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not name %s", err, want)
	}
}

func TestColumnsListsInputHeader(t *testing.T) {
	cfg, _ := testConfig(t, "http://unused.invalid", "http://unused.invalid")

	cols, err := app.Columns(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	want := []string{"company", "city"}
	if len(cols) != len(want) {
		t.Fatalf("columns: got %v want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns[%d]: got %q want %q", i, cols[i], want[i])
		}
	}
}
