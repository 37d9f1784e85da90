package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/rowscout/rowscout/internal/config"
	"github.com/rowscout/rowscout/pkg/llm"
	"github.com/rowscout/rowscout/pkg/llm/anthropic"
	"github.com/rowscout/rowscout/pkg/llm/gemini"
	"github.com/rowscout/rowscout/pkg/llm/groq"
	"github.com/rowscout/rowscout/pkg/progress"
	"github.com/rowscout/rowscout/pkg/record"
	"github.com/rowscout/rowscout/pkg/record/csvio"
	"github.com/rowscout/rowscout/pkg/record/httpio"
	"github.com/rowscout/rowscout/pkg/record/xlsxio"
	"github.com/rowscout/rowscout/pkg/search"
	"github.com/rowscout/rowscout/pkg/search/googlecse"
	"github.com/rowscout/rowscout/pkg/search/serpapi"
)

// newSource picks the input source: a remote CSV endpoint when input.url is
// set, otherwise a local file by extension (.xlsx → workbook, anything else
// → CSV).
func newSource(cfg *config.Config) (record.Source, error) {
	if cfg.Input.URL != "" {
		return httpio.NewSource(cfg.Input.URL, cfg.Input.Token)
	}
	if cfg.Input.Path == "" {
		return nil, errors.New("no input configured: set input.path or input.url")
	}
	if strings.EqualFold(filepath.Ext(cfg.Input.Path), ".xlsx") {
		return xlsxio.FileSource{Path: cfg.Input.Path}, nil
	}
	return csvio.FileSource{Path: cfg.Input.Path}, nil
}

// newSearchProvider builds the configured search client.
func newSearchProvider(cfg *config.Config, logger *zap.SugaredLogger) (search.Provider, error) {
	opts := search.Options{
		MaxResults:   cfg.Search.MaxResults,
		Timeout:      time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		RateLimitRPS: cfg.Search.RateLimitRPS,
		MaxRetries:   cfg.Search.MaxRetries,
	}
	switch cfg.Search.Provider {
	case config.SearchSerpAPI:
		return serpapi.New(serpapi.Config{
			APIKey:  cfg.Search.SerpAPIKey,
			BaseURL: cfg.Search.BaseURL,
			Options: opts,
		}, logger)
	case config.SearchGoogleCSE:
		return googlecse.New(googlecse.Config{
			APIKey:   cfg.Search.GoogleAPIKey,
			EngineID: cfg.Search.GoogleCSEID,
			BaseURL:  cfg.Search.BaseURL,
			Options:  opts,
		}, logger)
	default:
		return nil, errors.Newf("unknown search provider %q", cfg.Search.Provider)
	}
}

// newCompleter builds the configured LLM client.
func newCompleter(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (llm.Completer, error) {
	switch cfg.LLM.Backend {
	case config.LLMGroq:
		gcfg := groq.Config{
			APIKey:      cfg.LLM.GroqAPIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: &cfg.LLM.Temperature,
			MaxRetries:  cfg.LLM.MaxRetries,
			Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		}
		if cfg.LLM.MaxTokens > 0 {
			gcfg.MaxTokens = &cfg.LLM.MaxTokens
		}
		return groq.New(gcfg, logger)
	case config.LLMAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:     cfg.LLM.AnthropicAPIKey,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			MaxTokens:  cfg.LLM.MaxTokens,
			MaxRetries: cfg.LLM.MaxRetries,
		}, logger)
	case config.LLMGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:     cfg.LLM.GeminiAPIKey,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			MaxRetries: cfg.LLM.MaxRetries,
		}, logger)
	default:
		return nil, errors.Newf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

// newReporter picks the progress surface. Unknown formats are caught by
// config validation; fall back to silent.
func newReporter(cfg *config.Config) progress.Reporter {
	switch cfg.Progress.Format {
	case "cli":
		return progress.NewCLIEmitter(cfg.Progress.Verbosity)
	case "json":
		return progress.NewJSONEmitter(nil)
	default:
		return progress.NopEmitter{}
	}
}
