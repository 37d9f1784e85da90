// Package config assembles the run configuration from an optional YAML
// file, ROWSCOUT_-prefixed environment variables, conventional provider
// credential variables, and an optional job file.
package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Provider and backend names accepted by the factories in internal/app.
const (
	SearchSerpAPI   = "serpapi"
	SearchGoogleCSE = "googlecse"

	LLMGroq      = "groq"
	LLMAnthropic = "anthropic"
	LLMGemini    = "gemini"
)

// Config is the full run configuration.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Job      JobConfig      `mapstructure:"job"`
	Search   SearchConfig   `mapstructure:"search"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Progress ProgressConfig `mapstructure:"progress"`
	Log      LogConfig      `mapstructure:"log"`
}

// InputConfig locates the table to enrich. Exactly one of Path or URL must
// be set; Path format is inferred from the extension (.csv or .xlsx).
type InputConfig struct {
	Path  string `mapstructure:"path"`
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"` // bearer token for URL sources
}

// OutputConfig names the result destinations. Path empty means a
// timestamped CSV next to the working directory; the XLSX and SQLite
// write-backs are optional extras.
type OutputConfig struct {
	Path        string `mapstructure:"path"`
	XLSXPath    string `mapstructure:"xlsx_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	SQLiteTable string `mapstructure:"sqlite_table"`
}

// JobConfig describes what to enrich: which column holds the entity, how to
// phrase the search, and where results land. A job file (--job) overrides
// these field by field.
type JobConfig struct {
	EntityColumn string `mapstructure:"entity_column"`
	Template     string `mapstructure:"template"`
	Instruction  string `mapstructure:"instruction"`
	ValueColumn  string `mapstructure:"value_column"`
	StatusColumn string `mapstructure:"status_column"`
	ErrorColumn  string `mapstructure:"error_column"`
	Placeholder  string `mapstructure:"placeholder"`
}

// SearchConfig selects and tunes the search provider.
type SearchConfig struct {
	Provider     string  `mapstructure:"provider"`
	SerpAPIKey   string  `mapstructure:"serpapi_key"`
	GoogleAPIKey string  `mapstructure:"google_api_key"`
	GoogleCSEID  string  `mapstructure:"google_cse_id"`
	BaseURL      string  `mapstructure:"base_url"` // test/proxy override
	MaxResults   int     `mapstructure:"max_results"`
	TimeoutSecs  int     `mapstructure:"timeout_seconds"`
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
	MaxRetries   int     `mapstructure:"max_retries"`
}

// LLMConfig selects and tunes the completion backend.
type LLMConfig struct {
	Backend         string  `mapstructure:"backend"`
	Model           string  `mapstructure:"model"` // empty = backend default
	GroqAPIKey      string  `mapstructure:"groq_api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key"`
	BaseURL         string  `mapstructure:"base_url"` // test/proxy override
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"` // 0 = API default
	MaxRetries      int     `mapstructure:"max_retries"`
	TimeoutSecs     int     `mapstructure:"timeout_seconds"`
}

// ExtractConfig tunes the prompt-assembly budgets.
type ExtractConfig struct {
	MaxSnippets  int `mapstructure:"max_snippets"`
	SnippetChars int `mapstructure:"snippet_chars"`
	ContextChars int `mapstructure:"context_chars"`
}

// ProgressConfig selects how per-record progress is reported: cli, json,
// or none.
type ProgressConfig struct {
	Format    string `mapstructure:"format"`
	Verbosity int    `mapstructure:"verbosity"`
}

// LogConfig tunes the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// credential is a required secret for a selected provider, described the
// way it is reported when absent.
type credential struct {
	value       string
	name        string
	description string
}

// Validate checks the configuration as a whole and reports every problem
// at once: invalid field values and all missing credentials for the
// selected providers, each with a description of what it is for.
func (c *Config) Validate() error {
	var invalid []string
	var missing []string

	switch {
	case c.Input.Path == "" && c.Input.URL == "":
		missing = append(missing, "input.path or input.url (location of the table to enrich)")
	case c.Input.Path != "" && c.Input.URL != "":
		invalid = append(invalid, "input.path and input.url are mutually exclusive")
	}

	if strings.TrimSpace(c.Job.EntityColumn) == "" {
		missing = append(missing, "job.entity_column (column holding the entity to search for)")
	}
	if strings.TrimSpace(c.Job.Template) == "" {
		missing = append(missing, "job.template (search query template containing {entity})")
	}

	var creds []credential
	switch c.Search.Provider {
	case SearchSerpAPI:
		creds = append(creds, credential{c.Search.SerpAPIKey, "SERPAPI_KEY", "SerpAPI key for web searches"})
	case SearchGoogleCSE:
		creds = append(creds,
			credential{c.Search.GoogleAPIKey, "GOOGLE_API_KEY", "Google API key for Custom Search"},
			credential{c.Search.GoogleCSEID, "GOOGLE_CSE_ID", "Google Custom Search engine ID"},
		)
	default:
		invalid = append(invalid, "search.provider must be one of serpapi, googlecse (got "+strconv.Quote(c.Search.Provider)+")")
	}

	switch c.LLM.Backend {
	case LLMGroq:
		creds = append(creds, credential{c.LLM.GroqAPIKey, "GROQ_API_KEY", "Groq API key for LLM processing"})
	case LLMAnthropic:
		creds = append(creds, credential{c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY", "Anthropic API key for LLM processing"})
	case LLMGemini:
		creds = append(creds, credential{c.LLM.GeminiAPIKey, "GEMINI_API_KEY", "Gemini API key for LLM processing"})
	default:
		invalid = append(invalid, "llm.backend must be one of groq, anthropic, gemini (got "+strconv.Quote(c.LLM.Backend)+")")
	}

	switch c.Progress.Format {
	case "cli", "json", "none":
	default:
		invalid = append(invalid, "progress.format must be one of cli, json, none (got "+strconv.Quote(c.Progress.Format)+")")
	}

	for _, cred := range creds {
		if strings.TrimSpace(cred.value) == "" {
			missing = append(missing, cred.name+" ("+cred.description+")")
		}
	}

	var errs []error
	if len(invalid) > 0 {
		errs = append(errs, errors.Newf("invalid configuration:\n- %s", strings.Join(invalid, "\n- ")))
	}
	if len(missing) > 0 {
		errs = append(errs, errors.Newf("missing required configuration:\n- %s", strings.Join(missing, "\n- ")))
	}
	return errors.Join(errs...)
}
