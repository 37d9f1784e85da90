package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ROWSCOUT"

// Options tell Load where to look beyond the conventional locations.
// All fields are optional.
type Options struct {
	ConfigFile string // explicit YAML config path (--config)
	EnvFile    string // explicit .env path (--env-file)
	JobFile    string // job description path (--job)
}

// Load assembles the configuration. Precedence, lowest to highest:
// built-in defaults, YAML config file, ROWSCOUT_-prefixed environment
// variables, job file fields, conventional credential variables (these
// only fill values still empty).
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", opts.ConfigFile)
		}
	} else {
		v.SetConfigName("rowscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if opts.JobFile != "" {
		if err := applyJobFile(&cfg, opts.JobFile); err != nil {
			return nil, err
		}
	}

	overrideEmptyCredentials(&cfg)
	return &cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv picks up
// ROWSCOUT_<SECTION>_<KEY> overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "")
	v.SetDefault("input.url", "")
	v.SetDefault("input.token", "")

	v.SetDefault("output.path", "")
	v.SetDefault("output.xlsx_path", "")
	v.SetDefault("output.sqlite_path", "")
	v.SetDefault("output.sqlite_table", "enriched_records")

	v.SetDefault("job.entity_column", "")
	v.SetDefault("job.template", "")
	v.SetDefault("job.instruction", "")
	v.SetDefault("job.value_column", "")
	v.SetDefault("job.status_column", "")
	v.SetDefault("job.error_column", "")
	v.SetDefault("job.placeholder", "")

	v.SetDefault("search.provider", SearchSerpAPI)
	v.SetDefault("search.serpapi_key", "")
	v.SetDefault("search.google_api_key", "")
	v.SetDefault("search.google_cse_id", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout_seconds", 30)
	v.SetDefault("search.rate_limit_rps", 0.0)
	v.SetDefault("search.max_retries", 2)

	v.SetDefault("llm.backend", LLMGroq)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.groq_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("extract.max_snippets", 5)
	v.SetDefault("extract.snippet_chars", 600)
	v.SetDefault("extract.context_chars", 4000)

	v.SetDefault("progress.format", "cli")
	v.SetDefault("progress.verbosity", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// loadEnvFile loads an explicit .env when given, otherwise the first one
// found in the conventional locations. A missing conventional file is not
// an error; a missing explicit file is.
func loadEnvFile(explicit string) error {
	if explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return errors.Wrapf(err, "load env file %s", explicit)
		}
		return nil
	}

	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			}
		}
	}
	return nil
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// jobSpec is the on-disk shape of a job file.
type jobSpec struct {
	EntityColumn string `yaml:"entity_column"`
	Template     string `yaml:"template"`
	Instruction  string `yaml:"instruction"`
	ValueColumn  string `yaml:"value_column"`
	StatusColumn string `yaml:"status_column"`
	ErrorColumn  string `yaml:"error_column"`
	Placeholder  string `yaml:"placeholder"`
}

// applyJobFile overlays non-empty job file fields onto the configuration.
func applyJobFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read job file %s", path)
	}
	var job jobSpec
	if err := yaml.Unmarshal(b, &job); err != nil {
		return errors.Wrapf(err, "parse job file %s", path)
	}

	if job.EntityColumn != "" {
		cfg.Job.EntityColumn = job.EntityColumn
	}
	if job.Template != "" {
		cfg.Job.Template = job.Template
	}
	if job.Instruction != "" {
		cfg.Job.Instruction = job.Instruction
	}
	if job.ValueColumn != "" {
		cfg.Job.ValueColumn = job.ValueColumn
	}
	if job.StatusColumn != "" {
		cfg.Job.StatusColumn = job.StatusColumn
	}
	if job.ErrorColumn != "" {
		cfg.Job.ErrorColumn = job.ErrorColumn
	}
	if job.Placeholder != "" {
		cfg.Job.Placeholder = job.Placeholder
	}
	return nil
}

// overrideEmptyCredentials fills still-empty secrets from the conventional
// environment variable names users already have in their shells.
func overrideEmptyCredentials(cfg *Config) {
	fill := func(dst *string, envName string) {
		if *dst == "" {
			if v := os.Getenv(envName); v != "" {
				*dst = v
			}
		}
	}
	fill(&cfg.Search.SerpAPIKey, "SERPAPI_KEY")
	fill(&cfg.Search.GoogleAPIKey, "GOOGLE_API_KEY")
	fill(&cfg.Search.GoogleCSEID, "GOOGLE_CSE_ID")
	fill(&cfg.LLM.GroqAPIKey, "GROQ_API_KEY")
	fill(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	fill(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	fill(&cfg.Input.Token, "ROWSCOUT_SOURCE_TOKEN")
}
