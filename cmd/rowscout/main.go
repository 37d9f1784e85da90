// Command rowscout enriches tabular records with web search results
// distilled by a language model.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rowscout/rowscout/internal/app"
	"github.com/rowscout/rowscout/internal/config"
	"github.com/rowscout/rowscout/internal/logging"
	"github.com/rowscout/rowscout/internal/version"
	"github.com/rowscout/rowscout/pkg/enrich"
	"github.com/rowscout/rowscout/pkg/redact"
)

var rootCmd = &cobra.Command{
	Use:   "rowscout",
	Short: "Enrich tabular records with web search + LLM extraction",
	Long: `rowscout reads a table of records, derives a web-search query for each
row from a template, and asks a language model to extract one requested
piece of information from the top result snippets.

Examples:
  rowscout columns --input companies.csv
  rowscout run --input companies.csv --entity-column company \
      --template "latest news about {entity}"
  rowscout run --job job.yaml --output enriched.csv

Credentials come from the environment (or a .env file):
  SERPAPI_KEY         SerpAPI key for web searches
  GOOGLE_API_KEY      Google API key for Custom Search
  GOOGLE_CSE_ID       Google Custom Search engine ID
  GROQ_API_KEY        Groq API key for LLM processing
  ANTHROPIC_API_KEY   Anthropic API key for LLM processing
  GEMINI_API_KEY      Gemini API key for LLM processing

Any config key can be set as ROWSCOUT_<SECTION>_<KEY>, e.g.
ROWSCOUT_SEARCH_PROVIDER=googlecse.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one enrichment batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
		applyRunFlags(cmd, cfg)
		return app.Run(cmd.Context(), cfg, logger)
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Print the input table's column names",
	Long: `Print the input table's column names, one per line, to help pick the
entity column before configuring a run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
		applyInputFlags(cmd, cfg)

		cols, err := app.Columns(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		for _, col := range cols {
			fmt.Println(col)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rowscout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("rowscout", version.Current)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file (default: ./rowscout.yaml if present)")
	pf.String("env-file", "", "Path to a .env file (default: first .env found upward)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")

	rf := runCmd.Flags()
	rf.String("input", "", "Input table path (.csv or .xlsx)")
	rf.String("input-url", "", "Input CSV endpoint URL (bearer token via ROWSCOUT_SOURCE_TOKEN)")
	rf.String("output", "", "Output CSV path (default: enriched_data_<timestamp>.csv)")
	rf.String("job", "", "Job file (YAML) with entity column, template, output columns")
	rf.String("entity-column", "", "Column holding the entity to search for")
	rf.String("template", "", "Search query template containing {entity} exactly once")
	rf.String("instruction", "", "What to extract (default: the rendered query)")
	rf.String("placeholder", "", "Value written for failed records")
	rf.String("search-provider", "", "Search provider: serpapi or googlecse")
	rf.String("llm-backend", "", "LLM backend: groq, anthropic, or gemini")
	rf.String("model", "", "Model name (default: backend-specific)")
	rf.String("progress", "", "Progress output: cli, json, or none")

	cf := columnsCmd.Flags()
	cf.String("input", "", "Input table path (.csv or .xlsx)")
	cf.String("input-url", "", "Input CSV endpoint URL")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and builds the logger shared by all commands.
func setup(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	jobFile := ""
	if f := cmd.Flags().Lookup("job"); f != nil {
		jobFile = f.Value.String()
	}

	cfg, err := config.Load(config.Options{
		ConfigFile: configFile,
		EnvFile:    envFile,
		JobFile:    jobFile,
	})
	if err != nil {
		return nil, nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	return cfg, logger, nil
}

// applyInputFlags overrides the input location from explicit flags.
func applyInputFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("input") {
		cfg.Input.Path, _ = cmd.Flags().GetString("input")
	}
	if cmd.Flags().Changed("input-url") {
		cfg.Input.URL, _ = cmd.Flags().GetString("input-url")
	}
}

// applyRunFlags overrides configuration with explicitly set run flags.
// Flags sit above the config file, environment, and job file.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	applyInputFlags(cmd, cfg)
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("output", &cfg.Output.Path)
	set("entity-column", &cfg.Job.EntityColumn)
	set("template", &cfg.Job.Template)
	set("instruction", &cfg.Job.Instruction)
	set("placeholder", &cfg.Job.Placeholder)
	set("search-provider", &cfg.Search.Provider)
	set("llm-backend", &cfg.LLM.Backend)
	set("model", &cfg.LLM.Model)
	set("progress", &cfg.Progress.Format)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, redact.Secrets(err.Error()))
		var cfgErr *enrich.ConfigurationError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
