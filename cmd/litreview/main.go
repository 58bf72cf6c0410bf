package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aridlab/litreview"
)

func main() {
	var configPath, baseDir string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "litreview",
		Short: "Literature review extraction and ingestion pipeline",
		Long: `litreview turns a corpus of climate-health research PDFs into a
normalized SQLite store plus Parquet/XLSX exports, using an external
AI extraction capability.

Workflow: drop PDFs into the pdfs directory, run "litreview extract"
to produce one review JSON per document, then "litreview ingest" to
merge new reviews into the database and refresh the exports. Both
commands are safe to re-run.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "corpus root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(extractCmd(&configPath, &baseDir))
	rootCmd.AddCommand(ingestCmd(&configPath, &baseDir))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: defaults, optional YAML
// file, then environment and flag overrides, resolved last so overriding
// base_dir relocates every derived path.
func loadConfig(configPath, baseDir string) (litreview.Config, error) {
	cfg, err := litreview.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	if v := os.Getenv("LITREVIEW_BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if v := os.Getenv("LITREVIEW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LITREVIEW_SCHEMA_PATH"); v != "" {
		cfg.SchemaPath = v
	}
	if v := os.Getenv("LITREVIEW_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LITREVIEW_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LITREVIEW_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LITREVIEW_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	// Well-known provider env vars for API keys.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("LITREVIEW_API_KEY")
		}
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
