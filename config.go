package litreview

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the extraction and ingestion pipeline.
type Config struct {
	// BaseDir is the corpus root. The default directory layout is
	// <BaseDir>/pdfs, <BaseDir>/reviews, <BaseDir>/db and
	// <BaseDir>/schema; any of the explicit path fields below override
	// their derived location.
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// PDFDir holds the source documents, one PDF per study.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`

	// ReviewDir holds extraction results (<stem>_review.json) and
	// debug dumps (<stem>_debug.txt).
	ReviewDir string `json:"review_dir" yaml:"review_dir"`

	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// ParquetPath is the columnar snapshot of the reviews table,
	// rewritten after every ingestion run that added rows.
	ParquetPath string `json:"parquet_path" yaml:"parquet_path"`

	// XLSXPath is the spreadsheet snapshot written alongside the
	// Parquet export. Empty disables it.
	XLSXPath string `json:"xlsx_path" yaml:"xlsx_path"`

	// SchemaPath is the externally supplied extraction schema (JSON).
	SchemaPath string `json:"schema_path" yaml:"schema_path"`

	// SchemaVersion is stamped into every extracted record's metadata.
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`

	// ExtractorAgent identifies this pipeline in extraction metadata.
	ExtractorAgent string `json:"extractor_agent" yaml:"extractor_agent"`

	// BatchSize caps concurrent extraction tasks. Groups of this size
	// are processed strictly in sequence.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// LLM configures the extraction capability.
	LLM LLMConfig `json:"llm" yaml:"llm"`
}

// LLMConfig configures the external extraction capability endpoint.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // anthropic, openai, custom
	Model       string  `json:"model" yaml:"model"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key" yaml:"api_key"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// DefaultConfig returns a Config with sensible defaults for a corpus
// rooted in the current working directory.
func DefaultConfig() Config {
	return Config{
		BaseDir:        ".",
		SchemaVersion:  "1.1",
		ExtractorAgent: "litreview-pdf-analyzer",
		BatchSize:      4,
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   16000,
			Temperature: 0.0,
		},
	}
}

// LoadConfig builds a Config from defaults, optionally overlaid with a
// YAML config file. Callers apply their own overrides and then call
// Resolve, so overriding base_dir relocates every derived path.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}
	return cfg, nil
}

// Resolve fills empty path fields from BaseDir. A config file only needs
// to set base_dir to relocate the whole corpus.
func (c *Config) Resolve() {
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	if c.PDFDir == "" {
		c.PDFDir = filepath.Join(base, "pdfs")
	}
	if c.ReviewDir == "" {
		c.ReviewDir = filepath.Join(base, "reviews")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(base, "db", "reviews.db")
	}
	if c.ParquetPath == "" {
		c.ParquetPath = filepath.Join(base, "db", "reviews.parquet")
	}
	if c.XLSXPath == "" {
		c.XLSXPath = filepath.Join(base, "db", "reviews.xlsx")
	}
	if c.SchemaPath == "" {
		c.SchemaPath = filepath.Join(base, "schema", "extraction_schema.json")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 4
	}
}

// Validate reports configuration values no pipeline run could work with.
// Call after Resolve.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("%w: llm.provider is empty", ErrInvalidConfig)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model is empty", ErrInvalidConfig)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalidConfig)
	}
	if c.SchemaVersion == "" {
		return fmt.Errorf("%w: schema_version is empty", ErrInvalidConfig)
	}
	return nil
}
