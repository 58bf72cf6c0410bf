package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aridlab/litreview"
	"github.com/aridlab/litreview/artifact"
	"github.com/aridlab/litreview/export"
	"github.com/aridlab/litreview/ingest"
	"github.com/aridlab/litreview/store"
)

func ingestCmd(configPath, baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Merge new review files into the database and refresh exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *baseDir)
			if err != nil {
				return err
			}

			artifacts, err := artifact.NewStore(cfg.PDFDir, cfg.ReviewDir)
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			engine := &ingest.Engine{Store: db, Artifacts: artifacts}
			report, err := engine.Run(cmd.Context())
			if err != nil {
				return err
			}

			// Exports are derived state: a failure here is a warning,
			// the ingested rows are already durable.
			if report.Inserted > 0 {
				exp := &export.Exporter{
					Store:       db,
					ParquetPath: cfg.ParquetPath,
					XLSXPath:    cfg.XLSXPath,
				}
				if err := exp.Run(cmd.Context()); err != nil {
					slog.Warn("export failed", "error", err)
					color.Yellow("⚠ Export warning: %v", err)
				}
			}

			printIngestSummary(report, cfg)
			return nil
		},
	}
}

func printIngestSummary(report *ingest.Report, cfg litreview.Config) {
	fmt.Println()
	color.New(color.Bold).Println("INGESTION COMPLETE")
	fmt.Printf("Review files scanned: %d\n", report.Scanned)
	color.Green("  ✓ Added:   %d", report.Inserted)
	fmt.Printf("  - Skipped: %d (already in database)\n", report.Skipped)
	if report.Failed > 0 {
		color.Red("  ✗ Errors:  %d", report.Failed)
		for _, out := range report.Failures() {
			color.Red("  - %s: %v", out.Name, out.Err)
		}
	}
	fmt.Printf("\nTotal reviews in database: %d\n", report.TotalReviews)
	fmt.Printf("Database: %s\n", cfg.DBPath)
	if report.Inserted > 0 {
		fmt.Printf("Parquet:  %s\n", cfg.ParquetPath)
	}
}
