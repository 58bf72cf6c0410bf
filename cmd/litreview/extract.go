package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aridlab/litreview"
	"github.com/aridlab/litreview/artifact"
	"github.com/aridlab/litreview/extract"
	"github.com/aridlab/litreview/llm"
)

func extractCmd(configPath, baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Run AI extraction over all PDFs lacking a review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, *baseDir)
			if err != nil {
				return err
			}

			if cfg.LLM.APIKey == "" {
				color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "ERROR: no API key configured")
				fmt.Fprintln(os.Stderr, "\nSet the credential for your provider, e.g.:")
				fmt.Fprintln(os.Stderr, "  export ANTHROPIC_API_KEY='your-key-here'")
				fmt.Fprintln(os.Stderr, "\nor put it in a .env file next to the binary.")
				return litreview.ErrMissingAPIKey
			}

			provider, err := llm.NewProvider(llm.Config{
				Provider:    cfg.LLM.Provider,
				Model:       cfg.LLM.Model,
				BaseURL:     cfg.LLM.BaseURL,
				APIKey:      cfg.LLM.APIKey,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
			})
			if err != nil {
				return err
			}

			artifacts, err := artifact.NewStore(cfg.PDFDir, cfg.ReviewDir)
			if err != nil {
				return err
			}

			pending, err := artifacts.Unprocessed()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				color.Green("✓ No unprocessed PDFs found. All documents have reviews.")
				return nil
			}

			fmt.Printf("Found %d unprocessed PDF(s):\n", len(pending))
			for _, doc := range pending {
				if doc.Pages > 0 {
					fmt.Printf("  - %s (%d pages)\n", doc.Name, doc.Pages)
				} else {
					fmt.Printf("  - %s\n", doc.Name)
				}
			}

			// An interrupt abandons the remaining groups; artifacts
			// already written stay valid.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch := &extract.Orchestrator{
				Runner: &extract.Runner{
					Artifacts:      artifacts,
					Provider:       provider,
					SchemaPath:     cfg.SchemaPath,
					SchemaVersion:  cfg.SchemaVersion,
					ExtractorAgent: cfg.ExtractorAgent,
					Temperature:    cfg.LLM.Temperature,
					MaxTokens:      cfg.LLM.MaxTokens,
				},
				BatchSize: cfg.BatchSize,
			}
			report := orch.Run(ctx, pending)
			printExtractSummary(report)
			return nil
		},
	}
}

func printExtractSummary(report *extract.Report) {
	fmt.Println()
	color.New(color.Bold).Println("EXTRACTION COMPLETE")
	fmt.Printf("Total PDFs: %d (%d group(s))\n", report.Total, report.Groups)
	color.Green("  ✓ Success: %d", report.Succeeded)
	if report.Failed > 0 {
		color.Red("  ✗ Errors:  %d", report.Failed)
		fmt.Println("\nFailed PDFs:")
		for _, out := range report.Failures() {
			color.Red("  - %s: %s (%v)", out.Document.Name, out.Status, out.Err)
		}
	}
	if report.Succeeded > 0 {
		fmt.Printf("\n✓ Created %d new review file(s)\n", report.Succeeded)
		fmt.Println("Next step: run \"litreview ingest\" to update the database")
	}
}
