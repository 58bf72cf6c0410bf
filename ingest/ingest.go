// Package ingest merges extraction result artifacts into the relational
// store incrementally: only artifacts whose natural key is not yet in the
// store are processed, so repeated runs are idempotent and cost
// O(new artifacts).
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aridlab/litreview/artifact"
	"github.com/aridlab/litreview/store"
)

// FileStatus is the terminal state of one result artifact in a run.
type FileStatus string

const (
	StatusInserted FileStatus = "inserted"
	StatusSkipped  FileStatus = "skipped" // key already in the store
	StatusFailed   FileStatus = "failed"
)

// FileOutcome records what happened to one result artifact.
type FileOutcome struct {
	Name   string
	Key    string
	Status FileStatus
	Err    error
}

// Report summarizes an ingestion run.
type Report struct {
	RunID        uuid.UUID
	Scanned      int
	Inserted     int
	Skipped      int
	Failed       int
	Outcomes     []FileOutcome
	TotalReviews int // store total after the run
	Elapsed      time.Duration
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []FileOutcome {
	var failed []FileOutcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Engine drives one single-threaded ingestion pass over the artifact
// store.
type Engine struct {
	Store     *store.Store
	Artifacts *artifact.Store
}

// Run discovers result artifacts not yet in the store and inserts them
// one record at a time. Failures are scoped to the file that caused
// them; the pass always continues with the next artifact.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New()}
	start := time.Now()

	known, err := e.Store.KnownFilenames(ctx)
	if err != nil {
		return nil, err
	}

	results, err := e.Artifacts.ListResults()
	if err != nil {
		return nil, err
	}
	report.Scanned = len(results)

	slog.Info("ingest: starting run",
		"run_id", report.RunID, "existing", len(known), "artifacts", len(results))

	for _, result := range results {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		key, err := naturalKey(result.Record)
		if err != nil {
			slog.Error("ingest: ungroupable record", "file", result.Name, "error", err)
			report.Failed++
			report.Outcomes = append(report.Outcomes, FileOutcome{
				Name: result.Name, Status: StatusFailed, Err: err,
			})
			continue
		}

		if _, exists := known[key]; exists {
			report.Skipped++
			report.Outcomes = append(report.Outcomes, FileOutcome{
				Name: result.Name, Key: key, Status: StatusSkipped,
			})
			continue
		}

		rec := mapRecord(key, result.Record)
		if err := e.Store.InsertReview(ctx, rec); err != nil {
			slog.Error("ingest: insert failed", "file", result.Name, "key", key, "error", err)
			report.Failed++
			report.Outcomes = append(report.Outcomes, FileOutcome{
				Name: result.Name, Key: key, Status: StatusFailed, Err: err,
			})
			continue
		}

		// Guards against two artifacts claiming the same key in one run.
		known[key] = struct{}{}
		report.Inserted++
		report.Outcomes = append(report.Outcomes, FileOutcome{
			Name: result.Name, Key: key, Status: StatusInserted,
		})
		slog.Info("ingest: record added", "file", result.Name, "key", key,
			"health_outcomes", len(rec.HealthOutcomes),
			"climate_vars", len(rec.ClimateWeather),
			"correlations", len(rec.Correlations))
	}

	total, err := e.Store.CountReviews(ctx)
	if err != nil {
		return report, err
	}
	report.TotalReviews = total
	report.Elapsed = time.Since(start)

	slog.Info("ingest: run complete",
		"run_id", report.RunID, "scanned", report.Scanned,
		"inserted", report.Inserted, "skipped", report.Skipped,
		"failed", report.Failed, "total_reviews", total,
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}
