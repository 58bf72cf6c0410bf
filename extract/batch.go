package extract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aridlab/litreview/artifact"
)

// DefaultBatchSize is the default number of concurrent extraction tasks
// per group, a throughput trade-off against provider rate limits.
const DefaultBatchSize = 4

// Report summarizes a full orchestrator run.
type Report struct {
	RunID     uuid.UUID
	Total     int
	Succeeded int
	Failed    int
	Groups    int
	Outcomes  []Outcome // document order, one per input
	Elapsed   time.Duration
}

// Failures returns the failed outcomes, in document order.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Orchestrator partitions pending documents into fixed-size groups and
// drains each group fully before starting the next. Failures are
// collected per document and never abort sibling tasks or later groups.
type Orchestrator struct {
	Runner    *Runner
	BatchSize int
}

// Run processes all documents and returns the aggregated report. A
// cancelled context abandons the remaining groups; outcomes already
// reached stay in the report and their artifacts stay on disk.
func (o *Orchestrator) Run(ctx context.Context, docs []artifact.Document) *Report {
	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	report := &Report{
		RunID: uuid.New(),
		Total: len(docs),
	}
	start := time.Now()
	totalGroups := (len(docs) + batchSize - 1) / batchSize

	slog.Info("extract: starting batch run",
		"run_id", report.RunID, "documents", len(docs),
		"batch_size", batchSize, "groups", totalGroups)

	for groupStart := 0; groupStart < len(docs); groupStart += batchSize {
		if ctx.Err() != nil {
			slog.Warn("extract: run interrupted, abandoning remaining groups",
				"run_id", report.RunID, "processed", len(report.Outcomes), "total", len(docs))
			break
		}

		end := groupStart + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		group := docs[groupStart:end]
		groupNum := groupStart/batchSize + 1

		slog.Info("extract: processing group",
			"run_id", report.RunID, "group", groupNum, "of", totalGroups, "size", len(group))

		// Launch every task in the group, then barrier on the whole
		// group. Each goroutine owns one slot of the outcome slice, so
		// aggregation is by document identity, not completion order.
		outcomes := make([]Outcome, len(group))
		var wg sync.WaitGroup
		for i, doc := range group {
			wg.Add(1)
			go func(i int, doc artifact.Document) {
				defer wg.Done()
				outcomes[i] = o.Runner.Process(ctx, doc)
			}(i, doc)
		}
		wg.Wait()

		succeeded := 0
		for _, out := range outcomes {
			if !out.Failed() {
				succeeded++
			}
		}
		report.Outcomes = append(report.Outcomes, outcomes...)
		report.Succeeded += succeeded
		report.Failed += len(group) - succeeded
		report.Groups++

		slog.Info("extract: group complete",
			"run_id", report.RunID, "group", groupNum,
			"succeeded", succeeded, "failed", len(group)-succeeded)
	}

	report.Elapsed = time.Since(start)
	slog.Info("extract: batch run complete",
		"run_id", report.RunID, "total", report.Total,
		"succeeded", report.Succeeded, "failed", report.Failed,
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report
}
