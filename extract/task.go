// Package extract runs AI-assisted extraction tasks over a PDF corpus:
// one document in, one structured review record out, scheduled in
// fixed-size concurrent groups.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aridlab/litreview"
	"github.com/aridlab/litreview/artifact"
	"github.com/aridlab/litreview/llm"
)

// Status is the terminal state of an extraction task.
type Status string

const (
	StatusSuccess           Status = "success"
	StatusMalformedResponse Status = "malformed_response" // no JSON span in the reply
	StatusInvalidStructure  Status = "invalid_structure"  // span found but unparsable
	StatusCapabilityError   Status = "capability_error"   // the external call itself failed
)

// Outcome is the terminal result of one extraction task.
type Outcome struct {
	Document artifact.Document
	Status   Status
	Bytes    int // serialized result size on success
	Err      error
	Elapsed  time.Duration
}

// Failed reports whether the outcome is any failure state.
func (o Outcome) Failed() bool {
	return o.Status != StatusSuccess
}

// Runner executes extraction tasks. Each task builds its own prompt and
// conversation from scratch and shares nothing with sibling tasks beyond
// the (stateless) provider and the artifact store, so tasks are safe to
// run concurrently.
type Runner struct {
	Artifacts      *artifact.Store
	Provider       llm.Provider
	SchemaPath     string
	SchemaVersion  string
	ExtractorAgent string
	Temperature    float64
	MaxTokens      int

	// Now is the clock for extraction dates. Defaults to time.Now.
	Now func() time.Time
}

// Process runs one extraction task to a terminal outcome. All side
// effects are confined to the artifact store; failures are returned as
// typed outcomes, never propagated.
func (r *Runner) Process(ctx context.Context, doc artifact.Document) Outcome {
	start := time.Now()
	outcome := func(status Status, bytes int, err error) Outcome {
		return Outcome{Document: doc, Status: status, Bytes: bytes, Err: err, Elapsed: time.Since(start)}
	}

	slog.Info("extract: processing document", "doc", doc.Name, "pages", doc.Pages)

	schema, err := LoadSchema(r.SchemaPath)
	if err != nil {
		return outcome(StatusCapabilityError, 0, err)
	}

	payload, err := r.Artifacts.ReadDocument(doc)
	if err != nil {
		return outcome(StatusCapabilityError, 0, fmt.Errorf("reading document: %w", err))
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	prompt := renderPrompt(schema, Metadata{
		ExtractionDate:    now().Format("2006-01-02"),
		ExtractorAgent:    r.ExtractorAgent,
		SourcePDFFilename: doc.Name,
		SchemaVersion:     r.SchemaVersion,
	})

	resp, err := r.Provider.ExtractFromDocument(ctx, llm.DocumentRequest{
		Prompt:      prompt,
		Document:    payload,
		Filename:    doc.Name,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		slog.Warn("extract: capability error", "doc", doc.Name, "error", err)
		return outcome(StatusCapabilityError, 0, err)
	}

	span, ok := jsonSpan(resp.Content)
	if !ok {
		slog.Warn("extract: no JSON in response", "doc", doc.Name)
		return outcome(StatusMalformedResponse, 0, litreview.ErrNoJSONFound)
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(span), &record); err != nil {
		// Keep the full raw response for manual triage.
		if dumpErr := r.Artifacts.WriteDebugDump(doc.Stem, resp.Content); dumpErr != nil {
			slog.Error("extract: writing debug dump failed", "doc", doc.Name, "error", dumpErr)
		}
		slog.Warn("extract: invalid JSON in response", "doc", doc.Name, "error", err)
		return outcome(StatusInvalidStructure, 0, fmt.Errorf("parsing extracted JSON: %w", err))
	}

	size, err := r.Artifacts.WriteResult(doc.Stem, record)
	if err != nil {
		return outcome(StatusCapabilityError, 0, fmt.Errorf("writing result: %w", err))
	}

	slog.Info("extract: document processed", "doc", doc.Name, "bytes", size,
		"tokens", resp.InputTokens+resp.OutputTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return outcome(StatusSuccess, size, nil)
}
