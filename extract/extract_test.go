package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aridlab/litreview"
	"github.com/aridlab/litreview/artifact"
	"github.com/aridlab/litreview/llm"
)

// fakeProvider scripts a response (or error) per document filename.
type fakeProvider struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
	inFlight  int
	maxSeen   int
}

func (f *fakeProvider) ExtractFromDocument(ctx context.Context, req llm.DocumentRequest) (*llm.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Filename)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	// Give sibling tasks a chance to overlap so maxSeen is meaningful.
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err, ok := f.errs[req.Filename]; ok {
		return nil, err
	}
	if resp, ok := f.responses[req.Filename]; ok {
		return &llm.Response{Content: resp}, nil
	}
	return &llm.Response{Content: validResponse(req.Filename)}, nil
}

func validResponse(filename string) string {
	return fmt.Sprintf(
		`Here is the extraction: {"extraction_metadata": {"source_pdf_filename": %q}, "metadata": {"title": "Study"}} Done.`,
		filename)
}

func newTestRunner(t *testing.T, provider llm.Provider) (*Runner, *artifact.Store, string) {
	t.Helper()
	base := t.TempDir()
	pdfDir := filepath.Join(base, "pdfs")
	store, err := artifact.NewStore(pdfDir, filepath.Join(base, "reviews"))
	if err != nil {
		t.Fatalf("creating artifact store: %v", err)
	}

	schemaPath := filepath.Join(base, "schema.json")
	schema := `{"questions": {"metadata": {"title": "string"}}}`
	if err := os.WriteFile(schemaPath, []byte(schema), 0644); err != nil {
		t.Fatalf("writing schema: %v", err)
	}

	return &Runner{
		Artifacts:      store,
		Provider:       provider,
		SchemaPath:     schemaPath,
		SchemaVersion:  "1.1",
		ExtractorAgent: "test-agent",
		MaxTokens:      1000,
	}, store, pdfDir
}

func addDocs(t *testing.T, pdfDir string, names ...string) []artifact.Document {
	t.Helper()
	docs := make([]artifact.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(pdfDir, name)
		if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0644); err != nil {
			t.Fatalf("writing pdf: %v", err)
		}
		docs = append(docs, artifact.Document{
			Path: path,
			Name: name,
			Stem: strings.TrimSuffix(name, ".pdf"),
		})
	}
	return docs
}

// ---------------------------------------------------------------------------
// JSON span heuristic
// ---------------------------------------------------------------------------

func TestJSONSpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"prose wrapped", `Sure thing! {"a": 1} Hope that helps.`, `{"a": 1}`, true},
		{"nested braces", `x {"a": {"b": 2}} y`, `{"a": {"b": 2}}`, true},
		{"unterminated", `Sure! {not: valid json`, `{not: valid json`, true},
		{"no braces", `I could not read the document.`, "", false},
		{"only close brace", `weird } text`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := jsonSpan(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("jsonSpan(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRenderPromptEmbedsSchemaAndMetadata(t *testing.T) {
	prompt := renderPrompt([]byte(`{"q1": "title"}`), Metadata{
		ExtractionDate:    "2026-08-23",
		ExtractorAgent:    "test-agent",
		SourcePDFFilename: "study.pdf",
		SchemaVersion:     "1.1",
	})
	for _, want := range []string{`{"q1": "title"}`, "2026-08-23", "test-agent", "study.pdf", `"1.1"`, "NEVER fabricate"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// ---------------------------------------------------------------------------
// Task outcomes
// ---------------------------------------------------------------------------

func TestProcessSuccess(t *testing.T) {
	provider := &fakeProvider{}
	runner, store, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "study.pdf")

	out := runner.Process(context.Background(), docs[0])
	if out.Status != StatusSuccess {
		t.Fatalf("status: got %v (%v)", out.Status, out.Err)
	}
	if out.Bytes == 0 {
		t.Error("expected non-zero byte size")
	}
	if !store.HasResultFor("study") {
		t.Error("result artifact not written")
	}

	results, err := store.ListResults()
	if err != nil {
		t.Fatalf("listing results: %v", err)
	}
	meta := results[0].Record["extraction_metadata"].(map[string]interface{})
	if meta["source_pdf_filename"] != "study.pdf" {
		t.Errorf("metadata round-trip: got %v", meta)
	}
}

func TestProcessMalformedResponse(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{
		"study.pdf": "I was unable to find any relevant data.",
	}}
	runner, store, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "study.pdf")

	out := runner.Process(context.Background(), docs[0])
	if out.Status != StatusMalformedResponse {
		t.Fatalf("status: got %v", out.Status)
	}
	if !errors.Is(out.Err, litreview.ErrNoJSONFound) {
		t.Errorf("expected ErrNoJSONFound, got %v", out.Err)
	}
	if store.HasResultFor("study") {
		t.Error("no result artifact should exist")
	}
	if _, err := os.Stat(store.DebugPath("study")); err == nil {
		t.Error("malformed response must not write a debug dump")
	}
}

func TestProcessInvalidStructureWritesDebugDump(t *testing.T) {
	raw := "Sure! {not: valid json"
	provider := &fakeProvider{responses: map[string]string{"study.pdf": raw}}
	runner, store, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "study.pdf")

	out := runner.Process(context.Background(), docs[0])
	if out.Status != StatusInvalidStructure {
		t.Fatalf("status: got %v (%v)", out.Status, out.Err)
	}
	if store.HasResultFor("study") {
		t.Error("no result artifact should exist")
	}
	dump, err := os.ReadFile(store.DebugPath("study"))
	if err != nil {
		t.Fatalf("debug dump not written: %v", err)
	}
	if string(dump) != raw {
		t.Errorf("dump should hold the full raw response, got %q", dump)
	}
}

func TestProcessCapabilityError(t *testing.T) {
	provider := &fakeProvider{errs: map[string]error{
		"study.pdf": errors.New("rate limited"),
	}}
	runner, store, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "study.pdf")

	out := runner.Process(context.Background(), docs[0])
	if out.Status != StatusCapabilityError {
		t.Fatalf("status: got %v", out.Status)
	}
	if store.HasResultFor("study") {
		t.Error("no result artifact should exist")
	}
}

func TestProcessStampsMetadataIntoPrompt(t *testing.T) {
	var gotPrompt string
	provider := providerFunc(func(ctx context.Context, req llm.DocumentRequest) (*llm.Response, error) {
		gotPrompt = req.Prompt
		return &llm.Response{Content: validResponse(req.Filename)}, nil
	})
	runner, _, pdfDir := newTestRunner(t, provider)
	runner.Now = func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) }
	docs := addDocs(t, pdfDir, "study.pdf")

	if out := runner.Process(context.Background(), docs[0]); out.Status != StatusSuccess {
		t.Fatalf("status: got %v (%v)", out.Status, out.Err)
	}
	for _, want := range []string{"2026-08-23", "study.pdf", "test-agent"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type providerFunc func(ctx context.Context, req llm.DocumentRequest) (*llm.Response, error)

func (f providerFunc) ExtractFromDocument(ctx context.Context, req llm.DocumentRequest) (*llm.Response, error) {
	return f(ctx, req)
}

// ---------------------------------------------------------------------------
// Batch orchestration
// ---------------------------------------------------------------------------

func TestBatchArithmetic(t *testing.T) {
	provider := &fakeProvider{}
	runner, _, pdfDir := newTestRunner(t, provider)

	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("doc%02d.pdf", i)
	}
	docs := addDocs(t, pdfDir, names...)

	orch := &Orchestrator{Runner: runner, BatchSize: 4}
	report := orch.Run(context.Background(), docs)

	if report.Groups != 3 { // ceil(10/4)
		t.Errorf("groups: got %d, want 3", report.Groups)
	}
	if report.Total != 10 || len(report.Outcomes) != 10 {
		t.Errorf("total: got %d outcomes of %d", len(report.Outcomes), report.Total)
	}
	if report.Succeeded != 10 || report.Failed != 0 {
		t.Errorf("tally: %d succeeded, %d failed", report.Succeeded, report.Failed)
	}
	// Outcomes aggregate in document order regardless of completion order.
	for i, out := range report.Outcomes {
		if out.Document.Name != names[i] {
			t.Errorf("outcome %d: got %q, want %q", i, out.Document.Name, names[i])
		}
	}
	if provider.maxSeen > 4 {
		t.Errorf("concurrency exceeded batch size: %d in flight", provider.maxSeen)
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string]string{
			"doc01.pdf": "no braces in this reply",
		},
		errs: map[string]error{
			"doc04.pdf": errors.New("connection reset"),
		},
	}
	runner, store, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "doc00.pdf", "doc01.pdf", "doc02.pdf", "doc03.pdf", "doc04.pdf", "doc05.pdf")

	orch := &Orchestrator{Runner: runner, BatchSize: 2}
	report := orch.Run(context.Background(), docs)

	if report.Total != 6 || len(report.Outcomes) != 6 {
		t.Fatalf("report should cover all input: %+v", report)
	}
	if report.Succeeded != 4 || report.Failed != 2 {
		t.Errorf("tally: %d succeeded, %d failed", report.Succeeded, report.Failed)
	}

	failures := report.Failures()
	if len(failures) != 2 {
		t.Fatalf("failures: got %d", len(failures))
	}
	if failures[0].Document.Name != "doc01.pdf" || failures[0].Status != StatusMalformedResponse {
		t.Errorf("first failure: %v %v", failures[0].Document.Name, failures[0].Status)
	}
	if failures[1].Document.Name != "doc04.pdf" || failures[1].Status != StatusCapabilityError {
		t.Errorf("second failure: %v %v", failures[1].Document.Name, failures[1].Status)
	}

	// Siblings of failed tasks still produced artifacts.
	for _, stem := range []string{"doc00", "doc02", "doc03", "doc05"} {
		if !store.HasResultFor(stem) {
			t.Errorf("missing result for %s", stem)
		}
	}
}

func TestBatchAbandonsOnCancel(t *testing.T) {
	provider := &fakeProvider{}
	runner, _, pdfDir := newTestRunner(t, provider)
	docs := addDocs(t, pdfDir, "a.pdf", "b.pdf", "c.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := &Orchestrator{Runner: runner, BatchSize: 1}
	report := orch.Run(ctx, docs)
	if len(report.Outcomes) != 0 {
		t.Errorf("cancelled run should process no groups, got %d outcomes", len(report.Outcomes))
	}
}

func TestSchemaLoadFailureIsTaskScoped(t *testing.T) {
	provider := &fakeProvider{}
	runner, _, pdfDir := newTestRunner(t, provider)
	runner.SchemaPath = filepath.Join(t.TempDir(), "missing.json")
	docs := addDocs(t, pdfDir, "study.pdf")

	out := runner.Process(context.Background(), docs[0])
	if out.Status != StatusCapabilityError {
		t.Fatalf("status: got %v", out.Status)
	}
	if !errors.Is(out.Err, litreview.ErrSchemaNotFound) {
		t.Errorf("expected ErrSchemaNotFound, got %v", out.Err)
	}
}

func TestLoadSchemaRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("writing schema: %v", err)
	}
	if _, err := LoadSchema(path); err == nil {
		t.Fatal("expected error for invalid schema JSON")
	}
}

func TestLoadSchemaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	content := `{"screening": {"q1": "bool"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing schema: %v", err)
	}
	data, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	var probe map[string]interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		t.Fatalf("schema bytes not JSON: %v", err)
	}
}
