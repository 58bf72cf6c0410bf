// Package artifact is the file-based content layer shared by extraction and
// ingestion: source PDFs in one directory, review results and debug dumps in
// another. The two pipeline stages communicate only through this layer.
package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	resultSuffix = "_review.json"
	debugSuffix  = "_debug.txt"
)

// Document is one source PDF awaiting (or already past) extraction.
type Document struct {
	Path  string // absolute or store-relative path
	Name  string // filename with extension, the natural key of all derived rows
	Stem  string // filename without extension, names the result artifact
	Pages int    // best-effort page count, 0 when unreadable
}

// Result is one well-formed extraction result read back from disk.
type Result struct {
	Path   string
	Name   string
	Record map[string]interface{}
}

// Store manages the documents and reviews directories. Writes are
// create-or-overwrite with a single writer per document; no deletion is
// exposed.
type Store struct {
	pdfDir    string
	reviewDir string
}

// NewStore opens (or creates) an artifact store over the given directories.
func NewStore(pdfDir, reviewDir string) (*Store, error) {
	for _, dir := range []string{pdfDir, reviewDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating artifact directory: %w", err)
		}
	}
	return &Store{pdfDir: pdfDir, reviewDir: reviewDir}, nil
}

// ListDocuments returns all PDFs in the documents directory, sorted by name.
// Page counts are probed best-effort; a PDF the parser cannot open is still
// listed (the extraction capability may succeed where the local parser
// fails), just with Pages == 0.
func (s *Store) ListDocuments() ([]Document, error) {
	matches, err := filepath.Glob(filepath.Join(s.pdfDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	sort.Strings(matches)

	docs := make([]Document, 0, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		docs = append(docs, Document{
			Path:  path,
			Name:  name,
			Stem:  strings.TrimSuffix(name, filepath.Ext(name)),
			Pages: pageCount(path),
		})
	}
	return docs, nil
}

// Unprocessed returns documents that do not yet have a result artifact.
func (s *Store) Unprocessed() ([]Document, error) {
	docs, err := s.ListDocuments()
	if err != nil {
		return nil, err
	}
	pending := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if !s.HasResultFor(doc.Stem) {
			pending = append(pending, doc)
		}
	}
	return pending, nil
}

// HasResultFor reports whether a result artifact exists for the document
// stem, by naming convention.
func (s *Store) HasResultFor(stem string) bool {
	_, err := os.Stat(s.ResultPath(stem))
	return err == nil
}

// ResultPath returns the result artifact path for a document stem.
func (s *Store) ResultPath(stem string) string {
	return filepath.Join(s.reviewDir, stem+resultSuffix)
}

// DebugPath returns the debug dump path for a document stem.
func (s *Store) DebugPath(stem string) string {
	return filepath.Join(s.reviewDir, stem+debugSuffix)
}

// ListResults returns all well-formed result records, sorted by filename.
// Files that fail to parse are skipped with a warning; they are triage
// material, not results.
func (s *Store) ListResults() ([]Result, error) {
	matches, err := filepath.Glob(filepath.Join(s.reviewDir, "*"+resultSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	sort.Strings(matches)

	results := make([]Result, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("artifact: unreadable result file", "file", filepath.Base(path), "error", err)
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			slog.Warn("artifact: malformed result file", "file", filepath.Base(path), "error", err)
			continue
		}
		results = append(results, Result{
			Path:   path,
			Name:   filepath.Base(path),
			Record: record,
		})
	}
	return results, nil
}

// ReadDocument returns the raw bytes of a document.
func (s *Store) ReadDocument(doc Document) ([]byte, error) {
	return os.ReadFile(doc.Path)
}

// WriteResult persists a parsed record as the document's result artifact
// and returns the serialized byte size. The write is atomic at document
// granularity: content lands in a temp file first and is renamed into
// place, so readers never observe a half-written result.
func (s *Store) WriteResult(stem string, record map[string]interface{}) (int, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding result: %w", err)
	}
	if err := s.writeAtomic(s.ResultPath(stem), data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// WriteDebugDump persists the raw response text of a failed parse for
// manual triage.
func (s *Store) WriteDebugDump(stem, raw string) error {
	return s.writeAtomic(s.DebugPath(stem), []byte(raw))
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.reviewDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}

// pageCount probes a PDF's page count. Failures are expected for scanned
// or malformed files and reported as 0.
func pageCount(path string) int {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return reader.NumPage()
}
