//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aridlab/litreview"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(filename string) Record {
	return Record{
		Review: Review{
			SourcePDFFilename:   filename,
			ExtractionDate:      "2026-08-23",
			ExtractorAgent:      "litreview-pdf-analyzer",
			SchemaVersion:       "1.1",
			FocusesOnAridRegion: true,
			IncludesPrimaryData: true,
			Title:               "Heat and morbidity in arid regions",
			CitationAPA7:        "Doe, J. (2020). Heat and morbidity.",
			SpatialScale:        "county",
			GeographicAreas:     []string{"Arizona", "Sonora"},
			PublicationYear:     2020,
			Setting:             "urban",
			StudyDesign:         "cohort",
			RelevanceRating:     "high",
			PaperSummary:        "Summary text.",
		},
		HealthOutcomes: []Variable{
			{Variable: "heat stroke admissions", SpatialResolution: "county", DataSource: "hospital records"},
		},
		ClimateWeather: []Variable{
			{Variable: "max daily temperature", SpatialResolution: "station", DataSource: "NOAA"},
		},
		Cofactors: []Variable{
			{Variable: "air conditioning prevalence", SpatialResolution: "county", DataSource: "census"},
		},
		Populations: []Population{
			{PopulationGroup: "outdoor workers", VulnerabilityReasons: "prolonged exposure"},
		},
		Correlations: []Correlation{
			{Variable: "temperature vs admissions", EffectSize: "r=0.6", Significance: "p<0.01", ConfidenceInterval: "0.4-0.8"},
		},
	}
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestOpenCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening store in nested dir: %v", err)
	}
	s.Close()
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()
	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

// ---------------------------------------------------------------------------
// Inserts
// ---------------------------------------------------------------------------

func TestInsertAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertReview(ctx, sampleRecord("study.pdf")); err != nil {
		t.Fatalf("inserting review: %v", err)
	}

	n, err := s.CountReviews(ctx)
	if err != nil {
		t.Fatalf("counting reviews: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 review, got %d", n)
	}

	reviews, err := s.AllReviews(ctx)
	if err != nil {
		t.Fatalf("reading reviews: %v", err)
	}
	got := reviews[0]
	if got.SourcePDFFilename != "study.pdf" {
		t.Errorf("filename: got %q", got.SourcePDFFilename)
	}
	if got.Title != "Heat and morbidity in arid regions" {
		t.Errorf("title: got %q", got.Title)
	}
	if !got.FocusesOnAridRegion {
		t.Error("screening flag lost")
	}
	if got.PublicationYear != 2020 {
		t.Errorf("publication year: got %d", got.PublicationYear)
	}
	if len(got.GeographicAreas) != 2 || got.GeographicAreas[0] != "Arizona" {
		t.Errorf("geographic areas: got %v", got.GeographicAreas)
	}

	for _, table := range []string{
		"health_outcome_variables", "climate_weather_variables",
		"cofactor_variables", "vulnerable_populations", "correlations",
	} {
		n, err := s.ChildCount(ctx, table, "study.pdf")
		if err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("%s: expected 1 row, got %d", table, n)
		}
	}
}

func TestInsertDuplicateKeyRefused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertReview(ctx, sampleRecord("study.pdf")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := s.InsertReview(ctx, sampleRecord("study.pdf"))
	if !errors.Is(err, litreview.ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	// The failed insert must not have added child rows either.
	n, err := s.ChildCount(ctx, "correlations", "study.pdf")
	if err != nil {
		t.Fatalf("counting correlations: %v", err)
	}
	if n != 1 {
		t.Errorf("duplicate insert leaked child rows: got %d", n)
	}
}

func TestInsertIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A child row violating the FK (empty parent key after a forced
	// mismatch) cannot happen through Record, so simulate a mid-record
	// failure with a cancelled context instead.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	rec := sampleRecord("study.pdf")
	if err := s.InsertReview(cancelled, rec); err == nil {
		t.Fatal("expected insert to fail under cancelled context")
	}

	// Nothing may remain: neither parent nor children.
	n, err := s.CountReviews(ctx)
	if err != nil {
		t.Fatalf("counting reviews: %v", err)
	}
	if n != 0 {
		t.Fatalf("partial insert left %d parent rows", n)
	}
	c, err := s.ChildCount(ctx, "health_outcome_variables", "study.pdf")
	if err != nil {
		t.Fatalf("counting children: %v", err)
	}
	if c != 0 {
		t.Fatalf("partial insert left %d child rows", c)
	}
}

func TestKnownFilenames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	known, err := s.KnownFilenames(ctx)
	if err != nil {
		t.Fatalf("known filenames: %v", err)
	}
	if len(known) != 0 {
		t.Fatalf("expected empty set, got %v", known)
	}

	if err := s.InsertReview(ctx, sampleRecord("a.pdf")); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if err := s.InsertReview(ctx, sampleRecord("b.pdf")); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	known, err = s.KnownFilenames(ctx)
	if err != nil {
		t.Fatalf("known filenames: %v", err)
	}
	if len(known) != 2 {
		t.Fatalf("expected 2 known filenames, got %d", len(known))
	}
	if _, ok := known["a.pdf"]; !ok {
		t.Error("a.pdf missing from known set")
	}

	has, err := s.HasReview(ctx, "b.pdf")
	if err != nil || !has {
		t.Errorf("HasReview(b.pdf): got %v, %v", has, err)
	}
	has, err = s.HasReview(ctx, "c.pdf")
	if err != nil || has {
		t.Errorf("HasReview(c.pdf): got %v, %v", has, err)
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Direct child insert without a parent must be rejected by the FK.
	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO correlations VALUES ('orphan.pdf', 'x', 'r=1', 'p<0.05', '')`)
	if err == nil {
		t.Fatal("expected foreign key violation for orphan child row")
	}
}

func TestEmptyChildCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := Record{Review: Review{SourcePDFFilename: "bare.pdf"}}
	if err := s.InsertReview(ctx, rec); err != nil {
		t.Fatalf("inserting bare record: %v", err)
	}
	n, err := s.ChildCount(ctx, "vulnerable_populations", "bare.pdf")
	if err != nil {
		t.Fatalf("counting children: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no child rows, got %d", n)
	}
}
