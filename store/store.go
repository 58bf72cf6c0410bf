// Package store persists normalized review records in a file-backed SQLite
// database: a reviews parent table plus five child collection tables. The
// store only grows; re-ingesting a known key is refused, never overwritten.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/aridlab/litreview"
)

// Review is one row of the reviews table.
type Review struct {
	SourcePDFFilename      string
	ExtractionDate         string
	ExtractorAgent         string
	SchemaVersion          string
	FocusesOnAridRegion    bool
	IncludesPrimaryData    bool
	Title                  string
	CitationAPA7           string
	SpatialScale           string
	GeographicAreas        []string
	PublicationYear        int
	DataDateEarliest       string
	DataDateLatest         string
	Setting                string
	AridClassification     string
	StudyDesign            string
	RelevanceRating        string
	RelevanceJustification string
	PaperSummary           string
	ConclusionsSummary     string
	ResearchLimitations    string
	IdentifiedGaps         string
}

// Variable is one row of the three variable child tables.
type Variable struct {
	Variable          string
	SpatialResolution string
	DataSource        string
}

// Population is one row of vulnerable_populations.
type Population struct {
	PopulationGroup      string
	VulnerabilityReasons string
}

// Correlation is one row of correlations.
type Correlation struct {
	Variable           string
	EffectSize         string
	Significance       string
	ConfidenceInterval string
}

// Record bundles a parent review row with all of its child rows, inserted
// as one transaction.
type Record struct {
	Review         Review
	HealthOutcomes []Variable
	ClimateWeather []Variable
	Cofactors      []Variable
	Populations    []Population
	Correlations   []Correlation
}

// Store wraps the SQLite database holding the review tables.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and
// initialises the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Ingestion is single-writer; a small pool covers concurrent readers.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for diagnostics and read-only
// collaborators.
func (s *Store) DB() *sql.DB {
	return s.db
}

// KnownFilenames returns the set of source PDF filenames already ingested.
func (s *Store) KnownFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_pdf_filename FROM reviews`)
	if err != nil {
		return nil, fmt.Errorf("querying known filenames: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		known[name] = struct{}{}
	}
	return known, rows.Err()
}

// HasReview reports whether a review exists for the given filename.
func (s *Store) HasReview(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE source_pdf_filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// InsertReview writes the parent row and all child rows in a single
// transaction, so a failure partway through leaves no partial record and
// the next ingestion run retries the file cleanly. A duplicate key returns
// ErrDuplicateReview.
func (s *Store) InsertReview(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	areas, err := json.Marshal(rec.Review.GeographicAreas)
	if err != nil {
		return fmt.Errorf("encoding geographic areas: %w", err)
	}

	r := rec.Review
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SourcePDFFilename, r.ExtractionDate, r.ExtractorAgent, r.SchemaVersion,
		r.FocusesOnAridRegion, r.IncludesPrimaryData,
		r.Title, r.CitationAPA7,
		r.SpatialScale, string(areas), r.PublicationYear, r.DataDateEarliest, r.DataDateLatest,
		r.Setting, r.AridClassification, r.StudyDesign,
		r.RelevanceRating, r.RelevanceJustification, r.PaperSummary,
		r.ConclusionsSummary, r.ResearchLimitations, r.IdentifiedGaps,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", litreview.ErrDuplicateReview, r.SourcePDFFilename)
		}
		return fmt.Errorf("inserting review: %w", err)
	}

	for table, vars := range map[string][]Variable{
		"health_outcome_variables":  rec.HealthOutcomes,
		"climate_weather_variables": rec.ClimateWeather,
		"cofactor_variables":        rec.Cofactors,
	} {
		for _, v := range vars {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` VALUES (?, ?, ?, ?)`,
				r.SourcePDFFilename, v.Variable, v.SpatialResolution, v.DataSource)
			if err != nil {
				return fmt.Errorf("inserting into %s: %w", table, err)
			}
		}
	}

	for _, p := range rec.Populations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO vulnerable_populations VALUES (?, ?, ?)`,
			r.SourcePDFFilename, p.PopulationGroup, p.VulnerabilityReasons)
		if err != nil {
			return fmt.Errorf("inserting vulnerable population: %w", err)
		}
	}

	for _, c := range rec.Correlations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO correlations VALUES (?, ?, ?, ?, ?)`,
			r.SourcePDFFilename, c.Variable, c.EffectSize, c.Significance, c.ConfidenceInterval)
		if err != nil {
			return fmt.Errorf("inserting correlation: %w", err)
		}
	}

	return tx.Commit()
}

// CountReviews returns the total number of parent rows.
func (s *Store) CountReviews(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&n)
	return n, err
}

// AllReviews returns every parent row ordered by filename, for export.
func (s *Store) AllReviews(ctx context.Context) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_pdf_filename, extraction_date, extractor_agent, schema_version,
		       focuses_on_arid_semiarid_sw_us_mexico, includes_primary_data_for_region,
		       title, citation_apa7,
		       spatial_scale, geographic_areas, publication_year, data_date_earliest, data_date_latest,
		       setting, arid_semiarid_classification, study_design,
		       relevance_rating, relevance_justification, paper_summary,
		       conclusions_summary, research_limitations, identified_gaps
		FROM reviews ORDER BY source_pdf_filename`)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		var areas string
		if err := rows.Scan(
			&r.SourcePDFFilename, &r.ExtractionDate, &r.ExtractorAgent, &r.SchemaVersion,
			&r.FocusesOnAridRegion, &r.IncludesPrimaryData,
			&r.Title, &r.CitationAPA7,
			&r.SpatialScale, &areas, &r.PublicationYear, &r.DataDateEarliest, &r.DataDateLatest,
			&r.Setting, &r.AridClassification, &r.StudyDesign,
			&r.RelevanceRating, &r.RelevanceJustification, &r.PaperSummary,
			&r.ConclusionsSummary, &r.ResearchLimitations, &r.IdentifiedGaps,
		); err != nil {
			return nil, err
		}
		if areas != "" {
			// Tolerate legacy rows with unparsable area lists.
			_ = json.Unmarshal([]byte(areas), &r.GeographicAreas)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ChildCount returns the number of rows in a child table for one parent
// key. Used by ingestion reporting and tests.
func (s *Store) ChildCount(ctx context.Context, table, filename string) (int, error) {
	switch table {
	case "health_outcome_variables", "climate_weather_variables",
		"cofactor_variables", "vulnerable_populations", "correlations":
	default:
		return 0, fmt.Errorf("unknown child table: %s", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE source_pdf_filename = ?`, filename).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
