// Package export republishes the reviews table as derived snapshot files:
// a Parquet file for analytical interoperability and an optional XLSX
// companion for spreadsheet users. Snapshots are overwritten wholesale;
// the relational store stays authoritative.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/aridlab/litreview/store"
)

// reviewRow is the flat Parquet schema of the reviews table.
type reviewRow struct {
	SourcePDFFilename      string   `parquet:"source_pdf_filename"`
	ExtractionDate         string   `parquet:"extraction_date"`
	ExtractorAgent         string   `parquet:"extractor_agent"`
	SchemaVersion          string   `parquet:"schema_version"`
	FocusesOnAridRegion    bool     `parquet:"focuses_on_arid_semiarid_sw_us_mexico"`
	IncludesPrimaryData    bool     `parquet:"includes_primary_data_for_region"`
	Title                  string   `parquet:"title"`
	CitationAPA7           string   `parquet:"citation_apa7"`
	SpatialScale           string   `parquet:"spatial_scale"`
	GeographicAreas        []string `parquet:"geographic_areas,list"`
	PublicationYear        int32    `parquet:"publication_year"`
	DataDateEarliest       string   `parquet:"data_date_earliest"`
	DataDateLatest         string   `parquet:"data_date_latest"`
	Setting                string   `parquet:"setting"`
	AridClassification     string   `parquet:"arid_semiarid_classification"`
	StudyDesign            string   `parquet:"study_design"`
	RelevanceRating        string   `parquet:"relevance_rating"`
	RelevanceJustification string   `parquet:"relevance_justification"`
	PaperSummary           string   `parquet:"paper_summary"`
	ConclusionsSummary     string   `parquet:"conclusions_summary"`
	ResearchLimitations    string   `parquet:"research_limitations"`
	IdentifiedGaps         string   `parquet:"identified_gaps"`
}

func toRow(r store.Review) reviewRow {
	return reviewRow{
		SourcePDFFilename:      r.SourcePDFFilename,
		ExtractionDate:         r.ExtractionDate,
		ExtractorAgent:         r.ExtractorAgent,
		SchemaVersion:          r.SchemaVersion,
		FocusesOnAridRegion:    r.FocusesOnAridRegion,
		IncludesPrimaryData:    r.IncludesPrimaryData,
		Title:                  r.Title,
		CitationAPA7:           r.CitationAPA7,
		SpatialScale:           r.SpatialScale,
		GeographicAreas:        r.GeographicAreas,
		PublicationYear:        int32(r.PublicationYear),
		DataDateEarliest:       r.DataDateEarliest,
		DataDateLatest:         r.DataDateLatest,
		Setting:                r.Setting,
		AridClassification:     r.AridClassification,
		StudyDesign:            r.StudyDesign,
		RelevanceRating:        r.RelevanceRating,
		RelevanceJustification: r.RelevanceJustification,
		PaperSummary:           r.PaperSummary,
		ConclusionsSummary:     r.ConclusionsSummary,
		ResearchLimitations:    r.ResearchLimitations,
		IdentifiedGaps:         r.IdentifiedGaps,
	}
}

// Exporter snapshots the reviews table after an ingestion run.
type Exporter struct {
	Store       *store.Store
	ParquetPath string
	XLSXPath    string // empty disables the spreadsheet snapshot
}

// Run writes a fresh snapshot of the full reviews table. Callers treat a
// returned error as a warning: the relational store is already durable.
func (e *Exporter) Run(ctx context.Context) error {
	reviews, err := e.Store.AllReviews(ctx)
	if err != nil {
		return fmt.Errorf("reading reviews for export: %w", err)
	}

	if err := WriteParquet(e.ParquetPath, reviews); err != nil {
		return err
	}
	slog.Info("export: parquet snapshot written", "path", e.ParquetPath, "rows", len(reviews))

	if e.XLSXPath != "" {
		if err := WriteXLSX(e.XLSXPath, reviews); err != nil {
			return err
		}
		slog.Info("export: xlsx snapshot written", "path", e.XLSXPath, "rows", len(reviews))
	}
	return nil
}

// WriteParquet overwrites path with a Parquet snapshot of the rows.
func WriteParquet(path string, reviews []store.Review) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	rows := make([]reviewRow, len(reviews))
	for i, r := range reviews {
		rows[i] = toRow(r)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing parquet snapshot: %w", err)
	}
	return nil
}

// xlsxHeader is the column order of the spreadsheet snapshot.
var xlsxHeader = []interface{}{
	"source_pdf_filename", "extraction_date", "extractor_agent", "schema_version",
	"focuses_on_arid_semiarid_sw_us_mexico", "includes_primary_data_for_region",
	"title", "citation_apa7",
	"spatial_scale", "geographic_areas", "publication_year", "data_date_earliest", "data_date_latest",
	"setting", "arid_semiarid_classification", "study_design",
	"relevance_rating", "relevance_justification", "paper_summary",
	"conclusions_summary", "research_limitations", "identified_gaps",
}

// WriteXLSX overwrites path with a single-sheet spreadsheet snapshot.
func WriteXLSX(path string, reviews []store.Review) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "reviews"
	f.SetSheetName("Sheet1", sheet)
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, r := range reviews {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.SourcePDFFilename, r.ExtractionDate, r.ExtractorAgent, r.SchemaVersion,
			r.FocusesOnAridRegion, r.IncludesPrimaryData,
			r.Title, r.CitationAPA7,
			r.SpatialScale, joinAreas(r.GeographicAreas), r.PublicationYear, r.DataDateEarliest, r.DataDateLatest,
			r.Setting, r.AridClassification, r.StudyDesign,
			r.RelevanceRating, r.RelevanceJustification, r.PaperSummary,
			r.ConclusionsSummary, r.ResearchLimitations, r.IdentifiedGaps,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving xlsx snapshot: %w", err)
	}
	return nil
}

func joinAreas(areas []string) string {
	out := ""
	for i, a := range areas {
		if i > 0 {
			out += "; "
		}
		out += a
	}
	return out
}
