package store

// schemaSQL is the DDL for the normalized review store: one parent table
// keyed by source PDF filename, five child collection tables referencing
// it. geographic_areas is a JSON-encoded TEXT column since SQLite has no
// array type.
const schemaSQL = `
-- One row per reviewed paper, keyed by its source PDF filename
CREATE TABLE IF NOT EXISTS reviews (
    source_pdf_filename TEXT PRIMARY KEY,
    extraction_date TEXT,
    extractor_agent TEXT,
    schema_version TEXT,

    -- Screening
    focuses_on_arid_semiarid_sw_us_mexico BOOLEAN,
    includes_primary_data_for_region BOOLEAN,

    -- Citation metadata
    title TEXT,
    citation_apa7 TEXT,

    -- Spatial / temporal descriptors
    spatial_scale TEXT,
    geographic_areas TEXT,
    publication_year INTEGER,
    data_date_earliest TEXT,
    data_date_latest TEXT,

    -- Study characteristics
    setting TEXT,
    arid_semiarid_classification TEXT,
    study_design TEXT,

    -- Overall assessment
    relevance_rating TEXT,
    relevance_justification TEXT,
    paper_summary TEXT,
    conclusions_summary TEXT,
    research_limitations TEXT,
    identified_gaps TEXT
);

CREATE TABLE IF NOT EXISTS health_outcome_variables (
    source_pdf_filename TEXT NOT NULL REFERENCES reviews(source_pdf_filename),
    variable TEXT,
    spatial_resolution TEXT,
    data_source TEXT
);

CREATE TABLE IF NOT EXISTS climate_weather_variables (
    source_pdf_filename TEXT NOT NULL REFERENCES reviews(source_pdf_filename),
    variable TEXT,
    spatial_resolution TEXT,
    data_source TEXT
);

CREATE TABLE IF NOT EXISTS cofactor_variables (
    source_pdf_filename TEXT NOT NULL REFERENCES reviews(source_pdf_filename),
    variable TEXT,
    spatial_resolution TEXT,
    data_source TEXT
);

CREATE TABLE IF NOT EXISTS vulnerable_populations (
    source_pdf_filename TEXT NOT NULL REFERENCES reviews(source_pdf_filename),
    population_group TEXT,
    vulnerability_reasons TEXT
);

CREATE TABLE IF NOT EXISTS correlations (
    source_pdf_filename TEXT NOT NULL REFERENCES reviews(source_pdf_filename),
    variable TEXT,
    effect_size_correlation TEXT,
    significance TEXT,
    confidence_interval TEXT
);
`
