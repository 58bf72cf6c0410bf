package litreview

import "errors"

var (
	// ErrMissingAPIKey is returned when the extraction capability has no
	// credential configured. Fatal at startup, never surfaced mid-run.
	ErrMissingAPIKey = errors.New("litreview: missing API key for extraction provider")

	// ErrNoJSONFound is returned when a model response contains no
	// brace-delimited JSON candidate at all.
	ErrNoJSONFound = errors.New("litreview: no JSON object found in model response")

	// ErrMissingSourceFilename is returned when a review record lacks
	// extraction_metadata.source_pdf_filename, its natural key.
	ErrMissingSourceFilename = errors.New("litreview: record missing source_pdf_filename")

	// ErrDuplicateReview is returned when inserting a review whose
	// source_pdf_filename already exists in the store.
	ErrDuplicateReview = errors.New("litreview: review already exists for this document")

	// ErrSchemaNotFound is returned when the extraction schema file
	// cannot be read.
	ErrSchemaNotFound = errors.New("litreview: extraction schema not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("litreview: invalid configuration")
)
