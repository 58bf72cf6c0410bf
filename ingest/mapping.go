package ingest

import (
	"github.com/aridlab/litreview"
	"github.com/aridlab/litreview/store"
)

// naturalKey extracts the source PDF filename that joins a record to its
// document and to all derived rows.
func naturalKey(record map[string]interface{}) (string, error) {
	key := str(record, "", "extraction_metadata", "source_pdf_filename")
	if key == "" {
		return "", litreview.ErrMissingSourceFilename
	}
	return key, nil
}

// mapRecord flattens a tree-shaped extraction record into the normalized
// store shape. Missing paths take their declared defaults; malformed
// child entries are dropped individually, never the whole record.
func mapRecord(key string, record map[string]interface{}) store.Record {
	return store.Record{
		Review: store.Review{
			SourcePDFFilename: key,
			ExtractionDate:    str(record, "", "extraction_metadata", "extraction_date"),
			ExtractorAgent:    str(record, "", "extraction_metadata", "extractor_agent"),
			SchemaVersion:     str(record, "", "extraction_metadata", "schema_version"),

			FocusesOnAridRegion: boolVal(record, false, "screening", "focuses_on_arid_semiarid_sw_us_mexico"),
			IncludesPrimaryData: boolVal(record, false, "screening", "includes_primary_data_for_region"),

			Title:        str(record, "", "metadata", "title"),
			CitationAPA7: str(record, "", "metadata", "citation_apa7"),

			SpatialScale:     str(record, "", "metadata", "spatial_scale"),
			GeographicAreas:  strList(record, "metadata", "geographic_areas"),
			PublicationYear:  intVal(record, 0, "metadata", "publication_year"),
			DataDateEarliest: str(record, "", "metadata", "data_date_earliest"),
			DataDateLatest:   str(record, "", "metadata", "data_date_latest"),

			Setting:            str(record, "", "study_characteristics", "setting"),
			AridClassification: str(record, "", "study_characteristics", "arid_semiarid_classification"),
			StudyDesign:        str(record, "", "study_characteristics", "study_design"),

			RelevanceRating:        str(record, "", "overall_assessment", "relevance_rating"),
			RelevanceJustification: str(record, "", "overall_assessment", "relevance_justification"),
			PaperSummary:           str(record, "", "overall_assessment", "paper_summary"),
			ConclusionsSummary:     str(record, "", "overall_assessment", "conclusions_summary"),
			ResearchLimitations:    str(record, "", "overall_assessment", "research_limitations"),
			IdentifiedGaps:         str(record, "", "overall_assessment", "identified_gaps"),
		},
		HealthOutcomes: mapVariables(list(record, "data_tables", "health_outcome_variables")),
		ClimateWeather: mapVariables(list(record, "data_tables", "climate_weather_variables")),
		Cofactors:      mapVariables(list(record, "data_tables", "cofactor_variables")),
		Populations:    mapPopulations(list(record, "vulnerable_populations", "populations_identified")),
		Correlations:   mapCorrelations(list(record, "statistical_findings", "correlations_reported")),
	}
}

func mapVariables(items []interface{}) []store.Variable {
	var out []store.Variable
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, store.Variable{
			Variable:          itemStr(entry, "variable"),
			SpatialResolution: itemStr(entry, "spatial_resolution"),
			DataSource:        itemStr(entry, "data_source"),
		})
	}
	return out
}

func mapPopulations(items []interface{}) []store.Population {
	var out []store.Population
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, store.Population{
			PopulationGroup:      itemStr(entry, "population_group"),
			VulnerabilityReasons: itemStr(entry, "vulnerability_reasons"),
		})
	}
	return out
}

func mapCorrelations(items []interface{}) []store.Correlation {
	var out []store.Correlation
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, store.Correlation{
			Variable:           itemStr(entry, "variable"),
			EffectSize:         itemStr(entry, "effect_size_correlation"),
			Significance:       itemStr(entry, "significance"),
			ConfidenceInterval: itemStr(entry, "confidence_interval"),
		})
	}
	return out
}
