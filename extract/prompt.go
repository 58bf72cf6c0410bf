package extract

import (
	"fmt"
	"strings"
)

// Metadata is the fixed block stamped into every extraction prompt. The
// model is instructed to copy it verbatim into the record; the source PDF
// filename inside it is the natural key for all downstream rows.
type Metadata struct {
	ExtractionDate    string
	ExtractorAgent    string
	SourcePDFFilename string
	SchemaVersion     string
}

const promptTemplate = `You are a literature review extraction agent for climate-health research. Analyze the attached PDF and extract structured data following the schema below.

**Extraction Schema:**
%s

**Instructions:**
1. Read the PDF document carefully
2. Answer every question in the schema, following its structure exactly
3. Use "N/A" when information is not present - NEVER fabricate data
4. Respect all enum constraints and data types
5. Include these extraction_metadata fields verbatim:
   - extraction_date: "%s"
   - extractor_agent: "%s"
   - source_pdf_filename: "%s"
   - schema_version: "%s"

**Output:**
Provide ONLY the complete JSON object following the schema. No markdown, no explanation, just valid JSON.
`

// renderPrompt embeds the full schema and the fixed metadata block into
// the extraction instructions.
func renderPrompt(schema []byte, meta Metadata) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(string(schema)),
		meta.ExtractionDate,
		meta.ExtractorAgent,
		meta.SourcePDFFilename,
		meta.SchemaVersion,
	)
}

// jsonSpan locates the candidate JSON payload in a model response: the
// span from the first '{' to the last '}'. Best-effort by design; the
// capability may wrap its output in prose despite instructions. A '{'
// with no closing brace still yields a candidate (the rest of the text),
// so truncated output surfaces as a parse failure with a debug dump
// rather than a bare "no JSON" error. Returns false only when the
// response contains no '{' at all.
func jsonSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return text[start:], true
	}
	return text[start : end+1], true
}
