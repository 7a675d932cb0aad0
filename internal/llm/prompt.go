package llm

import (
	"fmt"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/document"
)

// BuildSchemaSystemPrompt instructs the model to infer one unified schema
// across the whole batch, with synonyms per field to aid the mapping stage.
func BuildSchemaSystemPrompt() string {
	return "You are a senior information architect. Given multiple heterogeneous documents " +
		"(any type, any language), infer the most appropriate, general field schema that can " +
		"represent all of them jointly, without forcing any document into an ill-fitting shape. " +
		"Use lower_snake_case names. Group related fields into named sections " +
		"(e.g. core, entities, dates, financial, items, metadata). " +
		"Allowed field types: string, number, date, enum, list, group. " +
		"List fields describe repeated row-like content (e.g. line items) and must declare the " +
		"fields of one element; group fields nest related scalars. " +
		"For every field include synonyms actually observed across the documents " +
		"(labels, headers, multilingual variants) to aid later matching. " +
		"Return ONLY a JSON object: {\"title\", \"version\", \"description\", \"sections\": " +
		"[{\"name\", \"fields\": [{\"name\", \"type\", \"description\", \"required\", " +
		"\"synonyms\", \"enum\", \"format\", \"fields\"}]}]}."
}

// BuildMappingSystemPrompt instructs the model to map one document strictly
// onto the provided schema with per-field evidence and confidence.
func BuildMappingSystemPrompt() string {
	return "You are a robust multimodal (vision + text) document-to-schema mapping system. " +
		"Analyze layout and visual structure first (titles, headers, table columns, label " +
		"proximity, group boxes), then map fields strictly to the provided schema. " +
		"Search labels using each field's synonyms and semantic similarity, including " +
		"multilingual variants. Do NOT invent values: if a value is not found, set \"value\" " +
		"to \"" + constants.NotFoundMarker + "\" with confidence 0 and a short reason. " +
		"Every declared field must appear in the output. For each field emit an object " +
		"{\"value\": <literal extracted text>, \"normalized_value\": <typed value or null>, " +
		"\"reason\": <short justification tied to the evidence location>, " +
		"\"confidence\": <your own certainty, 0..1>}. " +
		"Normalize when possible: dates to ISO-8601, numbers without locale separators, " +
		"emails lowercased, trimmed strings. List fields produce an ordered array of " +
		"element objects in document order. Return ONLY JSON mirroring the schema's " +
		"sections and fields."
}

// BuildMappingUserPrompt carries the schema contract for one extraction call.
func BuildMappingUserPrompt(schemaJSON string) string {
	return "Schema (JSON):\n" + schemaJSON + "\n\n" +
		"Map the following document to the schema. Keep the schema's section and field names exactly."
}

// BuildPlanningSystemPrompt instructs the model to propose a relational
// decomposition of the extracted records.
func BuildPlanningSystemPrompt() string {
	return "You are a data modeling assistant. Given a field schema and the structured records " +
		"extracted from a batch of documents, plan a relational decomposition into flat tables. " +
		"Scalar fields shared across documents go into a primary table with one row per document. " +
		"Repeated list fields become their own child tables with a link_column back to the parent " +
		"document row. Fields that rarely co-occur with the rest of the data may be grouped into " +
		"dedicated tables; prefer decompositions that minimize null-heavy sparse tables. " +
		"Every field used by at least one record must be mapped to a column in some table, or " +
		"listed under \"dropped\" with a reason — never silently lost. " +
		"Return ONLY JSON: {\"tables\": [{\"name\", \"description\", \"source\", \"link_column\", " +
		"\"columns\": [{\"name\", \"field_path\"}]}], \"dropped\": [{\"path\", \"reason\"}]}. " +
		"\"source\" is empty for per-document tables, or the dotted path of a list field for " +
		"per-element tables (then column field_paths are relative to one element)."
}

// BuildPlanningUserPrompt packages the schema and records inventory.
func BuildPlanningUserPrompt(schemaJSON, inventoryJSON string) string {
	return "Schema (JSON):\n" + schemaJSON + "\n\nStructured records inventory (JSON):\n" + inventoryJSON
}

// TextPart and ImagePart build OpenAI-style multimodal content parts.
func TextPart(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func ImagePart(dataURL string) map[string]any {
	return map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL}}
}

// BuildDocumentParts renders one document as multimodal content parts.
// Images become base64 data URLs for vision analysis; PDFs are referenced by
// name and page count; text content is included directly.
func BuildDocumentParts(doc document.Document) []map[string]any {
	parts := []map[string]any{TextPart(fmt.Sprintf("[DOCUMENT] %s", doc.Name))}
	switch doc.Kind {
	case constants.IMAGE:
		if doc.OversizedForVision() {
			parts = append(parts, TextPart(fmt.Sprintf("[IMAGE_TOO_LARGE] %s", doc.Name)))
			return parts
		}
		parts = append(parts, ImagePart(doc.DataURL()))
	case constants.PDF:
		parts = append(parts, TextPart(fmt.Sprintf("[PDF_FILE] %s (%d pages)", doc.Name, doc.Pages)))
	default:
		parts = append(parts, TextPart(doc.Text()))
	}
	return parts
}

// BuildBatchParts renders the full document set for joint schema inference.
func BuildBatchParts(docs []document.Document) []map[string]any {
	parts := []map[string]any{TextPart(
		"Infer one unified schema that can represent ALL of the following documents jointly.")}
	for _, d := range docs {
		parts = append(parts, BuildDocumentParts(d)...)
	}
	return parts
}
