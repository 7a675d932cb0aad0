package constants

// ExtractConcurrencyDefault bounds parallel per-document extraction within a session.
const ExtractConcurrencyDefault = 4

// MaxVisionMBDefault caps the size of an image attached to a vision prompt.
const MaxVisionMBDefault = 16

// NotFoundMarker is the explicit value recorded when a schema field has no
// supporting evidence in a document. Fields are never omitted from a record.
const NotFoundMarker = "NOT_FOUND"

// CatchAllTableName receives fields that could not be cleanly planned,
// preserving the no-data-loss guarantee of table synthesis.
const CatchAllTableName = "unplanned_fields"
