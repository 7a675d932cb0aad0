package constants

// SessionStatus is the canonical pipeline state for one session.
type SessionStatus string

// Stable values (store these exact strings in the artifact store).
const (
	StatusPending        SessionStatus = "PENDING"         // created, nothing run yet
	StatusSchemaInferred SessionStatus = "SCHEMA_INFERRED" // stage 1 completed (unified schema)
	StatusExtracted      SessionStatus = "EXTRACTED"       // stage 2 completed (>=1 structured record)
	StatusTablesReady    SessionStatus = "TABLES_READY"    // stage 3 completed, terminal
	StatusFailed         SessionStatus = "FAILED"          // terminal failure
)

// Terminal reports whether s is a final state.
func (s SessionStatus) Terminal() bool {
	return s == StatusTablesReady || s == StatusFailed
}
