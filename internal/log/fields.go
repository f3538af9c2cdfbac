package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwnerID    = "owner_id"
	FieldTable      = "table"
	FieldRecordID   = "record_id"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentFeed    = "feed"
	ComponentAdvisor = "advisor"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpInsert   = "insert"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
