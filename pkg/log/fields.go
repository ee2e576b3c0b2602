package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldRoute     = "route"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, also the gin context keys set by pkg/middleware
	FieldUserID  = "user_id"
	FieldRealmID = "realm_id"

	// Subject of an operation performed by the actor
	FieldTargetUserID = "target_user_id"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
