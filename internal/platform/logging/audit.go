package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEvent describes one mutation of a stored resource.
type AuditEvent struct {
	Action       string // create, update, delete
	OwnerID      string
	ResourceType string
	ResourceID   string
	Result       string // AuditSuccess or AuditFailure
	// Category is an audit-safe error class, set on failures only.
	Category string
}

// LogAuditEvent writes ev with the request-scoped logger.
func LogAuditEvent(ctx context.Context, ev AuditEvent) {
	fields := []zap.Field{
		zap.String("audit.action", ev.Action),
		zap.String("audit.owner_id", ev.OwnerID),
		zap.String("audit.resource_type", ev.ResourceType),
		zap.String("audit.resource_id", ev.ResourceID),
		zap.String("audit.result", ev.Result),
	}
	if ev.Category != "" {
		fields = append(fields, zap.String("audit.error", ev.Category))
	}
	if id, ok := CorrelationID(ctx); ok {
		fields = append(fields, zap.String("audit.correlation_id", id))
	}

	LoggerFromContext(ctx).Info("Audit event", fields...)
}
