package logging

import (
	"context"

	"go.uber.org/zap"
)

type scopeKey struct{}

// requestScope is what RequestLogger attaches to a request context.
type requestScope struct {
	logger *zap.Logger
	// correlationID is the Cloud Trace resource, or the request id when the
	// caller sent no traceparent.
	correlationID string
}

func scopeFrom(ctx context.Context) requestScope {
	if ctx == nil {
		return requestScope{}
	}
	s, _ := ctx.Value(scopeKey{}).(requestScope)
	return s
}

func withScope(ctx context.Context, s requestScope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// LoggerFromContext returns the request logger, or the global logger outside
// a request.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if l := scopeFrom(ctx).logger; l != nil {
		return l
	}
	return Logger()
}

// CorrelationID returns the trace or request id of the current request.
func CorrelationID(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).correlationID
	return id, id != ""
}

func LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Info(msg, fields...)
}

func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Warn(msg, fields...)
}

// LogError logs at error level; a nil err adds no error field.
func LogError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	LoggerFromContext(ctx).Error(msg, fields...)
}

// WithLogger replaces the request logger, keeping the correlation id.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	s := scopeFrom(ctx)
	s.logger = logger
	return withScope(ctx, s)
}

// WithFields returns a context whose logger adds fields to every entry, e.g.
// the profile owner once the caller is authenticated.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return WithLogger(ctx, LoggerFromContext(ctx).With(fields...))
}
