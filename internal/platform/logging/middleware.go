package logging

import (
	"cmp"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger scopes a logger to each request, tagged with Cloud Trace
// fields and the request id. It must run after the RequestID middleware.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceparent := r.Header.Get(traceparentHeader)
			projectID := resolveProjectID()
			requestID := chimiddleware.GetReqID(r.Context())

			ctx := withScope(r.Context(), requestScope{
				logger:        loggerWithTrace(Logger(), traceparent, projectID, requestID),
				correlationID: cmp.Or(traceResource(traceparent, projectID), requestID),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLevel picks the severity of an access entry from the response status.
func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// AccessLogger writes one entry per request once the response is done. The
// chi route pattern groups /v1/profiles/{id} requests together.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				fields = append(fields, zap.String("route", rctx.RoutePattern()))
			}
			LoggerFromContext(r.Context()).Log(accessLevel(status), "request completed", fields...)
		})
	}
}
