package logging

import (
	"cmp"
	"fmt"
	"os"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// W3C Trace Context format: {version}-{trace-id}-{parent-id}-{trace-flags}
// Example: 00-ab42124a3c573678d4d8b21ba52df3bf-d21f7bc17caa5aba-01
var traceHeaderRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)

var (
	projectIDOnce   sync.Once
	projectMu       sync.Mutex
	cachedProjectID string
)

// traceContext is the parsed form of a W3C traceparent header.
type traceContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

func parseTraceparent(header string) (traceContext, bool) {
	matches := traceHeaderRe.FindStringSubmatch(header)
	if len(matches) != 5 {
		return traceContext{}, false
	}
	return traceContext{TraceID: matches[2], SpanID: matches[3], Sampled: matches[4] == "01"}, true
}

func loggerWithTrace(base *zap.Logger, header, projectID, requestID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := traceFields(header, projectID)
	if requestID != "" {
		fields = append(fields, zap.String("requestId", requestID))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func traceFields(header, projectID string) []zap.Field {
	resource := traceResource(header, projectID)
	if resource == "" {
		return nil
	}
	tc, _ := parseTraceparent(header)
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", resource),
		zap.String("logging.googleapis.com/spanId", tc.SpanID),
		zap.Bool("logging.googleapis.com/trace_sampled", tc.Sampled),
	}
}

func traceResource(header, projectID string) string {
	if projectID == "" {
		return ""
	}
	tc, ok := parseTraceparent(header)
	if !ok {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", projectID, tc.TraceID)
}

// SetProjectID overrides the Google Cloud project used for trace resources.
// Without it the project is read once from the environment.
func SetProjectID(projectID string) {
	projectIDOnce.Do(func() {})
	projectMu.Lock()
	defer projectMu.Unlock()
	cachedProjectID = projectID
}

func resolveProjectID() string {
	projectIDOnce.Do(func() {
		id := cmp.Or(
			os.Getenv("FIREBASE_PROJECT_ID"),
			os.Getenv("GOOGLE_CLOUD_PROJECT"),
			os.Getenv("GCP_PROJECT"),
			os.Getenv("GCLOUD_PROJECT"),
			os.Getenv("PROJECT_ID"),
		)
		projectMu.Lock()
		cachedProjectID = id
		projectMu.Unlock()
	})
	projectMu.Lock()
	defer projectMu.Unlock()
	return cachedProjectID
}
