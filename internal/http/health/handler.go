package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
)

const checkTimeout = 2 * time.Second

// Response is the payload for the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Handler is a plain HTTP handler for the health check endpoint. Every named
// check must pass for a 200; otherwise it answers 503.
func Handler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		resp := Response{Status: "healthy"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				applog.LogWarn(r.Context(), "health check failed", zap.String("check", name), zap.Error(err))
				resp.Checks[name] = "unavailable"
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
