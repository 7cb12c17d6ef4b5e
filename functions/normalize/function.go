// Package normalize provides an HTTP Cloud Function that normalizes a wallet
// profile record without storing it.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
	"github.com/janisto/wallet-profiles/internal/platform/timeutil"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const maxBodyBytes = 1 << 20

func init() {
	functions.HTTP("NormalizeProfile", Handler(profilesvc.NewNormalizer(profilesvc.ParseNetworks(os.Getenv("PROFILE_NETWORKS")))))
}

// Response is the function's success payload.
type Response struct {
	Profile    map[string]any `json:"profile"`
	Normalized timeutil.Time  `json:"normalizedAt"`
}

// Handler normalizes the JSON record in the request body.
func Handler(normalizer *profilesvc.Normalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeProblem(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeProblem(w, http.StatusRequestEntityTooLarge, "request body is too large")
				return
			}
			writeProblem(w, http.StatusBadRequest, "could not read request body")
			return
		}

		rec, err := schema.ParseJSON(data)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "profile record is not a valid object")
			return
		}

		out, err := normalizer.Prepare(r.Context(), rec)
		if err != nil {
			var verr *schema.ValidationError
			switch {
			case errors.As(err, &verr):
				writeProblem(w, http.StatusUnprocessableEntity, "profile failed validation", issues(verr)...)
			case errors.Is(err, profilesvc.ErrUnknownNetwork):
				writeProblem(w, http.StatusUnprocessableEntity, "unknown network", &huma.ErrorDetail{
					Location: "body." + profilesvc.FieldNetworkID,
					Message:  err.Error(),
				})
			default:
				applog.LogError(r.Context(), "normalize failed", err)
				writeProblem(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		applog.LogInfo(r.Context(), "profile normalized", zap.Int("keys", len(out)))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{
			Profile:    schema.Native(out).(map[string]any),
			Normalized: timeutil.Now(),
		})
	}
}

func issues(verr *schema.ValidationError) []*huma.ErrorDetail {
	details := make([]*huma.ErrorDetail, len(verr.Issues))
	for i, issue := range verr.Issues {
		details[i] = &huma.ErrorDetail{
			Location: "body" + jsonPointerPath(issue.Path),
			Message:  issue.Kind.String() + ": " + issue.Detail,
		}
	}
	return details
}

// jsonPointerPath turns "/a/b" into ".a.b".
func jsonPointerPath(pointer string) string {
	var out []byte
	for i := 0; i < len(pointer); i++ {
		switch {
		case pointer[i] == '/':
			out = append(out, '.')
		case pointer[i] == '~' && i+1 < len(pointer) && pointer[i+1] == '1':
			out = append(out, '/')
			i++
		case pointer[i] == '~' && i+1 < len(pointer) && pointer[i+1] == '0':
			out = append(out, '~')
			i++
		default:
			out = append(out, pointer[i])
		}
	}
	return string(out)
}

func writeProblem(w http.ResponseWriter, status int, detail string, details ...*huma.ErrorDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Errors: details,
	})
}
