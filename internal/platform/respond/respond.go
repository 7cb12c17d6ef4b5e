// Package respond writes RFC 9457 problem responses for requests that never
// reach a Huma operation: unknown routes, unsupported methods and panics.
package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	// Served by the v1 Huma API.
	errorSchemaPath = "/v1/schemas/ErrorModel.json"

	msgNotFound           = "resource not found"
	msgInternalServerErr  = "internal server error"
	msgMethodNotAllowedFn = "method %s not allowed"
)

// problem mirrors huma.ErrorModel with the $schema link Huma adds to its own
// error responses.
type problem struct {
	Schema string              `json:"$schema,omitempty"`
	Title  string              `json:"title,omitempty"`
	Status int                 `json:"status,omitempty"`
	Detail string              `json:"detail,omitempty"`
	Errors []*huma.ErrorDetail `json:"errors,omitempty"`
}

// NotFoundHandler answers unknown routes with a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler answers with a 405 problem and an Allow header built
// from the routes registered on the matching path.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		writeProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf(msgMethodNotAllowedFn, r.Method))
	}
}

// Recoverer turns panics into 500 problems. http.ErrAbortHandler is re-raised
// so net/http can abort the connection. Nothing is written when the handler
// already sent a status line.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				applog.LogError(r.Context(), "panic recovered", err,
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)

				if rw.wroteHeader {
					return
				}
				writeProblem(rw.ResponseWriter, r, http.StatusInternalServerError, msgInternalServerErr)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// WriteRedirect sends a redirect to url with the given 3xx code.
func WriteRedirect(w http.ResponseWriter, r *http.Request, url string, code int) {
	http.Redirect(w, r, url, code)
}

// Status304NotModified is returned by operations whose conditional request
// matched. Huma sends the status without a body.
func Status304NotModified() huma.StatusError {
	return &noBodyStatusError{status: http.StatusNotModified, message: http.StatusText(http.StatusNotModified)}
}

type noBodyStatusError struct {
	status  int
	message string
}

func (e *noBodyStatusError) Error() string {
	if e.message != "" {
		return e.message
	}
	return http.StatusText(e.status)
}

func (e *noBodyStatusError) GetStatus() int {
	return e.status
}

// responseWriter records whether the status line has been sent.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	schema := schemaURL(r)
	body := problem{
		Schema: schema,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	h := w.Header()
	ensureVary(h, "Origin", "Accept")
	h.Set("Link", "<"+schema+`>; rel="describedBy"`)

	var (
		payload     []byte
		contentType string
		err         error
	)
	if selectFormat(r.Header.Get("Accept")) {
		contentType = contentTypeProblemCBOR
		payload, err = cbor.Marshal(body)
	} else {
		contentType = contentTypeProblemJSON
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		err = enc.Encode(body)
		payload = buf.Bytes()
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err, zap.Int("status", status))
		http.Error(w, http.StatusText(status), status)
		return
	}

	h.Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		applog.LogWarn(r.Context(), "failed to write problem", zap.Error(err))
	}
}

func schemaURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	if r.Host == "" {
		return errorSchemaPath
	}
	return scheme + "://" + r.Host + errorSchemaPath
}

// ensureVary adds each value to the Vary header unless it is already listed.
func ensureVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				seen[strings.ToLower(part)] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		h.Add("Vary", v)
	}
}

// allowedMethods asks chi's routing tree which methods match the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	var allowed []string
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges. A missing subtype
// reads as "*", and a malformed or out of range q reads as 1.
func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		params := strings.Split(part, ";")
		mediaType := strings.ToLower(strings.TrimSpace(params[0]))
		if mediaType == "" {
			continue
		}
		mr := mediaRange{q: 1}
		if typ, subtype, ok := strings.Cut(mediaType, "/"); ok {
			mr.typ, mr.subtype = strings.TrimSpace(typ), strings.TrimSpace(subtype)
		} else {
			mr.typ, mr.subtype = mediaType, "*"
		}
		for _, p := range params[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || q < 0 || q > 1 {
				q = 1
			}
			mr.q = q
		}
		ranges = append(ranges, mr)
	}
	return ranges
}

// specificity ranks how closely a range names the given media type, or -1
// when it does not match.
func (mr mediaRange) specificity(typ, subtype string) int {
	switch {
	case mr.typ == "*" && mr.subtype == "*":
		return 0
	case mr.typ != typ:
		return -1
	case mr.subtype == "*":
		return 1
	case strings.HasPrefix(mr.subtype, "*+"):
		if strings.HasSuffix(subtype, mr.subtype[1:]) {
			return 2
		}
		return -1
	case mr.subtype == subtype:
		if strings.HasPrefix(subtype, "problem+") {
			return 4
		}
		return 3
	default:
		return -1
	}
}

type preference struct {
	q           float64
	specificity int
}

// negotiate returns the preference the Accept ranges give to a format that
// can be served as any of subtypes under application/. The most specific
// matching range decides the q value.
func negotiate(ranges []mediaRange, subtypes ...string) (preference, bool) {
	best := preference{specificity: -1}
	for _, mr := range ranges {
		for _, subtype := range subtypes {
			s := mr.specificity("application", subtype)
			if s < 0 {
				continue
			}
			if s > best.specificity || (s == best.specificity && mr.q > best.q) {
				best = preference{q: mr.q, specificity: s}
			}
		}
	}
	if best.specificity < 0 || best.q <= 0 {
		return preference{}, false
	}
	return best, true
}

// selectFormat reports whether a problem should be encoded as CBOR. JSON wins
// every tie and is the fallback when neither format is acceptable.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	cborPref, cborOK := negotiate(ranges, "problem+cbor", "cbor")
	if !cborOK {
		return false
	}
	jsonPref, jsonOK := negotiate(ranges, "problem+json", "json")
	if !jsonOK {
		return true
	}
	if cborPref.q != jsonPref.q {
		return cborPref.q > jsonPref.q
	}
	return cborPref.specificity > jsonPref.specificity
}
