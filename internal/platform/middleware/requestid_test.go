package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func serveRequestID(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()

	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = chimiddleware.GetReqID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	if header != "" {
		req.Header.Set("X-Request-Id", header)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return ctxID, resp.Header().Get("X-Request-Id")
}

func TestRequestIDGeneratesUUIDv4(t *testing.T) {
	ctxID, respID := serveRequestID(t, "")

	parsed, err := uuid.Parse(ctxID)
	if err != nil {
		t.Fatalf("expected a UUID, got %q: %v", ctxID, err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("expected UUIDv4, got version %d", parsed.Version())
	}
	if respID != ctxID {
		t.Fatalf("response header %q does not match context %q", respID, ctxID)
	}
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	for _, id := range []string{
		"client-req-1",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		"YWJjZGVm==",
	} {
		ctxID, respID := serveRequestID(t, id)
		if ctxID != id || respID != id {
			t.Fatalf("expected %q to be reused, got ctx=%q resp=%q", id, ctxID, respID)
		}
	}
}

func TestRequestIDReplacesInvalidHeader(t *testing.T) {
	for _, id := range []string{
		"bad\nid",
		"tab\tid",
		"caf\xc3\xa9",
		strings.Repeat("a", maxRequestIDLength+1),
	} {
		ctxID, _ := serveRequestID(t, id)
		if ctxID == id {
			t.Fatalf("expected invalid id %q to be replaced", id)
		}
		if _, err := uuid.Parse(ctxID); err != nil {
			t.Fatalf("expected generated UUID, got %q", ctxID)
		}
	}
}

func TestIsValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{" ", true},
		{"~", true},
		{"\x1f", false},
		{"\x7f", false},
		{strings.Repeat("x", maxRequestIDLength), true},
		{strings.Repeat("x", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		if got := isValidRequestID(tt.id); got != tt.want {
			t.Errorf("isValidRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
