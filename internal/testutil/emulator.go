package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

// Firebase emulator endpoints used by integration tests.
const (
	AuthEmulatorHost      = "127.0.0.1:7110"
	FirestoreEmulatorHost = "127.0.0.1:7130"
	ProjectID             = "demo-wallet-profiles"
	emulatorAPIKey        = "fake-api-key" //nolint:gosec // accepted by the emulator only
)

func reachable(host string) bool {
	conn, err := net.DialTimeout("tcp", host, 100*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SkipIfFirestoreUnavailable skips tests backed by the Firestore profile store
// when its emulator is not listening.
func SkipIfFirestoreUnavailable(t *testing.T) {
	t.Helper()
	if !reachable(FirestoreEmulatorHost) {
		t.Skip("Firestore emulator not available")
	}
}

// SkipIfAuthUnavailable skips tests that verify real ID tokens.
func SkipIfAuthUnavailable(t *testing.T) {
	t.Helper()
	if !reachable(AuthEmulatorHost) {
		t.Skip("Auth emulator not available")
	}
}

// SetupEmulator points the Firebase Admin SDK at both emulators for the
// duration of the test.
func SetupEmulator(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_AUTH_EMULATOR_HOST", AuthEmulatorHost)
	t.Setenv("FIRESTORE_EMULATOR_HOST", FirestoreEmulatorHost)
}

// emulatorCall sends one request to an emulator REST endpoint and decodes the
// JSON answer into out when out is non-nil.
func emulatorCall(t *testing.T, method, url string, body, out any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode emulator request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		t.Fatalf("build emulator request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d: %s", method, url, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode emulator response: %v", err)
		}
	}
}

// ClearFirestore deletes every stored profile document.
func ClearFirestore(t *testing.T) {
	t.Helper()
	emulatorCall(t, http.MethodDelete, fmt.Sprintf(
		"http://%s/emulator/v1/projects/%s/databases/(default)/documents",
		FirestoreEmulatorHost, ProjectID), nil, nil)
}

// ClearAccounts deletes every Auth emulator account.
func ClearAccounts(t *testing.T) {
	t.Helper()
	emulatorCall(t, http.MethodDelete, fmt.Sprintf(
		"http://%s/emulator/v1/projects/%s/accounts",
		AuthEmulatorHost, ProjectID), nil, nil)
}

// Owner is an Auth emulator account that can own profiles.
type Owner struct {
	UID     string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

// SignUpOwner creates an email/password account and returns its ID token.
func SignUpOwner(t *testing.T, email, password string) Owner {
	t.Helper()
	var owner Owner
	emulatorCall(t, http.MethodPost, fmt.Sprintf(
		"http://%s/identitytoolkit.googleapis.com/v1/accounts:signUp?key=%s",
		AuthEmulatorHost, emulatorAPIKey),
		map[string]any{"email": email, "password": password, "returnSecureToken": true},
		&owner)
	if owner.IDToken == "" || owner.UID == "" {
		t.Fatalf("sign up %s: emulator returned no token", email)
	}
	return owner
}
