package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/wallet-profiles/internal/platform/auth"
	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/wallet-profiles/internal/platform/middleware"
	"github.com/janisto/wallet-profiles/internal/platform/pagination"
	"github.com/janisto/wallet-profiles/internal/platform/respond"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
	"github.com/janisto/wallet-profiles/internal/testutil"
)

const testPrefix = "/v1"

// failingService fails every call with err.
type failingService struct{ err error }

func (f failingService) Create(context.Context, string, schema.Record) (*profilesvc.Profile, error) {
	return nil, f.err
}

func (f failingService) Get(context.Context, string, string) (*profilesvc.Profile, error) {
	return nil, f.err
}

func (f failingService) List(context.Context, string) ([]*profilesvc.Profile, error) {
	return nil, f.err
}

func (f failingService) Update(context.Context, string, string, schema.Record) (*profilesvc.Profile, error) {
	return nil, f.err
}

func (f failingService) Delete(context.Context, string, string) error {
	return f.err
}

type testEnv struct {
	router chi.Router
	store  *profilesvc.MemoryStore
	user   *auth.User
}

func newTestEnv(t *testing.T, networks profilesvc.NetworkResolver) *testEnv {
	t.Helper()
	normalizer := profilesvc.NewNormalizer(networks)
	store := profilesvc.NewMemoryStore(normalizer)
	user := auth.TestUser()
	return &testEnv{
		router: newTestRouter(store, normalizer, &auth.MockVerifier{User: user}),
		store:  store,
		user:   user,
	}
}

func newTestRouter(svc profilesvc.Service, normalizer *profilesvc.Normalizer, verifier auth.Verifier) chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("ProfileTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))
	Register(api, svc, normalizer, testPrefix)
	return router
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWith(t, method, path, body, map[string]string{"Authorization": "Bearer valid-token"})
}

func (e *testEnv) doWith(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) create(t *testing.T, overrides map[string]any) Profile {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(overrides))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	return decodeProfile(t, resp)
}

func decodeProfile(t *testing.T, resp *httptest.ResponseRecorder) Profile {
	t.Helper()
	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return p
}

func decodeProblem(t *testing.T, resp *httptest.ResponseRecorder) huma.ErrorModel {
	t.Helper()
	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("json unmarshal problem: %v", err)
	}
	return problem
}

func findDetail(problem huma.ErrorModel, location string) *huma.ErrorDetail {
	for _, d := range problem.Errors {
		if d.Location == location {
			return d
		}
	}
	return nil
}

func TestCreateProfileFillsDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	p := decodeProfile(t, resp)

	if len(p.ID) != 16 {
		t.Fatalf("expected generated 16 character id, got %q", p.ID)
	}
	if loc := resp.Header().Get("Location"); loc != testPrefix+"/profiles/"+p.ID {
		t.Fatalf("unexpected Location %q", loc)
	}
	if resp.Header().Get("ETag") == "" {
		t.Fatal("expected ETag header")
	}
	if p.TimeFormat != profilesvc.DefaultTimeFormat {
		t.Fatalf("expected default timeFormat, got %q", p.TimeFormat)
	}
	if p.HideWalletButtonText {
		t.Fatal("expected hideWalletButtonText to default to false")
	}
	if !p.ShowPluginConfirmation || !p.BroadcastPeers || !p.ScreenshotProtection {
		t.Fatalf("expected true defaults, got %+v", p)
	}
	if p.TransactionTableRowCount != profilesvc.DefaultTransactionTableRowCount {
		t.Fatalf("expected default row count, got %d", p.TransactionTableRowCount)
	}
	if p.WalletSortParams != (profilesvc.SortParams{Field: "balance", Type: "desc"}) {
		t.Fatalf("unexpected walletSortParams %+v", p.WalletSortParams)
	}
	if p.Avatar != nil || p.AvatarInitial != "A" {
		t.Fatalf("expected null avatar with initial A, got %v / %q", p.Avatar, p.AvatarInitial)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}
}

func TestCreateProfileKeepsExplicitValues(t *testing.T) {
	env := newTestEnv(t, nil)

	p := env.create(t, map[string]any{
		"id":                     "custom-id",
		"avatar":                 map[string]any{"avatarName": "cat", "pluginId": "@acme/avatars"},
		"showPluginConfirmation": false,
		"walletLayout":           "list",
		"extraSetting":           "kept",
	})

	if p.ID != "custom-id" {
		t.Fatalf("expected explicit id, got %q", p.ID)
	}
	if p.ShowPluginConfirmation {
		t.Fatal("expected explicit false to be kept")
	}
	if p.WalletLayout != "list" {
		t.Fatalf("expected walletLayout list, got %q", p.WalletLayout)
	}
	avatar, ok := p.Avatar.(map[string]any)
	if !ok || avatar["pluginId"] != "@acme/avatars" {
		t.Fatalf("expected plugin avatar, got %#v", p.Avatar)
	}
	if p.AvatarInitial != "" {
		t.Fatalf("expected no initial for image avatar, got %q", p.AvatarInitial)
	}
	if p.Extensions["extraSetting"] != "kept" {
		t.Fatalf("expected unknown key in extensions, got %v", p.Extensions)
	}
}

func TestCreateProfileConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, map[string]any{"id": "dup"})

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{"id": "dup"}))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateProfileMissingRequiredFields(t *testing.T) {
	env := newTestEnv(t, nil)

	body := testutil.Without(testutil.ProfileRecord(nil), "currency", "theme")
	resp := env.do(t, http.MethodPost, "/profiles", body)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	problem := decodeProblem(t, resp)
	for _, loc := range []string{"body.currency", "body.theme"} {
		d := findDetail(problem, loc)
		if d == nil {
			t.Fatalf("expected detail at %s, got %+v", loc, problem.Errors)
		}
		if !strings.HasPrefix(d.Message, schema.MissingRequiredField.String()) {
			t.Fatalf("expected MissingRequiredField message, got %q", d.Message)
		}
	}
}

func TestCreateProfileLengthViolationEchoesValue(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{"currency": "US"}))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	d := findDetail(decodeProblem(t, resp), "body.currency")
	if d == nil {
		t.Fatalf("expected currency detail, got %s", resp.Body.String())
	}
	if !strings.HasPrefix(d.Message, schema.LengthViolation.String()) {
		t.Fatalf("expected LengthViolation message, got %q", d.Message)
	}
	if d.Value != "US" {
		t.Fatalf("expected offending value echoed, got %v", d.Value)
	}
}

func TestCreateProfileNestedTypeMismatchLocation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{
		"marketChartOptions": map[string]any{"isEnabled": true, "isExpanded": false, "period": 7},
	}))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	if d := findDetail(decodeProblem(t, resp), "body.marketChartOptions.period"); d == nil {
		t.Fatalf("expected nested location, got %s", resp.Body.String())
	}
}

func TestCreateProfileRejectsUnroutableID(t *testing.T) {
	for _, id := range []string{"schema", "normalize", "a/b"} {
		t.Run(id, func(t *testing.T) {
			env := newTestEnv(t, nil)

			resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{"id": id}))

			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
			}
			if loc := resp.Header().Get("Location"); loc != "" {
				t.Fatalf("expected no Location, got %q", loc)
			}
			d := findDetail(decodeProblem(t, resp), "body.id")
			if d == nil || d.Value != id {
				t.Fatalf("expected body.id detail echoing %q, got %s", id, resp.Body.String())
			}

			profiles, err := env.store.List(context.Background(), env.user.UID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(profiles) != 0 {
				t.Fatalf("expected nothing stored, found %d profiles", len(profiles))
			}
		})
	}
}

func TestCreateProfileKeepsLargeIntegerNetworkID(t *testing.T) {
	env := newTestEnv(t, nil)
	const big = "9007199254740993"

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{
		"id":        "big-network",
		"networkId": json.Number(big),
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"networkId":`+big) {
		t.Fatalf("expected networkId %s in create response, got %s", big, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/profiles/big-network", nil)
	if !strings.Contains(resp.Body.String(), `"networkId":`+big) {
		t.Fatalf("expected networkId %s after reload, got %s", big, resp.Body.String())
	}
}

func TestCreateProfileUnknownNetwork(t *testing.T) {
	env := newTestEnv(t, profilesvc.StaticNetworks{"ark.mainnet"})

	resp := env.do(t, http.MethodPost, "/profiles", testutil.ProfileRecord(map[string]any{"networkId": "ark.devnet"}))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	d := findDetail(decodeProblem(t, resp), "body.networkId")
	if d == nil || d.Value != "ark.devnet" {
		t.Fatalf("expected networkId detail, got %s", resp.Body.String())
	}
}

func TestCreateProfileUnauthorized(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doWith(t, http.MethodPost, "/profiles", testutil.ProfileRecord(nil), nil)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if wwwAuth := resp.Header().Get("WWW-Authenticate"); wwwAuth != "Bearer" {
		t.Fatalf("expected WWW-Authenticate: Bearer, got %s", wwwAuth)
	}
}

func TestCreateProfileCBOR(t *testing.T) {
	env := newTestEnv(t, nil)

	raw, err := cbor.Marshal(testutil.ProfileRecord(map[string]any{"transactionTableRowCount": 25}))
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/profiles", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Authorization", "Bearer valid-token")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %q", ct)
	}
	var p struct {
		Name                     string `cbor:"name"`
		TransactionTableRowCount int    `cbor:"transactionTableRowCount"`
		CreatedAt                string `cbor:"createdAt"`
	}
	if err := cbor.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if p.Name != "Alice" || p.TransactionTableRowCount != 25 || p.CreatedAt == "" {
		t.Fatalf("unexpected CBOR profile %+v", p)
	}
}

func TestListProfilesPaginates(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, name := range []string{"Carol", "Alice", "Bob"} {
		env.create(t, map[string]any{"name": name})
	}

	resp := env.do(t, http.MethodGet, "/profiles?limit=2", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var page ListData
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("expected 2 of 3 profiles, got %d of %d", len(page.Items), page.Total)
	}
	if page.Items[0].Name != "Alice" || page.Items[1].Name != "Bob" {
		t.Fatalf("expected name order, got %s, %s", page.Items[0].Name, page.Items[1].Name)
	}

	link := resp.Header().Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, testPrefix+"/profiles?") {
		t.Fatalf("expected next link, got %q", link)
	}

	next := pagination.Cursor{Type: cursorType, Value: pagination.Key(page.Items[1].Name, page.Items[1].ID)}.Encode()
	resp = env.do(t, http.MethodGet, "/profiles?limit=2&cursor="+next, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Carol" {
		t.Fatalf("expected Carol on the second page, got %+v", page.Items)
	}
}

func TestListProfilesInvalidCursor(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, cursor := range []string{"!!!", pagination.Cursor{Type: "item", Value: "x"}.Encode()} {
		resp := env.do(t, http.MethodGet, "/profiles?cursor="+cursor, nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("cursor %q: expected 400, got %d", cursor, resp.Code)
		}
	}
}

func TestListProfilesEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/profiles", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %s", resp.Body.String())
	}
}

func TestGetProfileWithETag(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, nil)

	resp := env.do(t, http.MethodGet, "/profiles/"+created.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := decodeProfile(t, resp); got.ID != created.ID || got.Name != "Alice" {
		t.Fatalf("unexpected profile %+v", got)
	}

	tag := resp.Header().Get("ETag")
	resp = env.doWith(t, http.MethodGet, "/profiles/"+created.ID, nil, map[string]string{
		"Authorization": "Bearer valid-token",
		"If-None-Match": tag,
	})
	if resp.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", resp.Body.String())
	}
}

func TestGetProfileIfNoneMatchForms(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, map[string]any{"id": "cached"})

	resp := env.do(t, http.MethodGet, "/profiles/cached", nil)
	tag := resp.Header().Get("ETag")
	if !strings.HasPrefix(tag, `W/"cached-`) {
		t.Fatalf("expected weak ETag for %s, got %q", created.ID, tag)
	}
	strong := strings.TrimPrefix(tag, "W/")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"same tag", tag, http.StatusNotModified},
		{"strong form", strong, http.StatusNotModified},
		{"wildcard", "*", http.StatusNotModified},
		{"list", `"other", ` + tag, http.StatusNotModified},
		{"list without spaces", `W/"x",` + strong, http.StatusNotModified},
		{"no match", `W/"cached-0"`, http.StatusOK},
		{"unquoted", "cached", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.doWith(t, http.MethodGet, "/profiles/cached", nil, map[string]string{
				"Authorization": "Bearer valid-token",
				"If-None-Match": tt.header,
			})
			if resp.Code != tt.want {
				t.Fatalf("If-None-Match %q: expected %d, got %d", tt.header, tt.want, resp.Code)
			}
		})
	}
}

func TestNoneMatch(t *testing.T) {
	const tag = `W/"a,b-1"`
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"*", true},
		{`"a,b-1"`, true},
		{`W/"a,b-1"`, true},
		{`"a", "a,b-1"`, true},
		{`"a"`, false},
		{`"a,b-1`, false},
		{`W/"z", ,`, false},
	}
	for _, tt := range tests {
		if got := noneMatch(tt.header, tag); got != tt.want {
			t.Errorf("noneMatch(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestGetProfileNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/profiles/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetProfileOfAnotherOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	other, err := env.store.Create(context.Background(), "someone-else", testutil.ProfileRecord(map[string]any{"id": "theirs"}))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/profiles/"+other.ID, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner's profile, got %d", resp.Code)
	}
}

func TestUpdateProfileMergesPatch(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, map[string]any{"walletLayout": "list"})

	resp := env.do(t, http.MethodPatch, "/profiles/"+created.ID, map[string]any{"name": "Alicia", "walletLayout": nil})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	p := decodeProfile(t, resp)
	if p.Name != "Alicia" {
		t.Fatalf("expected renamed profile, got %q", p.Name)
	}
	if p.WalletLayout != profilesvc.DefaultWalletLayout {
		t.Fatalf("expected null walletLayout to fall back to default, got %q", p.WalletLayout)
	}
	if p.Currency != "USD" {
		t.Fatalf("expected untouched fields kept, got currency %q", p.Currency)
	}
}

func TestUpdateProfileRejectsIDChange(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, nil)

	resp := env.do(t, http.MethodPatch, "/profiles/"+created.ID, map[string]any{"id": "other"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	if d := findDetail(decodeProblem(t, resp), "body.id"); d == nil {
		t.Fatalf("expected body.id detail, got %s", resp.Body.String())
	}
}

func TestUpdateProfileRejectsInvalidMerge(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, nil)

	resp := env.do(t, http.MethodPatch, "/profiles/"+created.ID, map[string]any{"name": ""})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}

	got, err := env.store.Get(context.Background(), env.user.UID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Alice" {
		t.Fatalf("expected failed update to leave the record unchanged, got %q", got.Name)
	}
}

func TestUpdateProfileEmptyBody(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, nil)

	resp := env.do(t, http.MethodPatch, "/profiles/"+created.ID, map[string]any{})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateProfileNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPatch, "/profiles/missing", map[string]any{"name": "Bob"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.create(t, nil)

	resp := env.do(t, http.MethodDelete, "/profiles/"+created.ID, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodDelete, "/profiles/"+created.ID, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}

func TestNormalizeProfileWithoutAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doWith(t, http.MethodPost, "/profiles/normalize", testutil.ProfileRecord(nil), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &rec); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if rec["timeFormat"] != profilesvc.DefaultTimeFormat || rec["walletLayout"] != profilesvc.DefaultWalletLayout {
		t.Fatalf("expected defaults in normalized record, got %v", rec)
	}
	if _, ok := rec["id"]; ok {
		t.Fatal("normalize must not assign an id")
	}

	profiles, err := env.store.List(context.Background(), env.user.UID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("normalize must not store anything, found %d profiles", len(profiles))
	}
}

func TestNormalizeProfileKeepsLargeIntegers(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doWith(t, http.MethodPost, "/profiles/normalize", testutil.ProfileRecord(map[string]any{
		"networkId": json.Number("9007199254740993"),
	}), nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"networkId":9007199254740993`) {
		t.Fatalf("networkId was rewritten: %s", resp.Body.String())
	}
}

func TestNormalizeProfileInvalid(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doWith(t, http.MethodPost, "/profiles/normalize", map[string]any{"name": "Alice"}, nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetProfileSchema(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.doWith(t, http.MethodGet, "/profiles/schema", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if doc["$id"] != profilesvc.SchemaID {
		t.Fatalf("expected schema $id, got %v", doc["$id"])
	}
	if _, ok := doc["properties"].(map[string]any)["walletSortParams"]; !ok {
		t.Fatal("expected walletSortParams property")
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", profilesvc.ErrNotFound, http.StatusNotFound},
		{"exists", profilesvc.ErrAlreadyExists, http.StatusConflict},
		{"invalid record", schema.ErrInvalidRecord, http.StatusBadRequest},
		{"networks unavailable", profilesvc.ErrNetworksUnavailable, http.StatusServiceUnavailable},
		{"internal", errors.New("firestore unavailable"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(failingService{err: tt.err}, profilesvc.NewNormalizer(nil), &auth.MockVerifier{User: auth.TestUser()})
			req := httptest.NewRequest(http.MethodGet, "/profiles/any", nil)
			req.Header.Set("Authorization", "Bearer valid-token")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(resp.Body.String(), "firestore") {
				t.Fatalf("internal error details leaked: %s", resp.Body.String())
			}
		})
	}
}

func TestPointerToDots(t *testing.T) {
	tests := map[string]string{
		"/name":                      ".name",
		"/marketChartOptions/period": ".marketChartOptions.period",
		"/walletSidebarFilters/a~1b": ".walletSidebarFilters.a/b",
		"/x~0y":                      ".x~y",
	}
	for in, want := range tests {
		if got := pointerToDots(in); got != want {
			t.Fatalf("pointerToDots(%q) = %q, want %q", in, got, want)
		}
	}
}
