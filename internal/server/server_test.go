package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/localstore"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/server/ratelimit"
	"github.com/jonathan/career-atoms/internal/types"
)

const testPrincipal = "github|1001"

const relaxedBackup = `{
	"jobs": [
		{"company": "Acme", "role": "Engineer", "startDate": "2020-01-01"},
		{"company": "Globex", "role": "Staff Engineer", "startDate": "2022-03-01", "endDate": "2023-06-30"}
	],
	"highlights": [
		{"title": "Shipped X", "job": "Acme", "startDate": "2020-02-01", "metrics": [{"label": "Latency", "value": 40, "unit": "%"}]},
		{"title": "Mentored interns", "type": "teaching", "job": "Globex Staff Engineer", "startDate": "2022-06-01", "isHidden": true},
		{"title": "Distributed systems", "type": "course", "startDate": "2019-09-01"}
	],
	"profile": {"fullName": "Ada Lovelace", "email": "ada@example.com"}
}`

type testServer struct {
	*Server
	jwt *config.JWTConfig
}

func newTestServer(t *testing.T, rateLimit *ratelimit.Config) *testServer {
	t.Helper()
	dir := t.TempDir()

	ledger, err := localstore.OpenLedger(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	if rateLimit == nil {
		rateLimit = &ratelimit.Config{Enabled: false}
	}
	jwtConfig := &config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: 1,
	}
	s, err := New(Config{
		Provisioner: provisioning.NewOrchestrator(ledger, localstore.NewProvider(filepath.Join(dir, "stores"), nil), nil),
		JWT:         jwtConfig,
		RateLimit:   rateLimit,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, jwt: jwtConfig}
}

func (ts *testServer) token(t *testing.T, principal string) string {
	t.Helper()
	token, err := NewJWTService(ts.jwt).GenerateToken(principal)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, target, principal string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if principal != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, principal))
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))
}

func TestHandleBackupSchema(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/v1/backup/schema", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/schema+json", w.Header().Get("Content-Type"))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/v1/store/status"},
		{http.MethodPost, "/v1/store/provision"},
		{http.MethodGet, "/v1/backup"},
		{http.MethodPost, "/v1/backup"},
		{http.MethodDelete, "/v1/data"},
		{http.MethodGet, "/v1/profile"},
		{http.MethodGet, "/v1/jobs"},
		{http.MethodGet, "/v1/highlights"},
	}
	for _, route := range routes {
		w := ts.do(t, route.method, route.path, "", strings.NewReader(relaxedBackup))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}

	// A token signed with another secret is rejected as well.
	other := NewJWTService(&config.JWTConfig{Secret: "another-secret", ExpirationHours: 1})
	forged, err := other.GenerateToken(testPrincipal)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProvisioningEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/v1/store/status", testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StoreStatusResponse{Principal: testPrincipal, Status: "none"}, decode[StoreStatusResponse](t, w))

	for range 2 {
		w = ts.do(t, http.MethodPost, "/v1/store/provision", testPrincipal, nil)
		require.Equal(t, http.StatusOK, w.Code)
		rec := decode[provisioning.Record](t, w)
		assert.Equal(t, provisioning.StatusReady, rec.Status)
		assert.Equal(t, testPrincipal, rec.PrincipalID)
	}

	w = ts.do(t, http.MethodGet, "/v1/store/status", testPrincipal, nil)
	assert.Equal(t, "ready", decode[StoreStatusResponse](t, w).Status)
}

func TestImportExportRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(relaxedBackup))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[types.ImportResult](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.JobsImported)
	assert.Equal(t, 3, result.HighlightsImported)
	assert.True(t, result.ProfileImported)

	w = ts.do(t, http.MethodGet, "/v1/backup", testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "career-atoms-")
	exported := w.Body.Bytes()
	doc := decode[types.BackupDocument](t, w)
	require.Len(t, doc.Jobs, 2)
	require.Len(t, doc.Highlights, 3)
	assert.Equal(t, "acme-engineer-2020-01-01", doc.Jobs[0].ID)
	require.NotNil(t, doc.Profile)
	assert.Equal(t, "Ada Lovelace", doc.Profile.FullName)

	// Importing the export again changes nothing and creates nothing.
	w = ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, bytes.NewReader(exported))
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[types.ImportResult](t, w)
	assert.True(t, again.Success)
	assert.Equal(t, 0, again.JobsCreated)
	assert.Equal(t, 0, again.HighlightsCreated)

	// Another principal sees its own empty store.
	w = ts.do(t, http.MethodGet, "/v1/jobs", "github|2002", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, w)["count"])
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal,
		strings.NewReader(`{"jobs": [{"id": "Not A Slug", "company": "", "role": "x", "startDate": "2020-01-01"}], "highlights": []}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	result := decode[types.ImportResult](t, w)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	for _, e := range result.Errors {
		assert.Equal(t, types.ImportErrorValidation, e.Kind)
	}

	w = ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(`[1, 2, 3]`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was written.
	w = ts.do(t, http.MethodGet, "/v1/jobs", testPrincipal, nil)
	assert.EqualValues(t, 0, decode[map[string]any](t, w)["count"])
}

func TestListAndGetEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(relaxedBackup))
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/jobs", testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs struct {
		Jobs  []types.JobWithCount `json:"jobs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Equal(t, 2, jobs.Count)
	assert.Equal(t, "Acme", jobs.Jobs[0].Company)
	assert.Equal(t, 1, jobs.Jobs[0].HighlightCount)

	acme := jobs.Jobs[0].ID.String()
	w = ts.do(t, http.MethodGet, "/v1/jobs/"+acme, testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Engineer", decode[types.Job](t, w).Role)

	type highlightList struct {
		Highlights []types.Highlight `json:"highlights"`
		Count      int               `json:"count"`
	}
	list := func(query string) highlightList {
		w := ts.do(t, http.MethodGet, "/v1/highlights"+query, testPrincipal, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[highlightList](t, w)
	}
	assert.Equal(t, 3, list("").Count)
	assert.Equal(t, 1, list("?job_id="+acme).Count)
	assert.Equal(t, "Distributed systems", list("?type=course").Highlights[0].Title)
	assert.Equal(t, 1, list("?hidden=true").Count)
	assert.Equal(t, 2, list("?hidden=false").Count)

	highlight := list("?type=teaching").Highlights[0]
	w = ts.do(t, http.MethodGet, "/v1/highlights/"+highlight.ID.String(), testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mentored interns", decode[types.Highlight](t, w).Title)

	w = ts.do(t, http.MethodGet, "/v1/profile", testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada Lovelace", decode[types.Profile](t, w).FullName)

	for _, query := range []string{"?job_id=nope", "?type=hobby", "?hidden=maybe"} {
		w = ts.do(t, http.MethodGet, "/v1/highlights"+query, testPrincipal, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	w = ts.do(t, http.MethodGet, "/v1/jobs/not-a-uuid", testPrincipal, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodGet, "/v1/jobs/00000000-0000-5000-8000-000000000000", testPrincipal, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(relaxedBackup))
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/v1/data", testPrincipal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.ClearResult{JobsDeleted: 2, HighlightsDeleted: 3}, decode[types.ClearResult](t, w))

	w = ts.do(t, http.MethodGet, "/v1/profile", testPrincipal, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportIsRateLimitedPerPrincipal(t *testing.T) {
	ts := newTestServer(t, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/v1/backup", Method: http.MethodPost, Limit: 2, Window: time.Hour, Burst: 2},
		},
	})

	for range 2 {
		w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(relaxedBackup))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodPost, "/v1/backup", testPrincipal, strings.NewReader(relaxedBackup))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, w)["error"])

	// The budget belongs to the principal, not the shared client address.
	w = ts.do(t, http.MethodPost, "/v1/backup", "github|2002", strings.NewReader(relaxedBackup))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerReusesSessionPerPrincipal(t *testing.T) {
	ts := newTestServer(t, nil)

	first := ts.sessionFor(testPrincipal)
	assert.Same(t, first, ts.sessionFor(testPrincipal))
	assert.NotSame(t, first, ts.sessionFor("github|2002"))

	ts.Close()
	assert.Empty(t, ts.sessions)
	_, err := first.Store(context.Background())
	assert.Error(t, err)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{JWT: &config.JWTConfig{Secret: "s", ExpirationHours: 1}})
	assert.Error(t, err)

	_, err = New(Config{Provisioner: provisioning.NewOrchestrator(nil, nil, nil)})
	assert.Error(t, err)
}
