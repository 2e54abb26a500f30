// file: internal/server/server_test.go
// version: 2.0.0
// guid: 0c722e48-23c6-4515-8df1-f892588365aa

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/models"
	"github.com/jdfalk/cpe-resolver/internal/server/middleware"
)

// fakeResolver answers every alias with NoMatch and persists into store when set
type fakeResolver struct {
	mu    sync.Mutex
	calls [][]string
	store database.ResultStore
}

func (f *fakeResolver) ResolveBatch(ctx context.Context, aliases []string, _ func(int, int)) (string, []models.OutputRecord) {
	f.mu.Lock()
	f.calls = append(f.calls, aliases)
	f.mu.Unlock()
	runID := ulid.Make().String()
	out := make([]models.OutputRecord, len(aliases))
	for i, a := range aliases {
		out[i] = models.OutputRecord{Alias: a, MatchType: models.MatchNone, Reasoning: "no catalog entry matched"}
		if f.store != nil {
			_ = f.store.SaveResolution(ctx, runID, out[i])
		}
	}
	return runID, out
}

func setupTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	path := os.TempDir() + "/test_server_" + ulid.Make().String() + ".db"
	store, err := database.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})
	return store
}

func setupTestServer(t *testing.T, cfg Config) (*Server, *fakeResolver, *database.SQLiteStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := setupTestStore(t)
	res := &fakeResolver{store: store}
	srv := NewServer(Deps{Resolver: res, Runs: store, Catalog: store, Mode: "direct"}, cfg)
	return srv, res, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv, _, store := setupTestServer(t, Config{})
	_, err := store.InsertCandidates(context.Background(), []models.Candidate{
		{ConfigurationString: "cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*", Vendor: "rarlab", Product: "winrar", Version: "6.02"},
	})
	require.NoError(t, err)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["catalog_entries"])
	assert.Equal(t, "direct", data["retrieval_mode"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestResolveEndpoint(t *testing.T) {
	srv, res, _ := setupTestServer(t, Config{})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/resolve", ResolveRequest{
		Aliases: []string{"WinRAR 6.02 (64-bit)", "Microsoft Edge"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "WinRAR 6.02 (64-bit)", resp.Results[0].Alias)
	assert.Equal(t, 2, resp.Summary[string(models.MatchNone)])
	assert.Len(t, res.calls, 1)
}

func TestResolveEndpointRejectsBadRequests(t *testing.T) {
	srv, res, _ := setupTestServer(t, Config{MaxBatchSize: 2})

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"aliases":`, "BAD_REQUEST"},
		{"missing aliases", `{}`, "VALIDATION_ERROR"},
		{"empty aliases", `{"aliases":[]}`, "VALIDATION_ERROR"},
		{"blank alias", `{"aliases":["ok",""]}`, "VALIDATION_ERROR"},
		{"whitespace alias", `{"aliases":["  "]}`, "ALIAS_REQUIRED"},
		{"batch too large", `{"aliases":["a","b","c"]}`, "BATCH_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
	assert.Empty(t, res.calls)
}

func TestEndpointsWithoutDeps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(Deps{}, Config{})

	assert.Equal(t, http.StatusServiceUnavailable,
		doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/resolve", ResolveRequest{Aliases: []string{"x"}}).Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/runs", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/catalog/import", nil).Code)
	assert.Equal(t, http.StatusOK,
		doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/health", nil).Code)
}

func TestRunEndpoints(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{})
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/v1/resolve", ResolveRequest{Aliases: []string{"a", "b"}})
	require.Equal(t, http.StatusOK, w.Code)
	var resolved ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))

	w = doJSON(t, h, http.MethodGet, "/api/v1/runs/"+resolved.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var run struct {
		Items []models.StoredResolution `json:"items"`
		Count int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 2, run.Count)
	assert.Equal(t, resolved.RunID, run.Items[0].RunID)

	w = doJSON(t, h, http.MethodGet, "/api/v1/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []database.RunSummary `json:"items"`
		Limit int                   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 2, list.Items[0].Total)
	assert.Equal(t, 5, list.Limit)

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/api/v1/runs/"+ulid.Make().String(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, h, http.MethodGet, "/api/v1/runs/not-a-run", nil).Code)
}

func TestCatalogImportEndpoint(t *testing.T) {
	srv, _, store := setupTestServer(t, Config{})

	body := "cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*\ngarbage\ncpe:2.3:a:mozilla:firefox:100.0:*:*:*:*:*:*:*\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data database.ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Inserted)
	assert.Equal(t, 1, resp.Data.Invalid)

	n, err := store.CountCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func TestCatalogImportInvalidatesIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := setupTestStore(t)
	inv := &countingInvalidator{}
	srv := NewServer(Deps{Catalog: store, Index: inv, Mode: "indexed"}, Config{})

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/import", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Code
	}
	line := "cpe:2.3:a:rarlab:winrar:6.02:*:*:*:*:*:*:*\n"
	require.Equal(t, http.StatusOK, post(line))
	assert.Equal(t, 1, inv.calls)

	// nothing new inserted, nothing to reload
	require.Equal(t, http.StatusOK, post(line))
	assert.Equal(t, 1, inv.calls)
}

func TestCatalogImportBodyLimit(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{JSONBodyLimit: 16, UploadBodyLimit: 32})

	body := strings.Repeat("cpe:2.3:a:v:p:1:*:*:*:*:*:*:*\n", 4)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/import", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAPITokenRequired(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{APIToken: "s3cret"})
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, h, http.MethodPost, "/api/v1/resolve", ResolveRequest{Aliases: []string{"x"}}).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve", strings.NewReader(`{"aliases":["x"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{RequestsPerMinute: 1})
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/api/v1/runs", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, h, http.MethodGet, "/api/v1/runs", nil).Code)
	// health is outside the limited group
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/api/v1/health", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{})
	doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/health", nil)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cpe_resolver_http_requests_total")
}

func TestStartAndShutdown(t *testing.T) {
	srv, _, _ := setupTestServer(t, Config{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
