package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/amul-stock-tracker/internal/api/handlers"
	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	"github.com/donaldgifford/amul-stock-tracker/pkg/logger"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) RunCheck(context.Context) (*domain.RunResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RunResult{RunID: "run-1", Pincode: "411001", Listed: 2, Available: 1}, nil
}

func (*fakeRunner) Pincode() string               { return "411001" }
func (*fakeRunner) Targets() domain.TargetSet     { return domain.ParseTargets("paneer-400g") }
func (*fakeRunner) LastResult() *domain.RunResult { return nil }

func newTestServer(t *testing.T, r runner) http.Handler {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stock_status.json")
	st := store.NewFileStore(path)
	require.NoError(t, st.Save(context.Background(), domain.StatusMap{
		"paneer-400g": domain.StatusAvailable,
		"lassi-200ml": domain.StatusUnavailable,
	}))

	cfg := config.Default()
	cfg.Server.TriggerRate = time.Hour
	cfg.Server.TriggerBurst = 1

	return newServer(cfg, r, st, logger.Discard())
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeRunner{})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "readyz", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "picker page", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<html"},
		{name: "status json", method: http.MethodGet, path: "/status.json", wantStatus: http.StatusOK, wantBody: `"paneer-400g": "available"`},
		{name: "status api", method: http.MethodGet, path: "/api/v1/status", wantStatus: http.StatusOK, wantBody: `"pincode":"411001"`},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "ast_"},
		{name: "openapi", method: http.MethodGet, path: "/openapi.json", wantStatus: http.StatusOK, wantBody: "/api/v1/check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, strings.ToLower(rec.Body.String()), strings.ToLower(tt.wantBody))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestServer_StatusAPI(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.StatusBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Available)
	assert.Equal(t, []string{"paneer-400g"}, body.Targets)
	require.Len(t, body.Products, 2)
	assert.Equal(t, "lassi-200ml", body.Products[0].ID)
	assert.False(t, body.Products[0].Targeted)
	assert.True(t, body.Products[1].Targeted)
}

func TestServer_TriggerIsThrottled(t *testing.T) {
	t.Parallel()

	fr := &fakeRunner{}
	srv := newTestServer(t, fr)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", http.NoBody))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, int32(1), fr.calls.Load())
}

func TestServer_TriggerFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeRunner{err: errors.New("storefront returned 503")})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", http.NoBody))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront returned 503")
}
