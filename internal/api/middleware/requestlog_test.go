package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoggedServer builds an echo server with RequestLog then Recovery, the
// order serve uses, and logs to buf.
func newLoggedServer(buf *bytes.Buffer) *echo.Echo {
	log := slog.New(slog.NewTextHandler(buf, nil))

	e := echo.New()
	e.Use(RequestLog(log), Recovery(log))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/readyz", func(c echo.Context) error { return c.NoContent(http.StatusServiceUnavailable) })
	e.GET("/api/v1/status", func(c echo.Context) error {
		return c.String(http.StatusOK, RequestID(c))
	})
	e.POST("/api/v1/check", func(c echo.Context) error { return c.NoContent(http.StatusBadGateway) })
	e.GET("/boom", func(echo.Context) error { panic("picker exploded") })

	return e
}

func do(e *echo.Echo, method, path, reqID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if reqID != "" {
		req.Header.Set(requestIDHeader, reqID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestLog_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		method    string
		path      string
		wantLevel string
		wantCode  int
	}{
		{name: "status read", method: http.MethodGet, path: "/api/v1/status", wantLevel: "INFO", wantCode: 200},
		{name: "failed check", method: http.MethodPost, path: "/api/v1/check", wantLevel: "ERROR", wantCode: 502},
		{name: "not ready", method: http.MethodGet, path: "/readyz", wantLevel: "WARN", wantCode: 503},
		{name: "first liveness", method: http.MethodGet, path: "/healthz", wantLevel: "INFO", wantCode: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			rec := do(newLoggedServer(&buf), tt.method, tt.path, "")

			require.Equal(t, tt.wantCode, rec.Code)
			out := buf.String()
			assert.Contains(t, out, "level="+tt.wantLevel)
			assert.Contains(t, out, "path="+tt.path)
			assert.Contains(t, out, "duration_ms=")
		})
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provided string
	}{
		{name: "caller supplied", provided: "trigger-from-cron-7"},
		{name: "generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			rec := do(newLoggedServer(&buf), http.MethodGet, "/api/v1/status", tt.provided)

			headerID := rec.Header().Get(requestIDHeader)
			require.NotEmpty(t, headerID)
			if tt.provided != "" {
				assert.Equal(t, tt.provided, headerID)
			}

			// The handler echoes RequestID(c); it must match the header and log.
			assert.Equal(t, headerID, rec.Body.String())
			assert.Contains(t, buf.String(), "request_id="+headerID)
		})
	}
}

func TestRequestID_EmptyWithoutMiddleware(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), httptest.NewRecorder())
	assert.Empty(t, RequestID(c))
}

func TestRequestLog_PanicCarriesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := do(newLoggedServer(&buf), http.MethodGet, "/boom", "req-boom-1")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-boom-1", rec.Header().Get(requestIDHeader))

	var body panicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-boom-1", body.RequestID)

	out := buf.String()
	assert.Contains(t, out, "panic recovered")
	assert.Equal(t, 2, strings.Count(out, "request_id=req-boom-1"),
		"both the panic and the access log line carry the id")
	assert.Contains(t, out, "status=500")
}

func TestRequestLog_HealthSuccessLoggedOncePerPath(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLog(log))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/readyz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for range 3 {
		do(e, http.MethodGet, "/healthz", "")
		do(e, http.MethodGet, "/readyz", "")
	}

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "path=/healthz"))
	assert.Equal(t, 1, strings.Count(out, "path=/readyz"))
}

func TestRequestLog_ReadinessFailuresAlwaysLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newLoggedServer(&buf)

	for range 3 {
		do(e, http.MethodGet, "/readyz", "")
	}

	assert.Equal(t, 3, strings.Count(buf.String(), "path=/readyz"))
}

func TestRequestLog_APIRequestsAlwaysLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newLoggedServer(&buf)

	for range 2 {
		do(e, http.MethodGet, "/api/v1/status", "")
	}

	assert.Equal(t, 2, strings.Count(buf.String(), "path=/api/v1/status"))
}
