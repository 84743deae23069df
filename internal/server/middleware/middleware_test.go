package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "ok")
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthKeySources(t *testing.T) {
	h := Auth("k1", "/api/health")(ok)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/cycles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	assert.JSONEq(t, `{"error":"missing api key"}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/ws?api_key=k1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The query parameter is only honoured for the WebSocket handshake.
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/cycles?api_key=k1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	req.Header.Set("Authorization", "bearer k1")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	req.Header.Set("X-API-Key", "k2")
	rec = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid api key"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code)
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	h := Auth("")(ok)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/cycles", nil)).Code)
}

func TestCORSWildcard(t *testing.T) {
	h := CORS([]string{"*"})(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/report/latest", nil)
	req.Header.Set("Origin", "https://dash.example")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	// A bare OPTIONS without a preflight header reaches the next handler.
	rec = serve(h, httptest.NewRequest(http.MethodOptions, "/api/report/latest", nil))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORSOriginMatchIgnoresCaseAndSlash(t *testing.T) {
	h := CORS([]string{"http://LocalHost:3000/"})(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", serve(h, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, requestLevel("/api/health", http.StatusOK))
	assert.Equal(t, slog.LevelDebug, requestLevel("/metrics", http.StatusOK))
	assert.Equal(t, slog.LevelInfo, requestLevel("/api/cycles", http.StatusOK))
	assert.Equal(t, slog.LevelWarn, requestLevel("/api/report/latest", http.StatusNotFound))
	assert.Equal(t, slog.LevelError, requestLevel("/api/health", http.StatusServiceUnavailable))
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	assert.Equal(t, http.StatusOK, rec.status())

	n, err := rec.Write([]byte("hello"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rec.bytes)
	assert.Equal(t, http.StatusOK, rec.status(), "first status wins")

	_, _, err = rec.Hijack()
	require.Error(t, err)
}

func TestLoggingPassesResponseThrough(t *testing.T) {
	h := Logging(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "queued")
	}))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/cycles", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", rec.Body.String())
}
