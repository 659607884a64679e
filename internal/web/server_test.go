package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetnorm/internal/config"
	"github.com/JonMunkholm/sheetnorm/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Upload:     config.UploadConfig{MaxFileSize: 1 << 20, MaxFiles: 5, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Processing: config.ProcessingConfig{DefaultTimezone: core.DefaultTimezone, SampleSize: 5, NormalizeHeaders: true},
		Session:    config.SessionConfig{MaxSessions: 4},
		Rate:       config.RateLimitConfig{Enabled: false},
		Logging:    config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := core.NewService(core.ServiceConfig{
		MaxFileSize:       cfg.Upload.MaxFileSize,
		MaxFiles:          cfg.Upload.MaxFiles,
		MaxConcurrentRuns: cfg.Upload.MaxConcurrent,
		MaxWaitTime:       cfg.Upload.MaxWaitTime,
		MaxSessions:       cfg.Session.MaxSessions,
		DefaultTimezone:   cfg.Processing.DefaultTimezone,
		SampleSize:        cfg.Processing.SampleSize,
		Registerer:        reg,
	})
	require.NoError(t, err)

	s := NewServer(svc, cfg, reg)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return s
}

type upload struct {
	name string
	body string
}

func runRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) core.Session {
	t.Helper()
	var session core.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session), rec.Body.String())
	return session
}

func TestCreateRun_EndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, runRequest(t, []upload{
		{name: "jan.csv", body: "Order ID,Created At\n1,2024-01-05 10:30\n2,-\n"},
		{name: "feb.csv", body: "Order ID,Created At\n3,2024-02-01 08:00\n"},
	}, map[string]string{"consolidate": "true"}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeSession(t, rec)
	require.Len(t, session.Files, 2)
	require.NotNil(t, session.Consolidated)
	assert.Equal(t, 3, session.Consolidated.Stats.RowCount)
	assert.Equal(t, core.DefaultTimezone, session.Options.Timezone)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/current", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ID, decodeSession(t, rec).ID)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+session.ID+"/files/0/csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `"jan.csv"`)
	assert.Equal(t, "order_id,created_at\n1,2024-01-05 02:30:00+0000\n2,NULL\n", rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+session.ID+"/consolidated.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), core.ConsolidatedFileName)
	assert.Equal(t, 4, strings.Count(rec.Body.String(), "\n"))
}

func TestCreateRun_HeaderMismatchReturnsPartialSession(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, runRequest(t, []upload{
		{name: "a.csv", body: "x,y\n1,2\n"},
		{name: "b.csv", body: "x,z\n1,2\n"},
	}, map[string]string{"consolidate": "true"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	session := decodeSession(t, rec)
	assert.Len(t, session.Files, 1)
	require.NotNil(t, session.Error)
	assert.Equal(t, "HDR002", session.Error.Code)
	assert.Contains(t, session.Error.Detail, "b.csv")
}

func TestCreateRun_BadRequests(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		status int
		code   string
	}{
		{name: "no files", status: http.StatusBadRequest, code: "FILE004"},
		{
			name:   "unknown timezone",
			files:  []upload{{name: "a.csv", body: "x\n1\n"}},
			fields: map[string]string{"timezone": "Atlantis/Capital"},
			status: http.StatusBadRequest,
			code:   "RUN002",
		},
		{
			name:   "bad boolean",
			files:  []upload{{name: "a.csv", body: "x\n1\n"}},
			fields: map[string]string{"consolidate": "maybe"},
			status: http.StatusBadRequest,
			code:   "RUN002",
		},
		{
			name:   "too many files",
			files:  make([]upload, 6),
			status: http.StatusBadRequest,
			code:   "RUN002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := tt.files
			for i := range files {
				if files[i].name == "" {
					files[i] = upload{name: fmt.Sprintf("%d.csv", i), body: "x\n1\n"}
				}
			}

			rec := serve(s, runRequest(t, files, tt.fields))

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, path := range []string{
		"/api/runs/current",
		"/api/runs/nope",
		"/api/runs/nope/files/0/csv",
		"/api/runs/nope/consolidated.csv",
	} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestDownload_NoConsolidatedOutput(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, runRequest(t, []upload{{name: "a.csv", body: "x\n1\n"}}, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeSession(t, rec).ID

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/consolidated.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/files/x/csv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/files/3/csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Runs.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	serve(s, runRequest(t, []upload{{name: "a.csv", body: "x\n1\n"}}, nil))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "sheetnorm_files_processed_total 1")
	assert.Contains(t, body, `sheetnorm_http_requests_total{method="POST",route="/api/runs",status="201"} 1`)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/current", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/current", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = serve(s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per client")

	wait := rl.retryAfter("1.1.1.1")
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 30*time.Second, "tokens refill evenly across the window")
}

func TestRateLimitedRequest(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, UploadLimit: 1}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}
