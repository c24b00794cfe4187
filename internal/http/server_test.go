package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "receipts/internal/log"
	"receipts/internal/middleware/ratelimit"
	"receipts/internal/services"
	"receipts/internal/spending"
	"receipts/internal/storage"
)

type testEnv struct {
	t    *testing.T
	repo *storage.SQLiteRepository
	srv  *Server
	ts   *httptest.Server
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	deps := Deps{
		Repo:      repo,
		UseCases:  services.New(repo, nil),
		Spending:  spending.New(repo, repo.Changes(), spending.WithLocation(time.UTC)),
		Logger:    applog.New(applog.Config{Output: io.Discard}),
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := NewServer("127.0.0.1:0", deps)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})

	return &testEnv{t: t, repo: repo, srv: srv, ts: ts}
}

func (e *testEnv) request(method, path string, body any) *http.Response {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rdr = bytes.NewBufferString(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(e.t, err)
			rdr = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(e.t, err)
	return resp
}

// do sends a request and returns the status and the whole body.
func (e *testEnv) do(method, path string, body any) (int, []byte) {
	e.t.Helper()
	resp := e.request(method, path, body)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

func (e *testEnv) decode(method, path string, body any, wantStatus int, dst any) {
	e.t.Helper()
	status, data := e.do(method, path, body)
	require.Equal(e.t, wantStatus, status, "body: %s", data)
	if dst != nil {
		require.NoError(e.t, json.Unmarshal(data, dst), "body: %s", data)
	}
}

func (e *testEnv) create(path string, body any) int64 {
	e.t.Helper()
	var out idBody
	e.decode(http.MethodPost, path, body, http.StatusCreated, &out)
	require.Positive(e.t, out.ID)
	return out.ID
}

func (e *testEnv) failure(method, path string, body any, wantStatus int) []fieldErrorBody {
	e.t.Helper()
	var out failureBody
	e.decode(method, path, body, wantStatus, &out)
	return out.Errors
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(":0", Deps{})
	assert.Error(t, err)
}

func TestNewServer_RejectsBadProxy(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	defer repo.Close()

	_, err = NewServer(":0", Deps{
		Repo:           repo,
		UseCases:       services.New(repo, nil),
		Spending:       spending.New(repo, repo.Changes()),
		TrustedProxies: []string{"not-a-cidr"},
	})
	assert.Error(t, err)
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(http.MethodGet, "/healthz", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'none'")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var ready map[string]string
	e.decode(http.MethodGet, "/readyz", nil, http.StatusOK, &ready)
	assert.Equal(t, "ready", ready["status"])
}

func TestReadyFailsWhenDatabaseClosed(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.repo.Close())

	status, _ := e.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestRequestIDEchoed(t *testing.T) {
	e := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "client-42")
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "client-42", resp.Header.Get("X-Request-ID"))
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) {
		d.RateLimit = ratelimit.Config{RequestsPerMinute: 2}
	})

	e.create("/api/shops", nameRequest{Name: "A"})
	e.create("/api/shops", nameRequest{Name: "B"})

	resp := e.request(http.MethodPost, "/api/shops", nameRequest{Name: "C"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var shops []shopView
	for i := 0; i < 5; i++ {
		e.decode(http.MethodGet, "/api/shops", nil, http.StatusOK, &shops)
	}
	assert.Len(t, shops, 2)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.do(http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.do(http.MethodPatch, "/api/shops", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestShutdownTwice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.srv.Shutdown(ctx))
	assert.NoError(t, e.srv.Shutdown(ctx))
}
