package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string { return c.name }
func (c stubChecker) Check(context.Context) error { return c.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "nhl-picks", Version: "1.2.3", Commit: "abc"})
	h := s.Handler()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "nhl-picks", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.LastRun)

	rec = get(t, h, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyAfterRun(t *testing.T) {
	s := NewServer(Config{ServiceName: "nhl-picks"})
	h := s.Handler()

	rec := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "not_ready", resp.Checks["service"])

	ran := time.Date(2024, 10, 15, 16, 0, 0, 0, time.UTC)
	s.MarkRun(ran)
	assert.True(t, s.IsReady())

	rec = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(get(t, h, "/health").Body.Bytes(), &health))
	assert.Equal(t, "2024-10-15T16:00:00Z", health.LastRun)
}

func TestReadyCheckers(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "nhl-picks",
		Checkers: []Checker{
			stubChecker{name: "output_dir"},
			stubChecker{name: "source", err: errors.New("unreachable")},
		},
	})
	s.SetReady(true)

	rec := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Checks["output_dir"])
	assert.Equal(t, "error: unreachable", resp.Checks["source"])
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nhl_picks_up 1\n"))
	})

	s := NewServer(Config{Metrics: metrics, MetricsPath: "/prom"})
	rec := get(t, s.Handler(), "/prom")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nhl_picks_up 1")

	s = NewServer(Config{})
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	s := NewServer(Config{})
	assert.NoError(t, s.Shutdown())
	assert.Equal(t, 9090, s.port)
}
