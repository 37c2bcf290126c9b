package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	m := Init(true)
	require.NotNil(t, m)

	metrics, ok := m.(*Metrics)
	require.True(t, ok, "Init(true) should return *Metrics")
	assert.NotNil(t, metrics.ConnectionCallbacksTotal)
	assert.NotNil(t, metrics.GitHubAPICallsTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)

	assert.Same(t, metrics, Init(true), "registration happens once")
	assert.Same(t, metrics, GetMetrics())
}

func TestInitNoop(t *testing.T) {
	m := Init(false)
	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "Init(false) should return *NoopMetrics")

	// Must be safe to call
	m.RecordConnectionCallback("oauth", "success")
	m.RecordGitHubAPICall("list_repos", true, time.Millisecond)
	m.SetConnectionsCount("active", 3)
}

func TestRecorders(t *testing.T) {
	m := Init(true).(*Metrics)

	before := testutil.ToFloat64(m.ConnectionCallbacksTotal.WithLabelValues("app", "invalid_state"))
	m.RecordConnectionCallback("app", "invalid_state")
	assert.InDelta(t, before+1, testutil.ToFloat64(m.ConnectionCallbacksTotal.WithLabelValues("app", "invalid_state")), 0.001)

	before = testutil.ToFloat64(m.GitHubAPIRetriesTotal.WithLabelValues("merge_pull_request"))
	m.RecordGitHubRetry("merge_pull_request")
	assert.InDelta(t, before+1, testutil.ToFloat64(m.GitHubAPIRetriesTotal.WithLabelValues("merge_pull_request")), 0.001)

	before = testutil.ToFloat64(m.AutoLinksTotal.WithLabelValues("commit"))
	m.RecordAutoLinks("commit", 0)
	m.RecordAutoLinks("commit", 2)
	assert.InDelta(t, before+2, testutil.ToFloat64(m.AutoLinksTotal.WithLabelValues("commit")), 0.001)

	m.RecordGitHubAPICall("list_branches", false, 20*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.GitHubAPICallsTotal.WithLabelValues("list_branches", "error")), 1.0)
}

type fakeCounter struct {
	counts map[models.ConnectionStatus]int64
	err    error
}

func (f fakeCounter) CountConnectionsByStatus(context.Context) (map[models.ConnectionStatus]int64, error) {
	return f.counts, f.err
}

func TestGaugeUpdater(t *testing.T) {
	m := Init(true).(*Metrics)

	u := NewGaugeUpdater(fakeCounter{counts: map[models.ConnectionStatus]int64{
		models.ConnectionActive: 4,
		models.ConnectionError:  1,
	}}, m)
	require.NoError(t, u.Update(context.Background()))

	assert.InDelta(t, 4, testutil.ToFloat64(m.Connections.WithLabelValues("active")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connections.WithLabelValues("error")), 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Connections.WithLabelValues("revoked")), 0.001)

	failing := NewGaugeUpdater(fakeCounter{err: errors.New("db down")}, m)
	assert.Error(t, failing.Update(context.Background()))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := Init(true).(*Metrics)

	r := gin.New()
	r.Use(HTTPMetricsMiddleware(m))
	r.GET("/api/v1/projects/:projectID/git/connection", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/projects/:projectID/git/connection", "200"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/api/v1/projects/p1/git/connection", nil)
	r.ServeHTTP(w, req)

	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/projects/:projectID/git/connection", "200"))
	assert.InDelta(t, before+1, after, 0.001)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		fullPath string
		expected string
	}{
		{"empty path", "", "unknown"},
		{"health check", "/health", "/health"},
		{"parameterized", "/api/v1/projects/:projectID/audit", "/api/v1/projects/:projectID/audit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizePath(tt.fullPath))
		})
	}
}
