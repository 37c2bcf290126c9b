package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		path := normalizePath(c.FullPath())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// normalizePath keeps label cardinality bounded by using the route pattern
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func (m *Metrics) RecordConnectionStarted(flow string) {
	m.ConnectionStartsTotal.WithLabelValues(flow).Inc()
}

// RecordConnectionCallback counts a callback outcome; result is "success",
// "invalid_state", "denied" or "error".
func (m *Metrics) RecordConnectionCallback(flow, result string) {
	m.ConnectionCallbacksTotal.WithLabelValues(flow, result).Inc()
}

func (m *Metrics) RecordConnectionRevoked() {
	m.ConnectionRevokesTotal.Inc()
}

func (m *Metrics) RecordGitHubAPICall(operation string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.GitHubAPICallsTotal.WithLabelValues(operation, result).Inc()
	m.GitHubAPIDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordGitHubRetry(operation string) {
	m.GitHubAPIRetriesTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordAutoLinks(entity string, created int) {
	if created > 0 {
		m.AutoLinksTotal.WithLabelValues(entity).Add(float64(created))
	}
}

func (m *Metrics) RecordWebhook(event, result string) {
	m.WebhooksTotal.WithLabelValues(event, result).Inc()
}

func (m *Metrics) SetConnectionsCount(status string, count int64) {
	m.Connections.WithLabelValues(status).Set(float64(count))
}

func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
