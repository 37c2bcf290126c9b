package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Connection handshake; flow is "oauth" or "app"
	RecordConnectionStarted(flow string)
	RecordConnectionCallback(flow, result string)
	RecordConnectionRevoked()

	// GitHub API
	RecordGitHubAPICall(operation string, success bool, duration time.Duration)
	RecordGitHubRetry(operation string)

	// Mirrors and links
	RecordAutoLinks(entity string, created int)
	RecordWebhook(event, result string)

	// Gauge Setters (for periodic updates)
	SetConnectionsCount(status string, count int64)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}
