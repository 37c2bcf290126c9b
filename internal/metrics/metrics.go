package metrics

import (
	"sync"

	"github.com/Giuseph66/neurelix-nexus/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is re-exported so callers only import this package.
type Recorder = core.Recorder

var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Connection handshake
	ConnectionStartsTotal    *prometheus.CounterVec
	ConnectionCallbacksTotal *prometheus.CounterVec
	ConnectionRevokesTotal   prometheus.Counter
	Connections              *prometheus.GaugeVec

	// GitHub API
	GitHubAPICallsTotal   *prometheus.CounterVec
	GitHubAPIRetriesTotal *prometheus.CounterVec
	GitHubAPIDuration     *prometheus.HistogramVec

	// Links and webhooks
	AutoLinksTotal *prometheus.CounterVec
	WebhooksTotal  *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics when enabled and a no-op recorder
// otherwise. Registration happens once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		ConnectionStartsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "git_connection_starts_total",
				Help: "Handshakes started, by flow",
			},
			[]string{"flow"},
		),
		ConnectionCallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "git_connection_callbacks_total",
				Help: "Provider callbacks handled, by flow and result",
			},
			[]string{"flow", "result"},
		),
		ConnectionRevokesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "git_connection_revokes_total",
				Help: "Connections revoked",
			},
		),
		Connections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "git_connections",
				Help: "Git connections by status",
			},
			[]string{"status"},
		),

		GitHubAPICallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_calls_total",
				Help: "GitHub API calls, by operation and result",
			},
			[]string{"operation", "result"},
		),
		GitHubAPIRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_retries_total",
				Help: "GitHub API calls retried after a rate-limit response",
			},
			[]string{"operation"},
		),
		GitHubAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "github_api_duration_seconds",
				Help:    "GitHub API call latency, retries included",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		AutoLinksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tarefa_autolinks_total",
				Help: "Tarefa links created by key detection, by entity",
			},
			[]string{"entity"},
		),
		WebhooksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_webhooks_total",
				Help: "Webhook deliveries, by event and result",
			},
			[]string{"event", "result"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}
}

// GetMetrics returns the registered Prometheus metrics, or nil before Init(true).
func GetMetrics() *Metrics {
	return defaultMetrics
}
