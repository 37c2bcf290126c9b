package metrics

import "time"

// NoopMetrics records nothing; used when METRICS_ENABLED=false.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordConnectionStarted(flow string)                                        {}
func (n *NoopMetrics) RecordConnectionCallback(flow, result string)                               {}
func (n *NoopMetrics) RecordConnectionRevoked()                                                   {}
func (n *NoopMetrics) RecordGitHubAPICall(operation string, success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordGitHubRetry(operation string)                                         {}
func (n *NoopMetrics) RecordAutoLinks(entity string, created int)                                 {}
func (n *NoopMetrics) RecordWebhook(event, result string)                                         {}
func (n *NoopMetrics) SetConnectionsCount(status string, count int64)                             {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                                  {}
