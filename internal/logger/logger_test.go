package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestSanitizeKVs(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want any
	}{
		{"access token", "access_token", "gho_abc", redacted},
		{"client secret", "client_secret", "s3cr3t", redacted},
		{"authorization header", "Authorization", "Bearer x", redacted},
		{"oauth code", "code", "abc123", redacted},
		{"oauth state", "state", "xyz", redacted},
		{"status code untouched", "status_code", 500, 500},
		{"project id untouched", "project_id", "p-1", "p-1"},
		{"jwt looking value", "value", "eyJhbGciOiJIUzI1.eyJzdWIiOiIxMjM0.sig", redacted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := sanitizeKVs([]any{tt.key, tt.val})
			assert.Equal(t, tt.want, out[1])
		})
	}
}

func TestSanitizeKVs_NestedMap(t *testing.T) {
	out := sanitizeKVs([]any{"details", map[string]any{"token": "t", "repo": "acme/api"}})
	nested := out[1].(map[string]any)
	assert.Equal(t, redacted, nested["token"])
	assert.Equal(t, "acme/api", nested["repo"])
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]any{"project_id", "p-1", "dangling"})
	assert.Equal(t, []any{"project_id", "p-1", "dangling"}, out)
}

func TestLogger_RedactsFields(t *testing.T) {
	log, logs := observedLogger()

	log.With("access_token", "gho_secret").Info("connected", "project_id", "p-1")

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, redacted, ctx["access_token"])
	assert.Equal(t, "p-1", ctx["project_id"])
}
