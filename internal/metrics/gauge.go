package metrics

import (
	"context"

	"github.com/Giuseph66/neurelix-nexus/internal/models"
)

type connectionCounter interface {
	CountConnectionsByStatus(ctx context.Context) (map[models.ConnectionStatus]int64, error)
}

var gaugeStatuses = []models.ConnectionStatus{
	models.ConnectionActive,
	models.ConnectionError,
	models.ConnectionRevoked,
}

// GaugeUpdater refreshes the git_connections gauge from the database.
type GaugeUpdater struct {
	store    connectionCounter
	recorder Recorder
}

func NewGaugeUpdater(store connectionCounter, recorder Recorder) *GaugeUpdater {
	return &GaugeUpdater{store: store, recorder: recorder}
}

// Update sets every status, zero included, so stale series drop back to 0.
func (g *GaugeUpdater) Update(ctx context.Context) error {
	counts, err := g.store.CountConnectionsByStatus(ctx)
	if err != nil {
		g.recorder.RecordDatabaseQueryError("count_connections")
		return err
	}
	for _, status := range gaugeStatuses {
		g.recorder.SetConnectionsCount(string(status), counts[status])
	}
	return nil
}
