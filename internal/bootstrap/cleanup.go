package bootstrap

import (
	"context"
	"fmt"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/services"
)

// Cleanup runs one pass of the maintenance jobs the server schedules:
// expired handshake states and audit entries past retention.
func Cleanup(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := initializeDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	recorder := metrics.NewNoopMetrics()
	audit := services.NewAuditService(db, log, false, 0)
	perms := services.NewPermissionService(db)
	conns := services.NewConnectionService(db, perms, audit, nil, nil, nil, recorder, log)

	purged, err := conns.PurgeExpiredStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge connection states: %w", err)
	}
	log.Info("purged expired connection states", "count", purged)

	if cfg.AuditLogRetention > 0 {
		deleted, err := audit.CleanupOldLogs(ctx, cfg.AuditLogRetention)
		if err != nil {
			return fmt.Errorf("failed to cleanup audit logs: %w", err)
		}
		log.Info("cleaned up old audit logs", "count", deleted)
	}
	return nil
}
