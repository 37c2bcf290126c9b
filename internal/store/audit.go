package store

import (
	"context"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) CreateAuditLogBatch(ctx context.Context, entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

// GetAuditLogsPaginated returns newest-first audit logs matching filters.
func (s *Store) GetAuditLogsPaginated(
	ctx context.Context,
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	if filters.Search == "" {
		filters.Search = params.Search
	}
	q := applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), filters)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.AuditLog
	err := q.Order("event_time DESC").
		Offset(params.offset()).
		Limit(params.PageSize).
		Find(&logs).Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

func applyAuditFilters(q *gorm.DB, f AuditLogFilters) *gorm.DB {
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.ActorUserID != "" {
		q = q.Where("actor_user_id = ?", f.ActorUserID)
	}
	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Success != nil {
		q = q.Where("success = ?", *f.Success)
	}
	if !f.StartTime.IsZero() {
		q = q.Where("event_time >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		q = q.Where("event_time <= ?", f.EndTime)
	}
	if f.ActorIP != "" {
		q = q.Where("actor_ip = ?", f.ActorIP)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("action LIKE ? OR resource_name LIKE ?", like, like)
	}
	return q
}

func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

func (s *Store) GetAuditLogStats(ctx context.Context, projectID string, startTime, endTime time.Time) (AuditLogStats, error) {
	stats := AuditLogStats{
		EventsByType:     make(map[models.EventType]int64),
		EventsBySeverity: make(map[models.EventSeverity]int64),
	}
	base := func() *gorm.DB {
		return applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), AuditLogFilters{
			ProjectID: projectID,
			StartTime: startTime,
			EndTime:   endTime,
		})
	}

	if err := base().Count(&stats.TotalEvents).Error; err != nil {
		return stats, err
	}
	if err := base().Where("success = ?", true).Count(&stats.SuccessCount).Error; err != nil {
		return stats, err
	}
	stats.FailureCount = stats.TotalEvents - stats.SuccessCount

	var byType []struct {
		EventType models.EventType
		Count     int64
	}
	if err := base().Select("event_type, COUNT(*) as count").Group("event_type").Scan(&byType).Error; err != nil {
		return stats, err
	}
	for _, r := range byType {
		stats.EventsByType[r.EventType] = r.Count
	}

	var bySeverity []struct {
		Severity models.EventSeverity
		Count    int64
	}
	if err := base().Select("severity, COUNT(*) as count").Group("severity").Scan(&bySeverity).Error; err != nil {
		return stats, err
	}
	for _, r := range bySeverity {
		stats.EventsBySeverity[r.Severity] = r.Count
	}

	return stats, nil
}
