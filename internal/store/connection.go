package store

import (
	"context"
	"errors"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/google/uuid"
)

// Connection handshake states

func (s *Store) CreateConnectionState(ctx context.Context, st *models.ConnectionState) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(st).Error
}

func (s *Store) GetConnectionStateByHash(ctx context.Context, hash string) (*models.ConnectionState, error) {
	var st models.ConnectionState
	if err := s.db.WithContext(ctx).Where("state_hash = ?", hash).First(&st).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

// DeleteConnectionState consumes a state row. Exactly one caller wins; the
// others get ErrStateAlreadyConsumed.
func (s *Store) DeleteConnectionState(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.ConnectionState{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStateAlreadyConsumed
	}
	return nil
}

func (s *Store) DeleteExpiredConnectionStates(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.ConnectionState{})
	return result.RowsAffected, result.Error
}

// Git connections

// GetConnection returns the project's connection for a provider regardless of status.
func (s *Store) GetConnection(ctx context.Context, projectID, provider string) (*models.GitConnection, error) {
	var c models.GitConnection
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND provider = ?", projectID, provider).
		Order("updated_at DESC").
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetConnectionByID(ctx context.Context, id string) (*models.GitConnection, error) {
	var c models.GitConnection
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SaveConnection updates the existing (project, provider) row in place or
// inserts a new one. The caller's struct receives the persisted ID.
func (s *Store) SaveConnection(ctx context.Context, c *models.GitConnection) error {
	existing, err := s.GetConnection(ctx, c.ProjectID, c.Provider)
	switch {
	case err == nil:
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		return s.db.WithContext(ctx).Save(c).Error
	case errors.Is(err, ErrRecordNotFound):
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		return s.db.WithContext(ctx).Create(c).Error
	default:
		return err
	}
}

func (s *Store) UpdateConnection(ctx context.Context, c *models.GitConnection) error {
	return s.db.WithContext(ctx).Save(c).Error
}

// TouchConnection records a successful use of the stored credential.
func (s *Store) TouchConnection(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.GitConnection{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (s *Store) ListConnectionsByInstallation(ctx context.Context, installationID int64) ([]models.GitConnection, error) {
	var conns []models.GitConnection
	err := s.db.WithContext(ctx).
		Where("installation_id = ?", installationID).
		Find(&conns).Error
	return conns, err
}

// CountConnectionsByStatus feeds the connection gauges.
func (s *Store) CountConnectionsByStatus(ctx context.Context) (map[models.ConnectionStatus]int64, error) {
	var rows []struct {
		Status models.ConnectionStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.GitConnection{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ConnectionStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
