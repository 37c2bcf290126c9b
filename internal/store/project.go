package store

import (
	"context"
	"strings"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpsertMember sets a user's role in a project, replacing any previous role.
func (s *Store) UpsertMember(ctx context.Context, m *models.ProjectMember) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(m).Error
}

// GetMember returns the membership row, or ErrRecordNotFound for non-members.
func (s *Store) GetMember(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) CreateTarefa(ctx context.Context, t *models.Tarefa) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) GetTarefa(ctx context.Context, projectID, id string) (*models.Tarefa, error) {
	var t models.Tarefa
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetTarefaByKey matches keys case-insensitively within a project.
func (s *Store) GetTarefaByKey(ctx context.Context, projectID, key string) (*models.Tarefa, error) {
	var t models.Tarefa
	err := s.db.WithContext(ctx).
		Where(`project_id = ? AND UPPER("key") = ?`, projectID, strings.ToUpper(key)).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
