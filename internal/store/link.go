package store

import (
	"context"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/google/uuid"
)

// LinkKey identifies a link for deduplication. Nil fields place no constraint
// on the match.
type LinkKey struct {
	TarefaID   string
	Provider   string
	BranchName *string
	CommitSHA  *string
	PRNumber   *int
}

// FindLink returns the first link matching key, or ErrRecordNotFound.
func (s *Store) FindLink(ctx context.Context, key LinkKey) (*models.TarefaGitLink, error) {
	q := s.db.WithContext(ctx).Where("tarefa_id = ? AND provider = ?", key.TarefaID, key.Provider)
	if key.BranchName != nil {
		q = q.Where("branch_name = ?", *key.BranchName)
	}
	if key.CommitSHA != nil {
		q = q.Where("commit_sha = ?", *key.CommitSHA)
	}
	if key.PRNumber != nil {
		q = q.Where("pr_number = ?", *key.PRNumber)
	}

	var link models.TarefaGitLink
	if err := q.Order("created_at ASC").First(&link).Error; err != nil {
		return nil, notFound(err)
	}
	return &link, nil
}

func (s *Store) CreateLink(ctx context.Context, link *models.TarefaGitLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(link).Error
}

func (s *Store) ListLinksByTarefa(ctx context.Context, tarefaID string) ([]models.TarefaGitLink, error) {
	var links []models.TarefaGitLink
	err := s.db.WithContext(ctx).
		Where("tarefa_id = ?", tarefaID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// DeleteLink removes a link owned by the tarefa; ErrRecordNotFound otherwise.
func (s *Store) DeleteLink(ctx context.Context, tarefaID, linkID string) error {
	result := s.db.WithContext(ctx).
		Where("tarefa_id = ? AND id = ?", tarefaID, linkID).
		Delete(&models.TarefaGitLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
