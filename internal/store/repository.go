package store

import (
	"context"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// UpsertRepository inserts or refreshes a mirrored repository keyed by
// (project, provider, external_id) and loads the persisted row back into r.
// The selected flag is never touched by a refresh.
func (s *Store) UpsertRepository(ctx context.Context, r *models.Repository) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "provider"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"connection_id", "owner", "name", "full_name", "default_branch",
			"private", "html_url", "last_synced_at", "updated_at",
		}),
	}).Create(r).Error
	if err != nil {
		return err
	}

	// r still carries the generated ID when the row already existed
	var stored models.Repository
	err = s.db.WithContext(ctx).
		Where("project_id = ? AND provider = ? AND external_id = ?", r.ProjectID, r.Provider, r.ExternalID).
		First(&stored).Error
	if err != nil {
		return err
	}
	*r = stored
	return nil
}

func (s *Store) ListRepositories(ctx context.Context, projectID string) ([]models.Repository, error) {
	var repos []models.Repository
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("full_name ASC").
		Find(&repos).Error
	return repos, err
}

func (s *Store) GetRepository(ctx context.Context, projectID, id string) (*models.Repository, error) {
	var r models.Repository
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// FindRepositoriesByExternalID returns every project's mirror of a provider repository.
func (s *Store) FindRepositoriesByExternalID(ctx context.Context, provider string, externalID int64) ([]models.Repository, error) {
	var repos []models.Repository
	err := s.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		Find(&repos).Error
	return repos, err
}

func (s *Store) SetRepositorySelected(ctx context.Context, projectID, id string, selected bool) (*models.Repository, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Repository{}).
		Where("project_id = ? AND id = ?", projectID, id).
		Update("selected", selected)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.GetRepository(ctx, projectID, id)
}

// ClearSelection unselects every repository reached through a connection.
func (s *Store) ClearSelection(ctx context.Context, connectionID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Repository{}).
		Where("connection_id = ? AND selected = ?", connectionID, true).
		Update("selected", false)
	return result.RowsAffected, result.Error
}

// Branches

func (s *Store) UpsertBranch(ctx context.Context, b *models.Branch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"head_sha", "protected", "last_synced_at", "updated_at"}),
	}).Create(b).Error
}

// InsertBranchIfMissing records b unless the branch is already mirrored.
func (s *Store) InsertBranchIfMissing(ctx context.Context, b *models.Branch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(b).Error
}

func (s *Store) DeleteBranch(ctx context.Context, repositoryID, name string) error {
	return s.db.WithContext(ctx).
		Where("repository_id = ? AND name = ?", repositoryID, name).
		Delete(&models.Branch{}).Error
}

func (s *Store) ListBranches(ctx context.Context, repositoryID string) ([]models.Branch, error) {
	var branches []models.Branch
	err := s.db.WithContext(ctx).
		Where("repository_id = ?", repositoryID).
		Order("name ASC").
		Find(&branches).Error
	return branches, err
}

// Commits

// UpsertCommit is a no-op for a SHA that is already mirrored.
func (s *Store) UpsertCommit(ctx context.Context, c *models.Commit) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repository_id"}, {Name: "sha"}},
		DoNothing: true,
	}).Create(c).Error
}

// ListCommitsBySHA returns the mirrored commits among shas, newest first.
func (s *Store) ListCommitsBySHA(ctx context.Context, repositoryID string, shas []string) ([]models.Commit, error) {
	var commits []models.Commit
	if len(shas) == 0 {
		return commits, nil
	}
	err := s.db.WithContext(ctx).
		Where("repository_id = ? AND sha IN ?", repositoryID, shas).
		Order("committed_at DESC").
		Find(&commits).Error
	return commits, err
}

// Pull requests

func (s *Store) UpsertPullRequest(ctx context.Context, pr *models.PullRequest) error {
	if pr.ID == "" {
		pr.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "repository_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "body", "state", "head_branch", "base_branch", "head_sha",
			"author_login", "draft", "html_url", "merged_at", "updated_at",
		}),
	}).Create(pr).Error
	if err != nil {
		return err
	}

	var stored models.PullRequest
	err = s.db.WithContext(ctx).
		Where("repository_id = ? AND number = ?", pr.RepositoryID, pr.Number).
		First(&stored).Error
	if err != nil {
		return err
	}
	*pr = stored
	return nil
}

func (s *Store) GetPullRequest(ctx context.Context, repositoryID string, number int) (*models.PullRequest, error) {
	var pr models.PullRequest
	err := s.db.WithContext(ctx).
		Where("repository_id = ? AND number = ?", repositoryID, number).
		First(&pr).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pr, nil
}

// MarkPullRequestMerged flips a mirrored pull request to merged. A missing
// row is not an error.
func (s *Store) MarkPullRequestMerged(ctx context.Context, repositoryID string, number int, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.PullRequest{}).
		Where("repository_id = ? AND number = ?", repositoryID, number).
		Updates(map[string]any{"state": models.PullRequestMerged, "merged_at": at, "updated_at": at}).Error
}

func (s *Store) ListPullRequests(ctx context.Context, repositoryID string, state models.PullRequestState) ([]models.PullRequest, error) {
	var prs []models.PullRequest
	q := s.db.WithContext(ctx).Where("repository_id = ?", repositoryID)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	err := q.Order("number DESC").Find(&prs).Error
	return prs, err
}

func (s *Store) CreateReview(ctx context.Context, r *models.PullRequestReview) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(r).Error
}
