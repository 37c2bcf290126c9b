package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
)

const (
	defaultCommitLimit = 30
	maxCommitLimit     = 100
)

// SyncResult summarizes a repository sync.
type SyncResult struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// RepositoryService mirrors repositories, branches and commits from GitHub.
// Every upsert stands on its own: a partially failed sync leaves the mirror
// partially refreshed, never inconsistent.
type RepositoryService struct {
	store *store.Store
	perms *PermissionService
	conns *ConnectionService
	links *LinkService
	audit *AuditService
	log   *logger.Logger
}

func NewRepositoryService(
	s *store.Store,
	perms *PermissionService,
	conns *ConnectionService,
	links *LinkService,
	audit *AuditService,
	log *logger.Logger,
) *RepositoryService {
	return &RepositoryService{store: s, perms: perms, conns: conns, links: links, audit: audit, log: log}
}

// ListRepositories returns the mirror, refreshing it from GitHub first when
// live is set.
func (s *RepositoryService) ListRepositories(
	ctx context.Context,
	projectID, userID string,
	live bool,
) ([]models.Repository, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapView); err != nil {
		return nil, err
	}
	if live {
		if _, err := s.sync(ctx, projectID); err != nil {
			return nil, err
		}
	}
	return s.store.ListRepositories(ctx, projectID)
}

// SyncRepositories refreshes the mirror and reports what happened.
func (s *RepositoryService) SyncRepositories(ctx context.Context, projectID, userID string) (*SyncResult, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapConnectGit); err != nil {
		return nil, err
	}

	res, err := s.sync(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventRepositorySynced,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourceRepository,
		Action:       fmt.Sprintf("Synced %d repositories", res.Synced),
		Details:      models.AuditDetails{"total": res.Total, "synced": res.Synced, "failed": res.Failed},
		Success:      res.Failed == 0,
	})
	return res, nil
}

func (s *RepositoryService) sync(ctx context.Context, projectID string) (*SyncResult, error) {
	conn, client, err := s.conns.activeClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	repos, err := client.ListRepositories(ctx)
	if err != nil {
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	now := time.Now()
	res := &SyncResult{Total: len(repos)}
	for _, r := range repos {
		err := s.store.UpsertRepository(ctx, &models.Repository{
			ProjectID:     projectID,
			Provider:      models.ProviderGitHub,
			ExternalID:    r.ID,
			ConnectionID:  conn.ID,
			Owner:         r.Owner,
			Name:          r.Name,
			FullName:      r.FullName,
			DefaultBranch: r.DefaultBranch,
			Private:       r.Private,
			HTMLURL:       r.HTMLURL,
			LastSyncedAt:  &now,
		})
		if err != nil {
			res.Failed++
			s.log.Warn("failed to mirror repository",
				"project_id", projectID, "repository", r.FullName, "error", err)
			continue
		}
		res.Synced++
	}
	return res, nil
}

// SetSelected marks a repository as used (or not) by the project.
func (s *RepositoryService) SetSelected(
	ctx context.Context,
	projectID, userID, repoID string,
	selected bool,
) (*models.Repository, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapConnectGit); err != nil {
		return nil, err
	}

	repo, err := s.store.SetRepositorySelected(ctx, projectID, repoID, selected)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrRepositoryNotFound
	}
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventRepositorySelected,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourceRepository,
		ResourceID:   repo.ID,
		ResourceName: repo.FullName,
		Action:       fmt.Sprintf("Set %s selected=%t", repo.FullName, selected),
		Success:      true,
	})
	return repo, nil
}

// repositoryClient loads a mirrored repository and a client able to reach it.
func (s *RepositoryService) repositoryClient(
	ctx context.Context,
	projectID, userID, repoID string,
	capability Capability,
) (*models.Repository, *models.GitConnection, *github.Client, error) {
	if err := s.perms.Require(ctx, projectID, userID, capability); err != nil {
		return nil, nil, nil, err
	}
	repo, err := s.store.GetRepository(ctx, projectID, repoID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil, nil, ErrRepositoryNotFound
	}
	if err != nil {
		return nil, nil, nil, err
	}
	conn, client, err := s.conns.activeClient(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return repo, conn, client, nil
}

// ListBranches queries GitHub, refreshes the branch mirror and links any
// tarefa keys found in branch names.
func (s *RepositoryService) ListBranches(ctx context.Context, projectID, userID, repoID string) ([]models.Branch, error) {
	repo, conn, client, err := s.repositoryClient(ctx, projectID, userID, repoID, CapView)
	if err != nil {
		return nil, err
	}

	branches, complete, err := client.ListBranches(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	now := time.Now()
	live := make(map[string]bool, len(branches))
	for _, b := range branches {
		live[b.Name] = true
		if err := s.mirrorBranch(ctx, projectID, userID, repo, b, now); err != nil {
			s.log.Warn("failed to mirror branch", "repository", repo.FullName, "branch", b.Name, "error", err)
		}
	}

	mirrored, err := s.store.ListBranches(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	if !complete {
		s.log.Warn("branch listing truncated, keeping unlisted mirrored branches",
			"repository", repo.FullName, "listed", len(branches))
		return mirrored, nil
	}

	// Drop branches deleted on GitHub
	out := mirrored[:0]
	for _, b := range mirrored {
		if live[b.Name] {
			out = append(out, b)
			continue
		}
		if err := s.store.DeleteBranch(ctx, repo.ID, b.Name); err != nil {
			s.log.Warn("failed to drop stale branch", "repository", repo.FullName, "branch", b.Name, "error", err)
		}
	}
	return out, nil
}

// ListCommits queries recent commits on branch (default branch when empty),
// mirrors them and links tarefa keys found in their messages.
func (s *RepositoryService) ListCommits(
	ctx context.Context,
	projectID, userID, repoID, branch string,
	limit int,
) ([]models.Commit, error) {
	repo, conn, client, err := s.repositoryClient(ctx, projectID, userID, repoID, CapView)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultCommitLimit
	}
	limit = min(limit, maxCommitLimit)

	commits, err := client.ListCommits(ctx, repo.Owner, repo.Name, branch, limit)
	if err != nil {
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	shas := make([]string, 0, len(commits))
	for _, c := range commits {
		shas = append(shas, c.SHA)
		if err := s.mirrorCommit(ctx, projectID, userID, repo, branch, c); err != nil {
			s.log.Warn("failed to mirror commit", "repository", repo.FullName, "sha", c.SHA, "error", err)
		}
	}

	return s.store.ListCommitsBySHA(ctx, repo.ID, shas)
}

// mirrorBranch upserts b and links the tarefas its name mentions.
func (s *RepositoryService) mirrorBranch(
	ctx context.Context,
	projectID, actorID string,
	repo *models.Repository,
	b github.Branch,
	syncedAt time.Time,
) error {
	save := s.store.UpsertBranch
	// Without a head SHA (create deliveries) the name is all we know.
	if b.HeadSHA == "" {
		save = s.store.InsertBranchIfMissing
	}
	err := save(ctx, &models.Branch{
		RepositoryID: repo.ID,
		Name:         b.Name,
		HeadSHA:      b.HeadSHA,
		Protected:    b.Protected,
		LastSyncedAt: syncedAt,
	})
	if err != nil {
		return err
	}
	s.links.autoLinkQuietly(ctx, projectID, AutoLinkInput{
		Provider:     models.ProviderGitHub,
		EntityType:   models.LinkBranch,
		RepositoryID: repo.ID,
		BranchName:   b.Name,
		Text:         b.Name,
		ActorID:      actorID,
	})
	return nil
}

// mirrorCommit upserts c and links the tarefas its message mentions. branch
// may be empty.
func (s *RepositoryService) mirrorCommit(
	ctx context.Context,
	projectID, actorID string,
	repo *models.Repository,
	branch string,
	c github.Commit,
) error {
	err := s.store.UpsertCommit(ctx, &models.Commit{
		RepositoryID: repo.ID,
		SHA:          c.SHA,
		Message:      c.Message,
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		AuthorLogin:  c.AuthorLogin,
		HTMLURL:      c.HTMLURL,
		CommittedAt:  c.CommittedAt,
	})
	if err != nil {
		return err
	}
	s.links.autoLinkQuietly(ctx, projectID, AutoLinkInput{
		Provider:     models.ProviderGitHub,
		EntityType:   models.LinkCommit,
		RepositoryID: repo.ID,
		BranchName:   branch,
		CommitSHA:    c.SHA,
		Text:         c.Message,
		ActorID:      actorID,
	})
	return nil
}
