package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Giuseph66/neurelix-nexus/internal/apierr"
	"github.com/Giuseph66/neurelix-nexus/internal/autolink"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
)

// AutoLinkInput describes one git entity whose text should be scanned for
// tarefa keys. Empty strings and a zero PRNumber mean "absent".
type AutoLinkInput struct {
	Provider     string
	EntityType   models.LinkType
	RepositoryID string
	BranchName   string
	CommitSHA    string
	PRNumber     int
	Text         string
	ActorID      string
}

// ManualLinkInput is the body of a hand-made link.
type ManualLinkInput struct {
	RepositoryID string `json:"repository_id"`
	BranchName   string `json:"branch_name"`
	CommitSHA    string `json:"commit_sha"`
	PRNumber     *int   `json:"pr_number"`
}

// DetectResult reports the keys found in a text and the tarefas they resolve to.
type DetectResult struct {
	Keys     []string          `json:"keys"`
	Resolved map[string]string `json:"resolved"` // key -> tarefa id
}

// LinkService maintains tarefa <-> git entity associations.
type LinkService struct {
	store    *store.Store
	perms    *PermissionService
	audit    *AuditService
	recorder core.Recorder
	log      *logger.Logger
}

func NewLinkService(
	s *store.Store,
	perms *PermissionService,
	audit *AuditService,
	recorder core.Recorder,
	log *logger.Logger,
) *LinkService {
	return &LinkService{store: s, perms: perms, audit: audit, recorder: recorder, log: log}
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// normalizeLink turns empty optional fields into nil so they place no
// constraint on deduplication.
func normalizeLink(link *models.TarefaGitLink) {
	for _, p := range []**string{&link.RepositoryID, &link.BranchName, &link.CommitSHA} {
		if *p != nil {
			*p = optString(**p)
		}
	}
	if link.PRNumber != nil && *link.PRNumber == 0 {
		link.PRNumber = nil
	}
	if link.Provider == "" {
		link.Provider = models.ProviderGitHub
	}
	link.Provenance = autolink.Provenance(link.Provenance)
}

// EnsureLink inserts link unless a row with the same (tarefa, provider,
// branch, commit, pr) already exists, in which case that row is returned.
func (s *LinkService) EnsureLink(ctx context.Context, link *models.TarefaGitLink) (*models.TarefaGitLink, bool, error) {
	normalizeLink(link)

	existing, err := s.store.FindLink(ctx, store.LinkKey{
		TarefaID:   link.TarefaID,
		Provider:   link.Provider,
		BranchName: link.BranchName,
		CommitSHA:  link.CommitSHA,
		PRNumber:   link.PRNumber,
	})
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up link: %w", err)
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, false, fmt.Errorf("failed to create link: %w", err)
	}
	return link, true, nil
}

// resolveKey finds the tarefa a detected key names. Keys with trailing
// segments ("TSK-12-login") fall back to shorter prefixes.
func (s *LinkService) resolveKey(ctx context.Context, projectID, key string) (*models.Tarefa, error) {
	for _, candidate := range autolink.Candidates(key) {
		t, err := s.store.GetTarefaByKey(ctx, projectID, candidate)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// AutoLink scans in.Text and links every tarefa it names. Keys that don't
// resolve are skipped. Partial failures are joined into the returned error;
// links created before a failure are still returned.
func (s *LinkService) AutoLink(ctx context.Context, projectID string, in AutoLinkInput) ([]models.TarefaGitLink, error) {
	keys := autolink.Detect(in.Text)
	if len(keys) == 0 {
		return nil, nil
	}

	var (
		links   []models.TarefaGitLink
		errs    []error
		created int
		seen    = make(map[string]bool)
	)
	for _, key := range keys {
		tarefa, err := s.resolveKey(ctx, projectID, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", key, err))
			continue
		}
		if tarefa == nil || seen[tarefa.ID] {
			continue
		}
		seen[tarefa.ID] = true

		link, isNew, err := s.EnsureLink(ctx, &models.TarefaGitLink{
			TarefaID:     tarefa.ID,
			ProjectID:    projectID,
			Provider:     in.Provider,
			RepositoryID: optString(in.RepositoryID),
			BranchName:   optString(in.BranchName),
			CommitSHA:    optString(in.CommitSHA),
			PRNumber:     optInt(in.PRNumber),
			LinkType:     in.EntityType,
			Source:       models.LinkSourceAuto,
			Provenance:   in.Text,
			CreatedBy:    in.ActorID,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if isNew {
			created++
		}
		links = append(links, *link)
	}

	if created > 0 {
		s.recorder.RecordAutoLinks(string(in.EntityType), created)
	}
	return links, errors.Join(errs...)
}

// autoLinkQuietly runs AutoLink for mirror refreshes, where a linking failure
// must not fail the listing itself.
func (s *LinkService) autoLinkQuietly(ctx context.Context, projectID string, in AutoLinkInput) {
	if _, err := s.AutoLink(ctx, projectID, in); err != nil {
		s.log.Warn("auto-link failed",
			"project_id", projectID, "entity", in.EntityType, "error", err)
	}
}

// Detect reports the keys in text and which of them resolve in the project.
func (s *LinkService) Detect(ctx context.Context, projectID, userID, text string) (*DetectResult, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapView); err != nil {
		return nil, err
	}

	res := &DetectResult{Keys: autolink.Detect(text), Resolved: map[string]string{}}
	if res.Keys == nil {
		res.Keys = []string{}
	}
	for _, key := range res.Keys {
		t, err := s.resolveKey(ctx, projectID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", key, err)
		}
		if t != nil {
			res.Resolved[key] = t.ID
		}
	}
	return res, nil
}

func (s *LinkService) getTarefa(ctx context.Context, projectID, tarefaID string) (*models.Tarefa, error) {
	t, err := s.store.GetTarefa(ctx, projectID, tarefaID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrTarefaNotFound
	}
	return t, err
}

// CreateManualLink attaches a tarefa to a git entity by hand.
func (s *LinkService) CreateManualLink(
	ctx context.Context,
	projectID, tarefaID, userID string,
	in ManualLinkInput,
) (*models.TarefaGitLink, bool, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapManageLinks); err != nil {
		return nil, false, err
	}
	tarefa, err := s.getTarefa(ctx, projectID, tarefaID)
	if err != nil {
		return nil, false, err
	}

	link := &models.TarefaGitLink{
		TarefaID:     tarefa.ID,
		ProjectID:    projectID,
		Provider:     models.ProviderGitHub,
		RepositoryID: optString(in.RepositoryID),
		BranchName:   optString(in.BranchName),
		CommitSHA:    optString(in.CommitSHA),
		Source:       models.LinkSourceManual,
		CreatedBy:    userID,
	}
	if in.PRNumber != nil {
		if *in.PRNumber <= 0 {
			return nil, false, apierr.Validation("pr_number must be positive")
		}
		link.PRNumber = optInt(*in.PRNumber)
	}

	switch {
	case link.PRNumber != nil:
		link.LinkType = models.LinkPullRequest
	case link.CommitSHA != nil:
		link.LinkType = models.LinkCommit
	case link.BranchName != nil:
		link.LinkType = models.LinkBranch
	default:
		return nil, false, apierr.Validation("one of branch_name, commit_sha or pr_number is required")
	}

	if link.RepositoryID != nil {
		if _, err := s.store.GetRepository(ctx, projectID, *link.RepositoryID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, false, ErrRepositoryNotFound
			}
			return nil, false, err
		}
	}

	stored, created, err := s.EnsureLink(ctx, link)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.audit.Log(ctx, AuditLogEntry{
			EventType:    models.EventLinkCreated,
			ProjectID:    projectID,
			ActorUserID:  userID,
			ResourceType: models.ResourceTarefaLink,
			ResourceID:   stored.ID,
			ResourceName: tarefa.Key,
			Action:       fmt.Sprintf("Linked %s to %s", tarefa.Key, stored.LinkType),
			Details:      models.AuditDetails{"link_type": string(stored.LinkType)},
			Success:      true,
		})
	}
	return stored, created, nil
}

// ListLinks returns a tarefa's links, oldest first.
func (s *LinkService) ListLinks(ctx context.Context, projectID, tarefaID, userID string) ([]models.TarefaGitLink, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapView); err != nil {
		return nil, err
	}
	if _, err := s.getTarefa(ctx, projectID, tarefaID); err != nil {
		return nil, err
	}
	return s.store.ListLinksByTarefa(ctx, tarefaID)
}

// DeleteLink removes one of the tarefa's links.
func (s *LinkService) DeleteLink(ctx context.Context, projectID, tarefaID, linkID, userID string) error {
	if err := s.perms.Require(ctx, projectID, userID, CapManageLinks); err != nil {
		return err
	}
	tarefa, err := s.getTarefa(ctx, projectID, tarefaID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteLink(ctx, tarefa.ID, linkID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventLinkDeleted,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourceTarefaLink,
		ResourceID:   linkID,
		ResourceName: tarefa.Key,
		Action:       "Removed link from " + tarefa.Key,
		Success:      true,
	})
	return nil
}
