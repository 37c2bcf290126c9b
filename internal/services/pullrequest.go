package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/apierr"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
)

// CreatePullRequestInput is the body of a pull request creation.
type CreatePullRequestInput struct {
	Title    string `json:"title"`
	Head     string `json:"head"`
	Base     string `json:"base"`
	Body     string `json:"body"`
	Draft    bool   `json:"draft"`
	TarefaID string `json:"tarefa_id"`
}

// ReviewInput is the body of a review submission.
type ReviewInput struct {
	Event models.ReviewEvent `json:"event"`
	Body  string             `json:"body"`
}

// MergeInput is the body of a merge request.
type MergeInput struct {
	Method        string `json:"merge_method"`
	CommitTitle   string `json:"commit_title"`
	CommitMessage string `json:"commit_message"`
}

// PullRequestService proxies pull request operations to GitHub and keeps
// the local mirror and tarefa links up to date.
type PullRequestService struct {
	store *store.Store
	repos *RepositoryService
	conns *ConnectionService
	links *LinkService
	audit *AuditService
	log   *logger.Logger
}

func NewPullRequestService(
	s *store.Store,
	repos *RepositoryService,
	conns *ConnectionService,
	links *LinkService,
	audit *AuditService,
	log *logger.Logger,
) *PullRequestService {
	return &PullRequestService{store: s, repos: repos, conns: conns, links: links, audit: audit, log: log}
}

func pullRequestState(pr github.PullRequest) models.PullRequestState {
	switch {
	case pr.Merged:
		return models.PullRequestMerged
	case pr.State == string(models.PullRequestClosed):
		return models.PullRequestClosed
	default:
		return models.PullRequestOpen
	}
}

// mirror upserts pr and links every tarefa named in its title, body or head
// branch.
func (s *PullRequestService) mirror(
	ctx context.Context,
	projectID, actorID string,
	repo *models.Repository,
	pr github.PullRequest,
) (*models.PullRequest, error) {
	row := &models.PullRequest{
		RepositoryID: repo.ID,
		Number:       pr.Number,
		Title:        pr.Title,
		Body:         pr.Body,
		State:        pullRequestState(pr),
		HeadBranch:   pr.HeadBranch,
		BaseBranch:   pr.BaseBranch,
		HeadSHA:      pr.HeadSHA,
		AuthorLogin:  pr.AuthorLogin,
		Draft:        pr.Draft,
		HTMLURL:      pr.HTMLURL,
		MergedAt:     pr.MergedAt,
	}
	if err := s.store.UpsertPullRequest(ctx, row); err != nil {
		return nil, err
	}

	s.links.autoLinkQuietly(ctx, projectID, AutoLinkInput{
		Provider:     models.ProviderGitHub,
		EntityType:   models.LinkPullRequest,
		RepositoryID: repo.ID,
		PRNumber:     pr.Number,
		Text:         strings.Join([]string{pr.Title, pr.Body, pr.HeadBranch}, "\n"),
		ActorID:      actorID,
	})
	return row, nil
}

// List queries GitHub for pull requests in state ("open", "closed" or
// "all") and refreshes the mirror.
func (s *PullRequestService) List(
	ctx context.Context,
	projectID, userID, repoID, state string,
) ([]models.PullRequest, error) {
	switch state {
	case "":
		state = "open"
	case "open", "closed", "all":
	default:
		return nil, apierr.Validation("state must be one of open, closed, all")
	}

	repo, conn, client, err := s.repos.repositoryClient(ctx, projectID, userID, repoID, CapView)
	if err != nil {
		return nil, err
	}

	prs, err := client.ListPullRequests(ctx, repo.Owner, repo.Name, state)
	if err != nil {
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	out := make([]models.PullRequest, 0, len(prs))
	for _, pr := range prs {
		row, err := s.mirror(ctx, projectID, userID, repo, pr)
		if err != nil {
			s.log.Warn("failed to mirror pull request",
				"repository", repo.FullName, "number", pr.Number, "error", err)
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

// Create opens a pull request on GitHub.
func (s *PullRequestService) Create(
	ctx context.Context,
	projectID, userID, repoID string,
	in CreatePullRequestInput,
) (*models.PullRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Head = strings.TrimSpace(in.Head)
	in.Base = strings.TrimSpace(in.Base)
	switch {
	case in.Title == "":
		return nil, apierr.Validation("title is required")
	case in.Head == "":
		return nil, apierr.Validation("head is required")
	case in.Base == "":
		return nil, apierr.Validation("base is required")
	case in.Head == in.Base:
		return nil, apierr.Validation("head and base must differ")
	}

	repo, conn, client, err := s.repos.repositoryClient(ctx, projectID, userID, repoID, CapCreatePR)
	if err != nil {
		return nil, err
	}

	var tarefa *models.Tarefa
	if in.TarefaID != "" {
		if tarefa, err = s.links.getTarefa(ctx, projectID, in.TarefaID); err != nil {
			return nil, err
		}
	}

	created, err := client.CreatePullRequest(ctx, repo.Owner, repo.Name, github.NewPullRequest{
		Title: in.Title,
		Head:  in.Head,
		Base:  in.Base,
		Body:  in.Body,
		Draft: in.Draft,
	})
	if err != nil {
		if github.IsValidation(err) {
			return nil, apierr.New(http.StatusBadRequest, "GitHub rejected the pull request", err)
		}
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	row, err := s.mirror(ctx, projectID, userID, repo, created)
	if err != nil {
		return nil, fmt.Errorf("failed to mirror pull request: %w", err)
	}

	if tarefa != nil {
		_, _, err := s.links.EnsureLink(ctx, &models.TarefaGitLink{
			TarefaID:     tarefa.ID,
			ProjectID:    projectID,
			Provider:     models.ProviderGitHub,
			RepositoryID: &repo.ID,
			PRNumber:     &row.Number,
			LinkType:     models.LinkPullRequest,
			Source:       models.LinkSourceManual,
			Provenance:   row.Title,
			CreatedBy:    userID,
		})
		if err != nil {
			s.log.Warn("failed to link pull request to tarefa",
				"tarefa_id", tarefa.ID, "number", row.Number, "error", err)
		}
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventPRCreated,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourcePullRequest,
		ResourceID:   row.ID,
		ResourceName: fmt.Sprintf("%s#%d", repo.FullName, row.Number),
		Action:       "Created pull request " + row.Title,
		Details:      models.AuditDetails{"head": in.Head, "base": in.Base, "draft": in.Draft},
		Success:      true,
	})
	return row, nil
}

// Review submits a review on a pull request.
func (s *PullRequestService) Review(
	ctx context.Context,
	projectID, userID, repoID string,
	number int,
	in ReviewInput,
) (*models.PullRequestReview, error) {
	if number <= 0 {
		return nil, apierr.Validation("invalid pull request number")
	}
	in.Event = models.ReviewEvent(strings.ToUpper(string(in.Event)))
	switch in.Event {
	case models.ReviewApprove:
	case models.ReviewRequestChanges, models.ReviewComment:
		if strings.TrimSpace(in.Body) == "" {
			return nil, apierr.Validation("body is required for " + string(in.Event))
		}
	default:
		return nil, apierr.Validation("event must be one of APPROVE, REQUEST_CHANGES, COMMENT")
	}

	repo, conn, client, err := s.repos.repositoryClient(ctx, projectID, userID, repoID, CapReviewPR)
	if err != nil {
		return nil, err
	}

	review, err := client.CreateReview(ctx, repo.Owner, repo.Name, number, string(in.Event), in.Body)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, ErrPullRequestNotFound
		}
		if github.IsValidation(err) {
			return nil, apierr.New(http.StatusBadRequest, "GitHub rejected the review", err)
		}
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	row := &models.PullRequestReview{
		ExternalID:    review.ID,
		ReviewerLogin: review.ReviewerLogin,
		ReviewerID:    userID,
		State:         review.State,
		Body:          review.Body,
		SubmittedAt:   review.SubmittedAt,
	}
	// The review is attached to the mirrored PR when we have one
	if pr, err := s.store.GetPullRequest(ctx, repo.ID, number); err == nil {
		row.PullRequestID = pr.ID
		if err := s.store.CreateReview(ctx, row); err != nil {
			s.log.Warn("failed to mirror review", "repository", repo.FullName, "number", number, "error", err)
		}
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		s.log.Warn("failed to load pull request for review", "repository", repo.FullName, "error", err)
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventPRReviewed,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourcePullRequest,
		ResourceName: fmt.Sprintf("%s#%d", repo.FullName, number),
		Action:       "Reviewed pull request: " + string(in.Event),
		Details:      models.AuditDetails{"event": string(in.Event)},
		Success:      true,
	})
	return row, nil
}

// Merge merges a pull request with the given method (merge by default).
func (s *PullRequestService) Merge(
	ctx context.Context,
	projectID, userID, repoID string,
	number int,
	in MergeInput,
) (*github.MergeResult, error) {
	if number <= 0 {
		return nil, apierr.Validation("invalid pull request number")
	}
	switch in.Method {
	case "":
		in.Method = "merge"
	case "merge", "squash", "rebase":
	default:
		return nil, apierr.Validation("merge_method must be one of merge, squash, rebase")
	}

	repo, conn, client, err := s.repos.repositoryClient(ctx, projectID, userID, repoID, CapMergePR)
	if err != nil {
		return nil, err
	}

	res, err := client.MergePullRequest(ctx, repo.Owner, repo.Name, number, in.Method, in.CommitTitle, in.CommitMessage)
	if err != nil {
		switch {
		case github.IsNotFound(err):
			return nil, ErrPullRequestNotFound
		case github.IsNotMergeable(err):
			return nil, apierr.New(http.StatusBadRequest, "pull request is not mergeable", err)
		}
		return nil, s.conns.providerError(ctx, conn, err)
	}
	s.conns.touch(ctx, conn)

	if res.Merged {
		if err := s.store.MarkPullRequestMerged(ctx, repo.ID, number, time.Now()); err != nil {
			s.log.Warn("failed to mark pull request merged", "repository", repo.FullName, "number", number, "error", err)
		}
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventPRMerged,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourcePullRequest,
		ResourceName: fmt.Sprintf("%s#%d", repo.FullName, number),
		Action:       "Merged pull request with " + in.Method,
		Details:      models.AuditDetails{"merge_method": in.Method, "sha": res.SHA},
		Success:      res.Merged,
	})
	return &res, nil
}
