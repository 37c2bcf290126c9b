package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
)

// Webhook outcomes, also used as the result label on the webhook metric.
const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookRejected  = "rejected"
	WebhookFailed    = "failed"
)

// WebhookService keeps the mirrors current from GitHub deliveries.
type WebhookService struct {
	secret   []byte
	store    *store.Store
	repos    *RepositoryService
	pulls    *PullRequestService
	conns    *ConnectionService
	audit    *AuditService
	recorder core.Recorder
	log      *logger.Logger
}

func NewWebhookService(
	secret string,
	s *store.Store,
	repos *RepositoryService,
	pulls *PullRequestService,
	conns *ConnectionService,
	audit *AuditService,
	recorder core.Recorder,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{
		secret:   []byte(secret),
		store:    s,
		repos:    repos,
		pulls:    pulls,
		conns:    conns,
		audit:    audit,
		recorder: recorder,
		log:      log,
	}
}

// Handle validates and applies one delivery. It returns the outcome label;
// ErrInvalidSignature and ErrInvalidPayload are the only client errors.
func (s *WebhookService) Handle(ctx context.Context, d github.Delivery) (string, error) {
	result, err := s.handle(ctx, d)
	s.recorder.RecordWebhook(d.Event, result)
	return result, err
}

func (s *WebhookService) handle(ctx context.Context, d github.Delivery) (string, error) {
	payload, err := d.Validate(s.secret)
	if err != nil {
		s.audit.Log(ctx, AuditLogEntry{
			EventType:    models.EventWebhookRejected,
			Severity:     models.SeverityWarning,
			ResourceType: models.ResourceWebhook,
			ResourceID:   d.ID,
			ResourceName: d.Event,
			Action:       "Rejected webhook delivery",
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return WebhookRejected, ErrInvalidSignature
	}

	ev, err := github.ParseWebhook(d.Event, payload)
	if err != nil {
		s.log.Warn("malformed webhook payload", "event", d.Event, "delivery", d.ID, "error", err)
		return WebhookRejected, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ev == nil {
		return WebhookIgnored, nil
	}

	switch ev.Kind {
	case github.WebhookInstallation:
		if ev.Action != "deleted" {
			return WebhookIgnored, nil
		}
		n, err := s.conns.HandleInstallationDeleted(ctx, ev.InstallationID)
		if err != nil {
			return WebhookFailed, err
		}
		s.log.Info("installation removed on GitHub", "installation_id", ev.InstallationID, "revoked", n)
		return WebhookProcessed, nil
	}

	repos, err := s.store.FindRepositoriesByExternalID(ctx, models.ProviderGitHub, ev.RepositoryID)
	if err != nil {
		return WebhookFailed, fmt.Errorf("failed to find repositories: %w", err)
	}
	if len(repos) == 0 {
		return WebhookIgnored, nil
	}

	var errs []error
	for i := range repos {
		if err := s.apply(ctx, &repos[i], ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repos[i].ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Error("webhook partially applied", "event", d.Event, "delivery", d.ID, "error", err)
		return WebhookFailed, err
	}
	return WebhookProcessed, nil
}

// apply mirrors ev into one project's copy of the repository. Links created
// from deliveries carry no actor.
func (s *WebhookService) apply(ctx context.Context, repo *models.Repository, ev *github.WebhookEvent) error {
	switch ev.Kind {
	case github.WebhookPush:
		var errs []error
		for _, c := range ev.Commits {
			if err := s.repos.mirrorCommit(ctx, repo.ProjectID, "", repo, ev.Branch, c); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	case github.WebhookCreate:
		return s.repos.mirrorBranch(ctx, repo.ProjectID, "", repo, github.Branch{Name: ev.Branch}, time.Now())

	case github.WebhookPullRequest:
		_, err := s.pulls.mirror(ctx, repo.ProjectID, "", repo, *ev.PullRequest)
		return err
	}
	return nil
}
