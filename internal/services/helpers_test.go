package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/auth"
	"github.com/Giuseph66/neurelix-nexus/internal/cache"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "hook-secret"

// testEnv wires every service against an in-memory database and a fake
// GitHub served from mux. API routes live under /api/.
type testEnv struct {
	store   *store.Store
	mux     *http.ServeMux
	server  *httptest.Server
	sealer  *util.Sealer
	audit   *AuditService
	perms   *PermissionService
	links   *LinkService
	conns   *ConnectionService
	repos   *RepositoryService
	pulls   *PullRequestService
	webhook *WebhookService

	projectID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sealer, err := util.NewSealer("services-test-key")
	require.NoError(t, err)

	log := logger.NewNop()
	recorder := metrics.NewNoopMetrics()

	factory, err := github.NewFactory(github.Config{
		APIBaseURL:   srv.URL + "/api/",
		WebURL:       "https://github.com",
		ClientID:     "cid",
		ClientSecret: "csecret",
		AppSlug:      "nexus-app",
		MaxAttempts:  3,
	}, srv.Client(), sealer, cache.NewMemoryCache[github.InstallationToken](), recorder, log)
	require.NoError(t, err)

	oauth := auth.NewGitHubProvider(auth.OAuthProviderConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "http://localhost:8080/api/v1/git/oauth/callback",
		Scopes:       []string{"repo", "read:user"},
		WebURL:       srv.URL,
	}, srv.Client())

	env := &testEnv{store: s, mux: mux, server: srv, sealer: sealer}
	env.audit = NewAuditService(s, log, true, 100)
	t.Cleanup(func() { _ = env.audit.Shutdown(context.Background()) })
	env.perms = NewPermissionService(s)
	env.links = NewLinkService(s, env.perms, env.audit, recorder, log)
	env.conns = NewConnectionService(s, env.perms, env.audit, factory, oauth, sealer, recorder, log)
	env.repos = NewRepositoryService(s, env.perms, env.conns, env.links, env.audit, log)
	env.pulls = NewPullRequestService(s, env.repos, env.conns, env.links, env.audit, log)
	env.webhook = NewWebhookService(testWebhookSecret, s, env.repos, env.pulls, env.conns, env.audit, recorder, log)

	project := &models.Project{Name: "Nexus", KeyPrefix: "TSK"}
	require.NoError(t, s.CreateProject(ctx, project))
	env.projectID = project.ID
	for user, role := range map[string]models.Role{
		"owner":  models.RoleOwner,
		"lead":   models.RoleTechLead,
		"dev":    models.RoleDeveloper,
		"viewer": models.RoleViewer,
	} {
		require.NoError(t, s.UpsertMember(ctx, &models.ProjectMember{
			ProjectID: project.ID, UserID: user, Role: role,
		}))
	}
	return env
}

// flushAudit stops the audit worker so every queued entry is persisted.
func (e *testEnv) flushAudit(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.audit.Shutdown(ctx))
}

func (e *testEnv) auditEvents(t *testing.T, eventType models.EventType) []models.AuditLog {
	t.Helper()
	logs, _, err := e.audit.GetAuditLogs(context.Background(),
		store.NewPaginationParams(1, 100, ""),
		store.AuditLogFilters{ProjectID: e.projectID, EventType: eventType})
	require.NoError(t, err)
	return logs
}

func (e *testEnv) tarefa(t *testing.T, key string) *models.Tarefa {
	t.Helper()
	tf := &models.Tarefa{ProjectID: e.projectID, Key: key, Title: "Task " + key}
	require.NoError(t, e.store.CreateTarefa(context.Background(), tf))
	return tf
}

// connectOAuth stores an active OAuth connection for the project.
func (e *testEnv) connectOAuth(t *testing.T, token string) *models.GitConnection {
	t.Helper()
	sealed, err := e.sealer.Seal(token)
	require.NoError(t, err)
	conn := &models.GitConnection{
		ProjectID:            e.projectID,
		Provider:             models.ProviderGitHub,
		AuthType:             models.AuthTypeOAuth,
		AccountID:            1,
		AccountLogin:         "octocat",
		AccountType:          "User",
		AccessTokenEncrypted: sealed,
		TokenType:            "bearer",
		Status:               models.ConnectionActive,
		ConnectedBy:          "owner",
	}
	require.NoError(t, e.store.SaveConnection(context.Background(), conn))
	return conn
}

// repository stores a mirrored repository bound to conn.
func (e *testEnv) repository(t *testing.T, conn *models.GitConnection, externalID int64) *models.Repository {
	t.Helper()
	repo := &models.Repository{
		ProjectID:     e.projectID,
		Provider:      models.ProviderGitHub,
		ExternalID:    externalID,
		ConnectionID:  conn.ID,
		Owner:         "octocat",
		Name:          "hello",
		FullName:      "octocat/hello",
		DefaultBranch: "main",
	}
	require.NoError(t, e.store.UpsertRepository(context.Background(), repo))
	return repo
}
