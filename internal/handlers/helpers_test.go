package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
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
	"github.com/Giuseph66/neurelix-nexus/internal/services"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testFrontendURL   = "https://app.example.com"
	testWebhookSecret = "handler-hook-secret"
	testUserHeader    = "X-Test-User"
)

// apiEnv serves the API routes against an in-memory store and a fake GitHub
// listening on github. Requests authenticate through testUserHeader.
type apiEnv struct {
	router    *gin.Engine
	store     *store.Store
	github    *http.ServeMux
	sealer    *util.Sealer
	audit     *services.AuditService
	projectID string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s, err := store.New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sealer, err := util.NewSealer("handlers-test-key")
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
		Scopes:       []string{"repo"},
		WebURL:       srv.URL,
	}, srv.Client())

	audit := services.NewAuditService(s, log, true, 100)
	t.Cleanup(func() { _ = audit.Shutdown(context.Background()) })
	perms := services.NewPermissionService(s)
	links := services.NewLinkService(s, perms, audit, recorder, log)
	conns := services.NewConnectionService(s, perms, audit, factory, oauth, sealer, recorder, log)
	repos := services.NewRepositoryService(s, perms, conns, links, audit, log)
	pulls := services.NewPullRequestService(s, repos, conns, links, audit, log)
	webhooks := services.NewWebhookService(testWebhookSecret, s, repos, pulls, conns, audit, recorder, log)

	r := gin.New()
	r.ContextWithFallback = true
	r.GET("/health", Health(s))

	v1 := r.Group("/api/v1")
	connH := NewConnectionHandler(conns, testFrontendURL, log)
	v1.GET("/git/oauth/callback", connH.OAuthCallback)
	v1.GET("/git/app/callback", connH.AppCallback)
	v1.POST("/git/webhooks/github", NewWebhookHandler(webhooks, 1<<20, log).Receive)

	api := v1.Group("/projects/:projectID", func(c *gin.Context) {
		if uid := c.GetHeader(testUserHeader); uid != "" {
			c.Set(util.GinKeyUserID, uid)
		}
		c.Next()
	})
	repoH := NewRepositoryHandler(repos, log)
	prH := NewPullRequestHandler(pulls, log)
	linkH := NewLinkHandler(links, log)
	auditH := NewAuditHandler(audit, perms, log)

	api.GET("/git/connection", connH.GetStatus)
	api.DELETE("/git/connection", connH.Revoke)
	api.POST("/git/oauth/start", connH.StartOAuth)
	api.POST("/git/app/start", connH.StartAppInstall)
	api.GET("/git/repositories", repoH.List)
	api.POST("/git/repositories/sync", repoH.Sync)
	api.PUT("/git/repositories/:repoID/selection", repoH.SetSelected)
	api.GET("/git/repositories/:repoID/branches", repoH.ListBranches)
	api.GET("/git/repositories/:repoID/commits", repoH.ListCommits)
	api.GET("/git/repositories/:repoID/pulls", prH.List)
	api.POST("/git/repositories/:repoID/pulls", prH.Create)
	api.POST("/git/repositories/:repoID/pulls/:number/reviews", prH.Review)
	api.PUT("/git/repositories/:repoID/pulls/:number/merge", prH.Merge)
	api.POST("/git/autolink/detect", linkH.Detect)
	api.GET("/tarefas/:tarefaID/git-links", linkH.List)
	api.POST("/tarefas/:tarefaID/git-links", linkH.Create)
	api.DELETE("/tarefas/:tarefaID/git-links/:linkID", linkH.Delete)
	api.GET("/audit", auditH.List)
	api.GET("/audit/stats", auditH.Stats)

	project := &models.Project{Name: "Nexus", KeyPrefix: "TSK"}
	require.NoError(t, s.CreateProject(ctx, project))
	for user, role := range map[string]models.Role{
		"owner":  models.RoleOwner,
		"dev":    models.RoleDeveloper,
		"viewer": models.RoleViewer,
	} {
		require.NoError(t, s.UpsertMember(ctx, &models.ProjectMember{
			ProjectID: project.ID, UserID: user, Role: role,
		}))
	}

	return &apiEnv{router: r, store: s, github: mux, sealer: sealer, audit: audit, projectID: project.ID}
}

func (e *apiEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) projectPath(suffix string) string {
	return "/api/v1/projects/" + e.projectID + suffix
}

func (e *apiEnv) flushAudit(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.audit.Shutdown(ctx))
}

func (e *apiEnv) connect(t *testing.T) *models.GitConnection {
	t.Helper()
	sealed, err := e.sealer.Seal("gho_handlers")
	require.NoError(t, err)
	conn := &models.GitConnection{
		ProjectID:            e.projectID,
		Provider:             models.ProviderGitHub,
		AuthType:             models.AuthTypeOAuth,
		AccountID:            1,
		AccountLogin:         "octocat",
		AccessTokenEncrypted: sealed,
		TokenType:            "bearer",
		Status:               models.ConnectionActive,
		ConnectedBy:          "owner",
	}
	require.NoError(t, e.store.SaveConnection(context.Background(), conn))
	return conn
}

func (e *apiEnv) repository(t *testing.T, conn *models.GitConnection) *models.Repository {
	t.Helper()
	repo := &models.Repository{
		ProjectID:     e.projectID,
		Provider:      models.ProviderGitHub,
		ExternalID:    10,
		ConnectionID:  conn.ID,
		Owner:         "octocat",
		Name:          "hello",
		FullName:      "octocat/hello",
		DefaultBranch: "main",
	}
	require.NoError(t, e.store.UpsertRepository(context.Background(), repo))
	return repo
}

func (e *apiEnv) tarefa(t *testing.T, key string) *models.Tarefa {
	t.Helper()
	tf := &models.Tarefa{ProjectID: e.projectID, Key: key, Title: "Task " + key}
	require.NoError(t, e.store.CreateTarefa(context.Background(), tf))
	return tf
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
