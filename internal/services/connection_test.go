package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOAuth serves the token endpoint and GET /user for the OAuth callback.
func fakeOAuth(env *testEnv, token string, accountID int64) *atomic.Int32 {
	var exchanges atomic.Int32
	env.mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","scope":"repo,read:user"}`, token)
	})
	env.mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%d,"login":"octocat","type":"User"}`, accountID)
	})
	return &exchanges
}

func startOAuthState(t *testing.T, env *testEnv) string {
	t.Helper()
	authURL, err := env.conns.StartOAuth(context.Background(), env.projectID, "owner")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestStartOAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authURL, err := env.conns.StartOAuth(ctx, env.projectID, "lead")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/login/oauth/authorize", u.Path)
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "repo read:user", u.Query().Get("scope"))

	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	st, err := env.store.GetConnectionStateByHash(ctx, util.SHA256Hex(state))
	require.NoError(t, err)
	assert.NotEqual(t, state, st.StateHash)
	assert.Equal(t, env.projectID, st.ProjectID)
	assert.Equal(t, "lead", st.UserID)
	assert.Equal(t, models.FlowOAuth, st.Flow)
	assert.WithinDuration(t, time.Now().Add(models.ConnectionStateTTL), st.ExpiresAt, 5*time.Second)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventGitConnectStarted), 1)
}

func TestStartOAuth_RequiresConnectCapability(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conns.StartOAuth(context.Background(), env.projectID, "dev")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.conns.StartOAuth(context.Background(), env.projectID, "nobody")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestStartAppInstall_DisabledWithoutApp(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conns.StartAppInstall(context.Background(), env.projectID, "owner")
	assert.ErrorIs(t, err, ErrFlowDisabled)
}

func TestCompleteOAuth_Success(t *testing.T) {
	env := newTestEnv(t)
	fakeOAuth(env, "gho_secret", 99)
	ctx := context.Background()

	res, err := env.conns.CompleteOAuth(ctx, startOAuthState(t, env), "good-code", "")
	require.NoError(t, err)
	assert.Equal(t, env.projectID, res.ProjectID)

	conn, err := env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionActive, conn.Status)
	assert.Equal(t, models.AuthTypeOAuth, conn.AuthType)
	assert.Equal(t, int64(99), conn.AccountID)
	assert.Equal(t, "octocat", conn.AccountLogin)
	assert.Equal(t, "owner", conn.ConnectedBy)
	assert.Equal(t, []string{"repo", "read:user"}, []string(conn.Scopes))

	assert.NotContains(t, conn.AccessTokenEncrypted, "gho_secret")
	plain, err := env.sealer.Open(conn.AccessTokenEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "gho_secret", plain)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventGitConnected), 1)
}

func TestCompleteOAuth_StateIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	exchanges := fakeOAuth(env, "gho_a", 1)
	ctx := context.Background()

	state := startOAuthState(t, env)
	_, err := env.conns.CompleteOAuth(ctx, state, "good-code", "")
	require.NoError(t, err)

	res, err := env.conns.CompleteOAuth(ctx, state, "good-code", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, res.ProjectID)
	assert.Equal(t, int32(1), exchanges.Load())
}

func TestCompleteOAuth_ExpiredState(t *testing.T) {
	env := newTestEnv(t)
	exchanges := fakeOAuth(env, "gho_a", 1)
	ctx := context.Background()

	state := startOAuthState(t, env)
	env.conns.now = func() time.Time { return time.Now().Add(models.ConnectionStateTTL + time.Second) }

	res, err := env.conns.CompleteOAuth(ctx, state, "good-code", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, env.projectID, res.ProjectID)
	assert.Zero(t, exchanges.Load())

	// Consumed even though it had expired
	_, err = env.store.GetConnectionStateByHash(ctx, util.SHA256Hex(state))
	assert.Error(t, err)
}

func TestCompleteOAuth_UnknownState(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.conns.CompleteOAuth(context.Background(), "made-up", "good-code", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, res.ProjectID)

	_, err = env.conns.CompleteOAuth(context.Background(), "", "good-code", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteOAuth_Failures(t *testing.T) {
	env := newTestEnv(t)
	fakeOAuth(env, "gho_a", 1)
	ctx := context.Background()

	_, err := env.conns.CompleteOAuth(ctx, startOAuthState(t, env), "", "access_denied")
	assert.ErrorIs(t, err, ErrAuthorizationDenied)

	res, err := env.conns.CompleteOAuth(ctx, startOAuthState(t, env), "bad-code", "")
	assert.ErrorIs(t, err, ErrTokenExchange)
	assert.Equal(t, env.projectID, res.ProjectID)

	_, err = env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	assert.Error(t, err, "no connection is stored for failed callbacks")

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventGitConnectFailed), 2)
}

func TestCompleteOAuth_AccountLookupFails(t *testing.T) {
	env := newTestEnv(t)
	env.mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"gho_a","token_type":"bearer"}`)
	})
	var calls atomic.Int32
	env.mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := env.conns.CompleteOAuth(context.Background(), startOAuthState(t, env), "good-code", "")
	assert.ErrorIs(t, err, ErrAccountLookup)
	assert.Equal(t, int32(1), calls.Load(), "account lookup is never retried")
}

func TestCompleteOAuth_ReconnectUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	fakeOAuth(env, "gho_first", 1)
	ctx := context.Background()

	first, err := env.conns.CompleteOAuth(ctx, startOAuthState(t, env), "good-code", "")
	require.NoError(t, err)

	_, err = env.conns.Revoke(ctx, env.projectID, "owner")
	require.NoError(t, err)

	second, err := env.conns.CompleteOAuth(ctx, startOAuthState(t, env), "good-code", "")
	require.NoError(t, err)
	assert.Equal(t, first.Connection.ID, second.Connection.ID)

	conn, err := env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionActive, conn.Status)
	assert.Nil(t, conn.RevokedAt)

	var count int64
	require.NoError(t, env.store.DB().Model(&models.GitConnection{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCompleteAppInstall_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// App flow states can only be issued when the App is configured, so
	// plant one directly.
	plant := func(flow models.ConnectionFlow) string {
		state, err := util.RandomState()
		require.NoError(t, err)
		require.NoError(t, env.store.CreateConnectionState(ctx, &models.ConnectionState{
			StateHash: util.SHA256Hex(state),
			ProjectID: env.projectID,
			UserID:    "owner",
			Provider:  models.ProviderGitHub,
			Flow:      flow,
			ExpiresAt: time.Now().Add(time.Minute),
		}))
		return state
	}

	_, err := env.conns.CompleteAppInstall(ctx, plant(models.FlowApp), "", "request")
	assert.ErrorIs(t, err, ErrInstallationPending)

	_, err = env.conns.CompleteAppInstall(ctx, plant(models.FlowApp), "abc", "install")
	assert.ErrorIs(t, err, ErrInvalidInstallation)

	// An OAuth state cannot finish an App installation
	res, err := env.conns.CompleteAppInstall(ctx, plant(models.FlowOAuth), "42", "install")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, env.projectID, res.ProjectID)
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var revoked atomic.Bool
	env.mux.HandleFunc("DELETE /api/applications/cid/token", func(w http.ResponseWriter, r *http.Request) {
		revoked.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	conn := env.connectOAuth(t, "gho_live")
	repo := env.repository(t, conn, 10)
	_, err := env.store.SetRepositorySelected(ctx, env.projectID, repo.ID, true)
	require.NoError(t, err)

	_, err = env.conns.Revoke(ctx, env.projectID, "dev")
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := env.conns.Revoke(ctx, env.projectID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRevoked, out.Status)
	assert.True(t, revoked.Load())

	stored, err := env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRevoked, stored.Status)
	assert.NotNil(t, stored.RevokedAt)
	assert.Empty(t, stored.AccessTokenEncrypted)

	r, err := env.store.GetRepository(ctx, env.projectID, repo.ID)
	require.NoError(t, err)
	assert.False(t, r.Selected)

	env.flushAudit(t)
	assert.Len(t, env.auditEvents(t, models.EventGitDisconnected), 1)
}

func TestRevoke_ProviderFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.mux.HandleFunc("DELETE /api/applications/cid/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	env.connectOAuth(t, "gho_live")

	out, err := env.conns.Revoke(context.Background(), env.projectID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRevoked, out.Status)
}

func TestRevoke_NoConnection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conns.Revoke(context.Background(), env.projectID, "owner")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.conns.GetStatus(ctx, env.projectID, "viewer")
	require.NoError(t, err)
	assert.False(t, view.Connected)
	assert.Nil(t, view.Connection)
	assert.True(t, view.OAuthAvailable)
	assert.False(t, view.AppAvailable)

	env.connectOAuth(t, "gho_live")
	view, err = env.conns.GetStatus(ctx, env.projectID, "viewer")
	require.NoError(t, err)
	assert.True(t, view.Connected)
	assert.Equal(t, "octocat", view.Connection.AccountLogin)

	_, err = env.conns.GetStatus(ctx, env.projectID, "nobody")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestPurgeExpiredStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	startOAuthState(t, env)
	require.NoError(t, env.store.CreateConnectionState(ctx, &models.ConnectionState{
		StateHash: util.SHA256Hex("old"),
		ProjectID: env.projectID,
		UserID:    "owner",
		Provider:  models.ProviderGitHub,
		Flow:      models.FlowOAuth,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	n, err := env.conns.PurgeExpiredStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHandleInstallationDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	instID := int64(555)
	conn := &models.GitConnection{
		ProjectID:      env.projectID,
		Provider:       models.ProviderGitHub,
		AuthType:       models.AuthTypeApp,
		AccountLogin:   "acme",
		InstallationID: &instID,
		Status:         models.ConnectionActive,
	}
	require.NoError(t, env.store.SaveConnection(ctx, conn))

	n, err := env.conns.HandleInstallationDeleted(ctx, instID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := env.store.GetConnection(ctx, env.projectID, models.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionRevoked, stored.Status)

	n, err = env.conns.HandleInstallationDeleted(ctx, instID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
