package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/auth"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/util"
)

// CallbackResult is what a handshake callback learned. ProjectID is set as
// soon as the state row was found, even when a later step failed, so the
// browser can be sent back to the right project.
type CallbackResult struct {
	ProjectID  string
	Connection *models.GitConnection
}

// StatusView is the connection status shown to project members. It never
// carries the credential.
type StatusView struct {
	Connected      bool                  `json:"connected"`
	Connection     *models.GitConnection `json:"connection,omitempty"`
	OAuthAvailable bool                  `json:"oauth_available"`
	AppAvailable   bool                  `json:"app_available"`
}

// ConnectionService runs the OAuth / App installation handshake and owns the
// lifecycle of a project's git connection.
type ConnectionService struct {
	store    *store.Store
	perms    *PermissionService
	audit    *AuditService
	factory  *github.Factory
	oauth    *auth.OAuthProvider // nil when the OAuth flow is disabled
	sealer   *util.Sealer
	recorder core.Recorder
	log      *logger.Logger
	now      func() time.Time
}

func NewConnectionService(
	s *store.Store,
	perms *PermissionService,
	audit *AuditService,
	factory *github.Factory,
	oauth *auth.OAuthProvider,
	sealer *util.Sealer,
	recorder core.Recorder,
	log *logger.Logger,
) *ConnectionService {
	return &ConnectionService{
		store:    s,
		perms:    perms,
		audit:    audit,
		factory:  factory,
		oauth:    oauth,
		sealer:   sealer,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// issueState mints a state token and stores its hash bound to (project, user).
func (s *ConnectionService) issueState(
	ctx context.Context,
	projectID, userID string,
	flow models.ConnectionFlow,
) (string, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapConnectGit); err != nil {
		return "", err
	}

	state, err := util.RandomState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	now := s.now()
	err = s.store.CreateConnectionState(ctx, &models.ConnectionState{
		StateHash: util.SHA256Hex(state),
		ProjectID: projectID,
		UserID:    userID,
		Provider:  models.ProviderGitHub,
		Flow:      flow,
		CreatedAt: now,
		ExpiresAt: now.Add(models.ConnectionStateTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	s.recorder.RecordConnectionStarted(string(flow))
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventGitConnectStarted,
		ProjectID:    projectID,
		ActorUserID:  userID,
		ResourceType: models.ResourceConnection,
		Action:       "Started GitHub " + string(flow) + " connection",
		Details:      models.AuditDetails{"flow": string(flow)},
		Success:      true,
	})
	return state, nil
}

// StartOAuth returns the GitHub authorize URL for the project.
func (s *ConnectionService) StartOAuth(ctx context.Context, projectID, userID string) (string, error) {
	if s.oauth == nil {
		return "", ErrFlowDisabled
	}
	state, err := s.issueState(ctx, projectID, userID, models.FlowOAuth)
	if err != nil {
		return "", err
	}
	return s.oauth.GetAuthURL(state), nil
}

// StartAppInstall returns the GitHub App installation URL for the project.
func (s *ConnectionService) StartAppInstall(ctx context.Context, projectID, userID string) (string, error) {
	if !s.factory.AppEnabled() {
		return "", ErrFlowDisabled
	}
	state, err := s.issueState(ctx, projectID, userID, models.FlowApp)
	if err != nil {
		return "", err
	}
	return s.factory.AppInstallURL(state), nil
}

// consumeState looks the state up and deletes it. The delete happens before
// any other check so a state can be redeemed at most once, whatever the
// outcome of the callback.
func (s *ConnectionService) consumeState(
	ctx context.Context,
	state string,
	flow models.ConnectionFlow,
) (*models.ConnectionState, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	st, err := s.store.GetConnectionStateByHash(ctx, util.SHA256Hex(state))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	if err := s.store.DeleteConnectionState(ctx, st.ID); err != nil {
		if errors.Is(err, store.ErrStateAlreadyConsumed) {
			return nil, ErrInvalidState
		}
		return st, fmt.Errorf("failed to consume state: %w", err)
	}

	if !s.now().Before(st.ExpiresAt) || st.Flow != flow {
		return st, ErrInvalidState
	}
	return st, nil
}

// fail records a failed callback and returns err for the caller.
func (s *ConnectionService) fail(
	ctx context.Context,
	st *models.ConnectionState,
	flow models.ConnectionFlow,
	err error,
) error {
	s.recorder.RecordConnectionCallback(string(flow), "error")

	entry := AuditLogEntry{
		EventType:    models.EventGitConnectFailed,
		ResourceType: models.ResourceConnection,
		Action:       "GitHub " + string(flow) + " connection failed",
		Details:      models.AuditDetails{"flow": string(flow)},
		Success:      false,
		ErrorMessage: err.Error(),
	}
	if st != nil {
		entry.ProjectID = st.ProjectID
		entry.ActorUserID = st.UserID
	}
	s.audit.Log(ctx, entry)

	s.log.Warn("git connection callback failed",
		"flow", flow, "project_id", entry.ProjectID, "error", err)
	return err
}

func (s *ConnectionService) succeed(
	ctx context.Context,
	st *models.ConnectionState,
	conn *models.GitConnection,
) *CallbackResult {
	flow := string(st.Flow)
	s.recorder.RecordConnectionCallback(flow, "success")
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventGitConnected,
		ProjectID:    st.ProjectID,
		ActorUserID:  st.UserID,
		ResourceType: models.ResourceConnection,
		ResourceID:   conn.ID,
		ResourceName: conn.AccountLogin,
		Action:       "Connected GitHub account " + conn.AccountLogin,
		Details: models.AuditDetails{
			"flow":         flow,
			"account_type": conn.AccountType,
			"auth_type":    string(conn.AuthType),
		},
		Success: true,
	})
	return &CallbackResult{ProjectID: st.ProjectID, Connection: conn}
}

// CompleteOAuth finishes the OAuth flow. providerError carries GitHub's own
// error parameter, such as access_denied when the user cancelled.
func (s *ConnectionService) CompleteOAuth(
	ctx context.Context,
	state, code, providerError string,
) (*CallbackResult, error) {
	st, err := s.consumeState(ctx, state, models.FlowOAuth)
	result := &CallbackResult{}
	if st != nil {
		result.ProjectID = st.ProjectID
	}
	if err != nil {
		return result, s.fail(ctx, st, models.FlowOAuth, err)
	}
	if providerError != "" {
		return result, s.fail(ctx, st, models.FlowOAuth,
			fmt.Errorf("%w: %s", ErrAuthorizationDenied, providerError))
	}
	if s.oauth == nil {
		return result, s.fail(ctx, st, models.FlowOAuth, ErrFlowDisabled)
	}

	tok, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return result, s.fail(ctx, st, models.FlowOAuth, fmt.Errorf("%w: %v", ErrTokenExchange, err))
	}

	account, err := s.factory.ForToken(tok.AccessToken).WithoutRetry().AuthenticatedAccount(ctx)
	if err != nil {
		return result, s.fail(ctx, st, models.FlowOAuth, fmt.Errorf("%w: %v", ErrAccountLookup, err))
	}

	sealed, err := s.sealer.Seal(tok.AccessToken)
	if err != nil {
		return result, s.fail(ctx, st, models.FlowOAuth, fmt.Errorf("%w: %v", ErrPersistConnection, err))
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	conn := &models.GitConnection{
		ProjectID:            st.ProjectID,
		Provider:             models.ProviderGitHub,
		AuthType:             models.AuthTypeOAuth,
		AccountID:            account.ID,
		AccountLogin:         account.Login,
		AccountType:          account.Type,
		AccessTokenEncrypted: sealed,
		TokenType:            strings.ToLower(tokenType),
		Scopes:               s.oauth.GrantedScopes(tok),
		Status:               models.ConnectionActive,
		ConnectedBy:          st.UserID,
	}
	if err := s.store.SaveConnection(ctx, conn); err != nil {
		return result, s.fail(ctx, st, models.FlowOAuth, fmt.Errorf("%w: %v", ErrPersistConnection, err))
	}

	return s.succeed(ctx, st, conn), nil
}

// CompleteAppInstall finishes the App installation flow.
func (s *ConnectionService) CompleteAppInstall(
	ctx context.Context,
	state, installationID, setupAction string,
) (*CallbackResult, error) {
	st, err := s.consumeState(ctx, state, models.FlowApp)
	result := &CallbackResult{}
	if st != nil {
		result.ProjectID = st.ProjectID
	}
	if err != nil {
		return result, s.fail(ctx, st, models.FlowApp, err)
	}

	if installationID == "" && setupAction == "request" {
		return result, s.fail(ctx, st, models.FlowApp, ErrInstallationPending)
	}
	instID, err := strconv.ParseInt(installationID, 10, 64)
	if err != nil || instID <= 0 {
		return result, s.fail(ctx, st, models.FlowApp,
			fmt.Errorf("%w: %q", ErrInvalidInstallation, installationID))
	}

	inst, err := s.factory.GetInstallation(ctx, instID)
	if err != nil {
		return result, s.fail(ctx, st, models.FlowApp, fmt.Errorf("%w: %v", ErrAccountLookup, err))
	}

	conn := &models.GitConnection{
		ProjectID:      st.ProjectID,
		Provider:       models.ProviderGitHub,
		AuthType:       models.AuthTypeApp,
		AccountID:      inst.Account.ID,
		AccountLogin:   inst.Account.Login,
		AccountType:    inst.Account.Type,
		InstallationID: &inst.ID,
		Status:         models.ConnectionActive,
		ConnectedBy:    st.UserID,
	}
	if err := s.store.SaveConnection(ctx, conn); err != nil {
		return result, s.fail(ctx, st, models.FlowApp, fmt.Errorf("%w: %v", ErrPersistConnection, err))
	}

	// A reinstall may reuse the id; never serve a token minted for the old one
	s.factory.InvalidateInstallationToken(ctx, inst.ID)

	return s.succeed(ctx, st, conn), nil
}

// GetStatus reports the project's connection to members.
func (s *ConnectionService) GetStatus(ctx context.Context, projectID, userID string) (*StatusView, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapView); err != nil {
		return nil, err
	}

	view := &StatusView{OAuthAvailable: s.oauth != nil, AppAvailable: s.factory.AppEnabled()}
	conn, err := s.store.GetConnection(ctx, projectID, models.ProviderGitHub)
	if errors.Is(err, store.ErrRecordNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	view.Connection = conn
	view.Connected = conn.IsActive()
	return view, nil
}

// Revoke disconnects the project from GitHub.
func (s *ConnectionService) Revoke(ctx context.Context, projectID, userID string) (*models.GitConnection, error) {
	if err := s.perms.Require(ctx, projectID, userID, CapConnectGit); err != nil {
		return nil, err
	}

	conn, err := s.store.GetConnection(ctx, projectID, models.ProviderGitHub)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	if err := s.revoke(ctx, conn, userID, true); err != nil {
		return nil, err
	}
	return conn, nil
}

// revoke moves conn to revoked, erases its credential and deselects its
// repositories. Provider-side revocation is best effort.
func (s *ConnectionService) revoke(ctx context.Context, conn *models.GitConnection, actorID string, notifyProvider bool) error {
	if notifyProvider {
		s.revokeAtProvider(ctx, conn)
	}
	if conn.InstallationID != nil {
		s.factory.InvalidateInstallationToken(ctx, *conn.InstallationID)
	}

	now := s.now()
	conn.Status = models.ConnectionRevoked
	conn.RevokedAt = &now
	conn.AccessTokenEncrypted = ""
	conn.LastError = ""
	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return fmt.Errorf("failed to revoke connection: %w", err)
	}

	cleared, err := s.store.ClearSelection(ctx, conn.ID)
	if err != nil {
		return fmt.Errorf("failed to clear repository selection: %w", err)
	}

	s.recorder.RecordConnectionRevoked()
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventGitDisconnected,
		ProjectID:    conn.ProjectID,
		ActorUserID:  actorID,
		ResourceType: models.ResourceConnection,
		ResourceID:   conn.ID,
		ResourceName: conn.AccountLogin,
		Action:       "Disconnected GitHub account " + conn.AccountLogin,
		Details:      models.AuditDetails{"repositories_deselected": cleared},
		Success:      true,
	})
	return nil
}

func (s *ConnectionService) revokeAtProvider(ctx context.Context, conn *models.GitConnection) {
	var err error
	switch {
	case conn.AuthType == models.AuthTypeApp && conn.InstallationID != nil:
		err = s.factory.RevokeInstallationToken(ctx, *conn.InstallationID)
	case conn.AccessTokenEncrypted != "":
		var token string
		token, err = s.sealer.Open(conn.AccessTokenEncrypted)
		if err == nil {
			err = s.factory.RevokeOAuthGrant(ctx, token)
		}
	}
	if err != nil {
		s.log.Warn("provider-side revocation failed",
			"connection_id", conn.ID, "auth_type", conn.AuthType, "error", err)
	}
}

// MarkError records that GitHub rejected the stored credential.
func (s *ConnectionService) MarkError(ctx context.Context, conn *models.GitConnection, cause error) error {
	conn.Status = models.ConnectionError
	conn.LastError = truncate(cause.Error(), 500)
	if err := s.store.UpdateConnection(ctx, conn); err != nil {
		return fmt.Errorf("failed to mark connection error: %w", err)
	}
	if conn.InstallationID != nil {
		s.factory.InvalidateInstallationToken(ctx, *conn.InstallationID)
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventGitConnectionLost,
		Severity:     models.SeverityError,
		ProjectID:    conn.ProjectID,
		ResourceType: models.ResourceConnection,
		ResourceID:   conn.ID,
		ResourceName: conn.AccountLogin,
		Action:       "GitHub rejected the stored credential",
		Success:      false,
		ErrorMessage: conn.LastError,
	})
	return nil
}

// activeClient returns the project's connection and a client for it.
func (s *ConnectionService) activeClient(ctx context.Context, projectID string) (*models.GitConnection, *github.Client, error) {
	conn, err := s.store.GetConnection(ctx, projectID, models.ProviderGitHub)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if !conn.IsActive() {
		return nil, nil, ErrConnectionInactive
	}

	client, err := s.factory.ForConnection(ctx, conn)
	if err != nil {
		return nil, nil, s.providerError(ctx, conn, err)
	}
	return conn, client, nil
}

// providerError turns a GitHub failure into a service error, moving the
// connection to the error state when the credential itself was rejected.
func (s *ConnectionService) providerError(ctx context.Context, conn *models.GitConnection, err error) error {
	if github.IsUnauthorized(err) || errors.Is(err, github.ErrNoCredential) {
		if markErr := s.MarkError(ctx, conn, err); markErr != nil {
			s.log.Error("failed to mark connection error", "connection_id", conn.ID, "error", markErr)
		}
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return fmt.Errorf("github: %w", err)
}

// touch records credential use; failures only matter to the logs.
func (s *ConnectionService) touch(ctx context.Context, conn *models.GitConnection) {
	if err := s.store.TouchConnection(ctx, conn.ID, s.now()); err != nil {
		s.log.Debug("failed to touch connection", "connection_id", conn.ID, "error", err)
	}
}

// PurgeExpiredStates deletes handshake states nobody redeemed in time.
func (s *ConnectionService) PurgeExpiredStates(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredConnectionStates(ctx, s.now())
}

// HandleInstallationDeleted revokes every connection bound to an App
// installation that was uninstalled on GitHub.
func (s *ConnectionService) HandleInstallationDeleted(ctx context.Context, installationID int64) (int, error) {
	conns, err := s.store.ListConnectionsByInstallation(ctx, installationID)
	if err != nil {
		return 0, fmt.Errorf("failed to list connections: %w", err)
	}

	revoked := 0
	var errs []error
	for i := range conns {
		conn := &conns[i]
		if conn.Status == models.ConnectionRevoked {
			continue
		}
		// The installation is already gone; nothing to revoke remotely
		if err := s.revoke(ctx, conn, "", false); err != nil {
			errs = append(errs, err)
			continue
		}
		revoked++
	}
	return revoked, errors.Join(errs...)
}
