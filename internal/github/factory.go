package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/retry"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	gh "github.com/google/go-github/v66/github"
)

const (
	// Installation tokens live one hour; refresh five minutes early.
	installationTokenTTL    = 55 * time.Minute
	installationTokenMargin = 5 * time.Minute
)

// Config holds everything the factory needs to authenticate against GitHub.
type Config struct {
	APIBaseURL   string // e.g. https://api.github.com/ or https://ghe.example.com/api/v3/
	WebURL       string // e.g. https://github.com
	ClientID     string
	ClientSecret string

	AppID         int64
	AppSlug       string
	AppPrivateKey []byte // PEM; empty disables App support

	MaxAttempts int
	RetryDelay  time.Duration
}

// Factory builds per-connection API clients.
type Factory struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	sealer     *util.Sealer
	tokens     core.Cache[InstallationToken]
	signer     *AppSigner
	recorder   core.Recorder
	log        *logger.Logger
}

func NewFactory(
	cfg Config,
	httpClient *http.Client,
	sealer *util.Sealer,
	tokens core.Cache[InstallationToken],
	recorder core.Recorder,
	log *logger.Logger,
) (*Factory, error) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com/"
	}
	if !strings.HasSuffix(cfg.APIBaseURL, "/") {
		cfg.APIBaseURL += "/"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "https://github.com"
	}
	cfg.WebURL = strings.TrimSuffix(cfg.WebURL, "/")

	baseURL, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	f := &Factory{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		sealer:     sealer,
		tokens:     tokens,
		recorder:   recorder,
		log:        log,
	}

	if len(cfg.AppPrivateKey) > 0 {
		signer, err := NewAppSigner(cfg.AppID, cfg.AppPrivateKey)
		if err != nil {
			return nil, err
		}
		f.signer = signer
	}
	return f, nil
}

func (f *Factory) newGH(httpClient *http.Client, token string) *gh.Client {
	c := gh.NewClient(httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	c.BaseURL = f.baseURL
	return c
}

func (f *Factory) wrap(c *gh.Client, authType models.AuthType) *Client {
	return &Client{
		gh:       c,
		authType: authType,
		recorder: f.recorder,
		retryOpts: []retry.Option{
			retry.WithMaxAttempts(f.cfg.MaxAttempts),
			retry.WithDelay(f.cfg.RetryDelay),
		},
	}
}

// ForToken builds a client for a plaintext OAuth token, as used right after
// the code exchange.
func (f *Factory) ForToken(token string) *Client {
	return f.wrap(f.newGH(f.httpClient, token), models.AuthTypeOAuth)
}

// ForConnection builds a client from a stored connection: the sealed OAuth
// token, or a just-in-time installation token for App connections.
func (f *Factory) ForConnection(ctx context.Context, conn *models.GitConnection) (*Client, error) {
	switch conn.AuthType {
	case models.AuthTypeApp:
		if conn.InstallationID == nil {
			return nil, ErrNoCredential
		}
		token, err := f.installationToken(ctx, *conn.InstallationID)
		if err != nil {
			return nil, err
		}
		return f.wrap(f.newGH(f.httpClient, token), models.AuthTypeApp), nil
	default:
		if conn.AccessTokenEncrypted == "" {
			return nil, ErrNoCredential
		}
		token, err := f.sealer.Open(conn.AccessTokenEncrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt connection token: %w", err)
		}
		return f.ForToken(token), nil
	}
}

func installationKey(id int64) string {
	return "gh:installation:" + strconv.FormatInt(id, 10)
}

func (f *Factory) installationToken(ctx context.Context, installationID int64) (string, error) {
	key := installationKey(installationID)
	fetch := func(ctx context.Context, _ string) (InstallationToken, error) {
		return f.createInstallationToken(ctx, installationID)
	}

	tok, err := f.tokens.GetWithFetch(ctx, key, installationTokenTTL, fetch)
	if err != nil {
		return "", err
	}
	if time.Until(tok.ExpiresAt) > installationTokenMargin {
		return tok.Token, nil
	}

	// Cached entry outlived the token itself; mint a fresh one
	_ = f.tokens.Delete(ctx, key)
	tok, err = f.tokens.GetWithFetch(ctx, key, installationTokenTTL, fetch)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// appClient authenticates as the App with a freshly signed JWT.
func (f *Factory) appClient() (*gh.Client, error) {
	if f.signer == nil {
		return nil, ErrAppNotConfigured
	}
	jwtToken, err := f.signer.Sign()
	if err != nil {
		return nil, err
	}
	return f.newGH(f.httpClient, jwtToken), nil
}

func (f *Factory) createInstallationToken(ctx context.Context, installationID int64) (InstallationToken, error) {
	app, err := f.appClient()
	if err != nil {
		return InstallationToken{}, err
	}

	var tok *gh.InstallationToken
	err = f.wrap(app, models.AuthTypeApp).do(ctx, "create_installation_token", func(ctx context.Context) error {
		var err error
		tok, _, err = app.Apps.CreateInstallationToken(ctx, installationID, nil)
		return err
	})
	if err != nil {
		return InstallationToken{}, err
	}
	if tok.GetToken() == "" {
		return InstallationToken{}, shapeErr("installation token", "token")
	}

	expires := time.Now().Add(time.Hour)
	if tok.ExpiresAt != nil {
		expires = tok.ExpiresAt.Time
	}
	return InstallationToken{Token: tok.GetToken(), ExpiresAt: expires}, nil
}

// GetInstallation fetches an installation's account with a single attempt.
func (f *Factory) GetInstallation(ctx context.Context, installationID int64) (Installation, error) {
	app, err := f.appClient()
	if err != nil {
		return Installation{}, err
	}

	var inst *gh.Installation
	err = f.wrap(app, models.AuthTypeApp).WithoutRetry().do(ctx, "get_installation", func(ctx context.Context) error {
		var err error
		inst, _, err = app.Apps.GetInstallation(ctx, installationID)
		return err
	})
	if err != nil {
		return Installation{}, err
	}
	if inst.ID == nil {
		return Installation{}, shapeErr("installation", "id")
	}
	account, err := toAccount(inst.GetAccount())
	if err != nil {
		return Installation{}, err
	}
	return Installation{ID: inst.GetID(), Account: account}, nil
}

// RevokeOAuthGrant invalidates an OAuth token at GitHub using the OAuth app's
// own credentials.
func (f *Factory) RevokeOAuthGrant(ctx context.Context, token string) error {
	if f.cfg.ClientID == "" || f.cfg.ClientSecret == "" {
		return errors.New("github: oauth app credentials not configured")
	}
	tp := &gh.BasicAuthTransport{
		Username:  f.cfg.ClientID,
		Password:  f.cfg.ClientSecret,
		Transport: f.httpClient.Transport,
	}
	c := f.newGH(tp.Client(), "")
	return f.wrap(c, models.AuthTypeOAuth).do(ctx, "revoke_oauth_grant", func(ctx context.Context) error {
		_, err := c.Authorizations.Revoke(ctx, f.cfg.ClientID, token)
		return err
	})
}

// RevokeInstallationToken revokes the cached installation token, if any, and
// drops it from the cache.
func (f *Factory) RevokeInstallationToken(ctx context.Context, installationID int64) error {
	key := installationKey(installationID)
	tok, err := f.tokens.Get(ctx, key)
	if err != nil {
		return nil
	}
	defer func() { _ = f.tokens.Delete(ctx, key) }()

	c := f.newGH(f.httpClient, tok.Token)
	return f.wrap(c, models.AuthTypeApp).do(ctx, "revoke_installation_token", func(ctx context.Context) error {
		_, err := c.Apps.RevokeInstallationToken(ctx)
		return err
	})
}

// InvalidateInstallationToken forgets a cached token without calling GitHub.
func (f *Factory) InvalidateInstallationToken(ctx context.Context, installationID int64) {
	if err := f.tokens.Delete(ctx, installationKey(installationID)); err != nil {
		f.log.Warn("failed to drop cached installation token", "installation_id", installationID, "error", err)
	}
}

// AppEnabled reports whether App credentials were configured.
func (f *Factory) AppEnabled() bool {
	return f.signer != nil && f.cfg.AppSlug != ""
}

// AppInstallURL is where a browser goes to install the App for an account.
func (f *Factory) AppInstallURL(state string) string {
	return fmt.Sprintf("%s/apps/%s/installations/new?state=%s",
		f.cfg.WebURL, url.PathEscape(f.cfg.AppSlug), url.QueryEscape(state))
}
