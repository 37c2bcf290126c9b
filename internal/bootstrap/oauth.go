package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/auth"
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/util"
)

const oauthCallbackPath = "/api/v1/git/oauth/callback"

// initializeOAuthProvider returns nil when the OAuth App flow is off, which
// makes the start endpoint answer "not configured".
func initializeOAuthProvider(
	cfg *config.Config,
	httpClient *http.Client,
	log *logger.Logger,
) *auth.OAuthProvider {
	switch {
	case !cfg.GitHubOAuthEnabled:
		log.Info("GitHub OAuth flow disabled")
		return nil
	case cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "":
		log.Warn("GitHub OAuth enabled but GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET missing")
		return nil
	}

	redirectURL := cfg.GitHubOAuthRedirectURL
	if redirectURL == "" {
		redirectURL = cfg.BaseURL + oauthCallbackPath
	}
	log.Info("GitHub OAuth configured", "redirect", redirectURL, "scopes", cfg.GitHubOAuthScopes)

	return auth.NewGitHubProvider(auth.OAuthProviderConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       cfg.GitHubOAuthScopes,
		WebURL:       cfg.GitHubWebURL,
	}, httpClient)
}

// initializeGitHubFactory builds the per-connection API client factory
func initializeGitHubFactory(
	cfg *config.Config,
	httpClient *http.Client,
	sealer *util.Sealer,
	tokens core.Cache[github.InstallationToken],
	recorder metrics.Recorder,
	log *logger.Logger,
) (*github.Factory, error) {
	var appKey []byte
	if cfg.GitHubAppEnabled {
		var err error
		appKey, err = cfg.AppPrivateKeyPEM()
		if err != nil {
			return nil, fmt.Errorf("failed to load GitHub App private key: %w", err)
		}
		log.Info("GitHub App configured", "app_id", cfg.GitHubAppID, "slug", cfg.GitHubAppSlug)
	}

	factory, err := github.NewFactory(github.Config{
		APIBaseURL:    cfg.GitHubAPIURL,
		WebURL:        cfg.GitHubWebURL,
		ClientID:      cfg.GitHubClientID,
		ClientSecret:  cfg.GitHubClientSecret,
		AppID:         cfg.GitHubAppID,
		AppSlug:       cfg.GitHubAppSlug,
		AppPrivateKey: appKey,
		MaxAttempts:   cfg.GitHubMaxAttempts,
		RetryDelay:    cfg.GitHubRetryDelay,
	}, httpClient, sealer, tokens, recorder, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GitHub client factory: %w", err)
	}
	return factory, nil
}
