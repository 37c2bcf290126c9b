package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/client"
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/token"
)

// TokenIssuer is the iss claim of locally minted bearer tokens.
const TokenIssuer = "neurelix-nexus"

// NewLocalVerifier builds the HS256 verifier, also used by the issue-token command.
func NewLocalVerifier(cfg *config.Config) *token.LocalVerifier {
	return token.NewLocalVerifier(cfg.JWTSecret, TokenIssuer, cfg.JWTExpiration)
}

// initializeTokenVerifier selects how bearer tokens are checked
func initializeTokenVerifier(cfg *config.Config, log *logger.Logger) (token.Verifier, error) {
	switch cfg.TokenProviderMode {
	case config.TokenProviderModeHTTPAPI:
		retryClient, err := client.CreateRetryClient(client.RetryClientConfig{
			AuthMode:           cfg.TokenAPIAuthMode,
			AuthSecret:         cfg.TokenAPIAuthSecret,
			AuthHeader:         cfg.TokenAPIAuthHeader,
			Timeout:            cfg.TokenAPITimeout,
			InsecureSkipVerify: cfg.TokenAPIInsecureSkipVerify,
			MaxRetries:         cfg.TokenAPIMaxRetries,
			RetryDelay:         cfg.TokenAPIRetryDelay,
			MaxRetryDelay:      cfg.TokenAPIMaxRetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create token API client: %w", err)
		}
		log.Info("bearer tokens verified by HTTP API", "url", cfg.TokenAPIURL)
		return token.NewHTTPVerifier(cfg.TokenAPIURL, retryClient), nil
	default:
		log.Info("bearer tokens verified locally (HS256)")
		return NewLocalVerifier(cfg), nil
	}
}

// createProviderHTTPClient builds the client shared by GitHub REST and OAuth calls
func createProviderHTTPClient(cfg *config.Config, log *logger.Logger) (*http.Client, error) {
	if cfg.GitHubInsecureSkipVerify {
		log.Warn("GitHub TLS verification is disabled (GITHUB_INSECURE_SKIP_VERIFY=true)")
	}
	return client.CreateProviderClient(cfg.GitHubTimeout, cfg.GitHubInsecureSkipVerify)
}
