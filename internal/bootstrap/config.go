package bootstrap

import (
	"fmt"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
)

// validateConfiguration checks settings that only matter once the server is
// about to start.
func validateConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateRateLimitConfig(cfg); err != nil {
		return fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	if cfg.FrontendURL == "" {
		return fmt.Errorf("invalid configuration: FRONTEND_URL is required")
	}
	if cfg.GitHubOAuthEnabled && (cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "") {
		return fmt.Errorf(
			"invalid configuration: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required when GITHUB_OAUTH_ENABLED=true",
		)
	}
	return nil
}

func validateRateLimitConfig(cfg *config.Config) error {
	if !cfg.EnableRateLimit {
		return nil
	}
	for name, v := range map[string]int{
		"CALLBACK_RATE_LIMIT": cfg.CallbackRateLimit,
		"WEBHOOK_RATE_LIMIT":  cfg.WebhookRateLimit,
		"API_RATE_LIMIT":      cfg.APIRateLimit,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}
