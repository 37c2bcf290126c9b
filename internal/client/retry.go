package client

import (
	"fmt"
	"net/http"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
)

// RetryClientConfig describes an authenticated, retrying client for
// service-to-service calls such as the identity API.
type RetryClientConfig struct {
	AuthMode           string // "none", "simple", or "hmac"
	AuthSecret         string
	AuthHeader         string
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxRetries         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
}

// CreateRetryClient creates an HTTP client with retry support and authentication.
func CreateRetryClient(cfg RetryClientConfig) (*retry.Client, error) {
	authMode := cfg.AuthMode
	if authMode == "" {
		authMode = httpclient.AuthModeNone
	}

	client, err := httpclient.NewAuthClient(
		authMode,
		cfg.AuthSecret,
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithHeaderName(cfg.AuthHeader),
		httpclient.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(cfg.MaxRetries),
		retry.WithInitialRetryDelay(cfg.RetryDelay),
		retry.WithMaxRetryDelay(cfg.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	return retryClient, nil
}

// CreateProviderClient builds the plain HTTP client used for GitHub REST and
// OAuth traffic. Retries for those calls are handled per operation, so this
// client never retries on its own.
func CreateProviderClient(timeout time.Duration, insecureSkipVerify bool) (*http.Client, error) {
	c, err := httpclient.NewClient(
		httpclient.WithTimeout(timeout),
		httpclient.WithTransport(CreateOptimizedTransport(insecureSkipVerify)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider client: %w", err)
	}
	return c, nil
}
