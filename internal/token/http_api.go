package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/appleboy/go-httpretry"
)

var _ Verifier = (*HTTPVerifier)(nil)

// HTTPVerifier delegates bearer validation to the platform's identity API.
type HTTPVerifier struct {
	url         string
	retryClient *retry.Client
}

// NewHTTPVerifier creates a verifier that POSTs tokens to url.
func NewHTTPVerifier(url string, retryClient *retry.Client) *HTTPVerifier {
	return &HTTPVerifier{url: url, retryClient: retryClient}
}

// APITokenValidateRequest is the request payload for token validation
type APITokenValidateRequest struct {
	Token string `json:"token"`
}

// APITokenValidateResponse is the expected response for token validation
type APITokenValidateResponse struct {
	Valid     bool   `json:"valid"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // Unix timestamp
	Message   string `json:"message,omitempty"`
}

// Verify requests token validation from the external API
func (v *HTTPVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	jsonData, err := json.Marshal(APITokenValidateRequest{Token: tokenString})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := v.retryClient.Post(
		ctx,
		v.url,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPTokenConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrHTTPTokenInvalidResp)
	}

	// A 4xx means the API reached a verdict about the token
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidToken, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrHTTPTokenInvalidResp, resp.StatusCode)
	}

	var apiResp APITokenValidateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPTokenInvalidResp, err)
	}

	if !apiResp.Valid {
		return nil, ErrInvalidToken
	}
	if apiResp.UserID == "" {
		return nil, ErrMissingSubject
	}

	id := &Identity{UserID: apiResp.UserID, Email: apiResp.Email}
	if apiResp.ExpiresAt > 0 {
		id.ExpiresAt = time.Unix(apiResp.ExpiresAt, 0)
		if time.Now().After(id.ExpiresAt) {
			return nil, ErrExpiredToken
		}
	}
	return id, nil
}

// Name returns provider name for logging
func (v *HTTPVerifier) Name() string {
	return "http_api"
}
