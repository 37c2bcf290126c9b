package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubWebURL = "https://github.com"

// OAuthProviderConfig contains configuration for an OAuth provider
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// WebURL points at a GitHub Enterprise host; empty means github.com
	WebURL string
}

// OAuthProvider drives the authorization-code leg of the GitHub OAuth flow.
type OAuthProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewGitHubProvider creates a new GitHub OAuth provider. httpClient may be
// nil, in which case oauth2 falls back to http.DefaultClient.
func NewGitHubProvider(cfg OAuthProviderConfig, httpClient *http.Client) *OAuthProvider {
	endpoint := github.Endpoint
	if web := strings.TrimRight(cfg.WebURL, "/"); web != "" && web != defaultGitHubWebURL {
		endpoint = oauth2.Endpoint{
			AuthURL:  web + "/login/oauth/authorize",
			TokenURL: web + "/login/oauth/access_token",
		}
	}

	return &OAuthProvider{
		httpClient: httpClient,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
	}
}

// GetAuthURL returns the OAuth authorization URL carrying state
func (p *OAuthProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for an access token. It makes a
// single request; a failed exchange is never retried because codes are
// single-use on GitHub's side too.
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return nil, fmt.Errorf("%w: %s", ErrExchangeRejected, re.ErrorCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, ErrExchangeFailed
	}
	return tok, nil
}

// GrantedScopes returns the scopes GitHub reports on the token response,
// falling back to the requested ones when the field is absent.
func (p *OAuthProvider) GrantedScopes(tok *oauth2.Token) []string {
	raw, _ := tok.Extra("scope").(string)
	if raw == "" {
		return append([]string(nil), p.config.Scopes...)
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetProvider returns the provider name
func (p *OAuthProvider) GetProvider() string {
	return "github"
}
