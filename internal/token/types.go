package token

import (
	"context"
	"time"
)

// TokenTypeBearer is the only scheme accepted on the API.
const TokenTypeBearer = "Bearer"

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Verifier validates bearer tokens issued by the surrounding platform.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
	Name() string
}

// Issued is a freshly minted token, returned by the issue-token command.
type Issued struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
}
