package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ Verifier = (*LocalVerifier)(nil)

// LocalVerifier validates HS256 JWTs signed with the shared JWT secret.
// The subject claim carries the user id.
type LocalVerifier struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewLocalVerifier creates a verifier that also mints tokens for local use.
func NewLocalVerifier(secret, issuer string, expiration time.Duration) *LocalVerifier {
	return &LocalVerifier{secret: []byte(secret), issuer: issuer, expiration: expiration}
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for userID. Used by the issue-token command and tests.
func (v *LocalVerifier) Issue(userID, email string) (*Issued, error) {
	now := time.Now()
	expiresAt := now.Add(v.expiration)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	})
	signed, err := tok.SignedString(v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Issued{TokenString: signed, TokenType: TokenTypeBearer, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates a JWT using the shared secret
func (v *LocalVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	parsed := &claims{}
	tok, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if parsed.Subject == "" {
		return nil, ErrMissingSubject
	}

	id := &Identity{UserID: parsed.Subject, Email: parsed.Email}
	if parsed.ExpiresAt != nil {
		id.ExpiresAt = parsed.ExpiresAt.Time
	}
	return id, nil
}

// Name returns provider name for logging
func (v *LocalVerifier) Name() string {
	return "local"
}
