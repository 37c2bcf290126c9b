package github

import (
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GitHub rejects App JWTs living longer than 10 minutes and tolerates little
// clock drift, so iat is backdated and exp kept under the cap.
const (
	appJWTBackdate = 60 * time.Second
	appJWTLifetime = 9 * time.Minute
)

// AppSigner mints RS256 JWTs that authenticate as the GitHub App itself.
type AppSigner struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func NewAppSigner(appID int64, privateKeyPEM []byte) (*AppSigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	return &AppSigner{appID: appID, key: key, now: time.Now}, nil
}

func (s *AppSigner) Sign() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}
