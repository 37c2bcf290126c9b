package models

import "time"

// ConnectionStateTTL is how long an issued handshake state stays redeemable.
const ConnectionStateTTL = 5 * time.Minute

// ConnectionFlow distinguishes OAuth App authorizations from GitHub App installs.
type ConnectionFlow string

const (
	FlowOAuth ConnectionFlow = "oauth"
	FlowApp   ConnectionFlow = "app"
)

// ConnectionState is a pending provider handshake. Only the SHA-256 of the
// state token is stored; the plaintext travels through the provider redirect.
// Rows are single-use and deleted as soon as a callback looks them up.
type ConnectionState struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	StateHash string         `gorm:"uniqueIndex;not null;size:64"` // SHA256(state)
	ProjectID string         `gorm:"not null;index"`
	UserID    string         `gorm:"not null"`
	Provider  string         `gorm:"not null;type:varchar(20)"`
	Flow      ConnectionFlow `gorm:"not null;type:varchar(10)"`
	ExpiresAt time.Time      `gorm:"not null;index"`
	CreatedAt time.Time
}

func (s *ConnectionState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (ConnectionState) TableName() string {
	return "git_connection_states"
}
