package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProviderGitHub is the only provider implemented today.
const ProviderGitHub = "github"

// ConnectionStatus is the lifecycle state of a GitConnection.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionError   ConnectionStatus = "error"
	ConnectionRevoked ConnectionStatus = "revoked"
)

// AuthType records how the credential was obtained.
type AuthType string

const (
	AuthTypeOAuth AuthType = "oauth"
	AuthTypeApp   AuthType = "app"
)

// GitConnection binds a project to a provider account. There is at most one
// row per (project, provider); reconnecting updates it in place.
type GitConnection struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"                             json:"id"`
	ProjectID string   `gorm:"not null;index:idx_git_conn_project_provider,priority:1" json:"project_id"`
	Provider  string   `gorm:"not null;index:idx_git_conn_project_provider,priority:2" json:"provider"`
	AuthType  AuthType `gorm:"type:varchar(10);not null"                               json:"auth_type"`

	// Provider account snapshot
	AccountID    int64  `json:"account_id"`
	AccountLogin string `json:"account_login"`
	AccountType  string `gorm:"type:varchar(20)" json:"account_type"` // "User" or "Organization"

	// Set for GitHub App installations only
	InstallationID *int64 `gorm:"index" json:"installation_id,omitempty"`

	// Sealed with util.Sealer; never serialized
	AccessTokenEncrypted string                      `gorm:"type:text" json:"-"`
	TokenType            string                      `json:"-"`
	Scopes               datatypes.JSONSlice[string] `gorm:"type:json" json:"scopes"`

	Status      ConnectionStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	LastError   string           `gorm:"type:text"                       json:"last_error,omitempty"`
	ConnectedBy string           `gorm:"type:varchar(36)"                json:"connected_by"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (c *GitConnection) IsActive() bool {
	return c.Status == ConnectionActive
}

func (GitConnection) TableName() string {
	return "git_connections"
}
