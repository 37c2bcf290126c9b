package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType represents the type of audit event
type EventType string

const (
	// Connection handshake
	EventGitConnectStarted EventType = "GIT_CONNECT_STARTED"
	EventGitConnected      EventType = "GIT_CONNECTED"
	EventGitConnectFailed  EventType = "GIT_CONNECT_FAILED"
	EventGitDisconnected   EventType = "GIT_DISCONNECTED"
	EventGitConnectionLost EventType = "GIT_CONNECTION_ERROR"

	// Repository mirror
	EventRepositorySynced   EventType = "REPOSITORY_SYNCED"
	EventRepositorySelected EventType = "REPOSITORY_SELECTION_CHANGED"

	// Pull requests
	EventPRCreated  EventType = "PR_CREATED"
	EventPRReviewed EventType = "PR_REVIEWED"
	EventPRMerged   EventType = "PR_MERGED"

	// Tarefa links
	EventLinkCreated EventType = "TAREFA_LINK_CREATED"
	EventLinkDeleted EventType = "TAREFA_LINK_DELETED"

	// Webhooks
	EventWebhookRejected EventType = "WEBHOOK_REJECTED"

	// Security events
	EventPermissionDenied  EventType = "PERMISSION_DENIED"
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"

	// Audit events
	EventTypeAuditLogView EventType = "AUDIT_LOG_VIEWED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceConnection  ResourceType = "GIT_CONNECTION"
	ResourceRepository  ResourceType = "REPOSITORY"
	ResourcePullRequest ResourceType = "PULL_REQUEST"
	ResourceTarefaLink  ResourceType = "TAREFA_LINK"
	ResourceWebhook     ResourceType = "WEBHOOK"
	ResourceAuditLog    ResourceType = "AUDIT_LOG"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails = datatypes.JSONMap

// AuditLog represents an audit log entry
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Event information
	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Scope
	ProjectID string `gorm:"type:varchar(36);index" json:"project_id"`

	// Actor information
	ActorUserID string `gorm:"type:varchar(36);index" json:"actor_user_id"`
	ActorIP     string `gorm:"type:varchar(45);index" json:"actor_ip"` // Support IPv6

	// Resource information
	ResourceType ResourceType `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(64);index" json:"resource_id"`
	ResourceName string       `gorm:"type:varchar(255)"      json:"resource_name"`

	// Operation details
	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	// Request metadata
	UserAgent     string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	RequestPath   string `gorm:"type:varchar(500)" json:"request_path,omitempty"`
	RequestMethod string `gorm:"type:varchar(10)"  json:"request_method,omitempty"`

	// Timestamps (no UpdatedAt - immutable logs)
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}
