package services

import "errors"

// Permission errors
var (
	ErrNotMember = errors.New("not a member of this project")
	ErrForbidden = errors.New("insufficient permissions")
)

// Lookup errors
var (
	ErrConnectionNotFound  = errors.New("git connection not found")
	ErrRepositoryNotFound  = errors.New("repository not found")
	ErrPullRequestNotFound = errors.New("pull request not found")
	ErrTarefaNotFound      = errors.New("tarefa not found")
	ErrLinkNotFound        = errors.New("link not found")
)

// Connection errors
var (
	ErrConnectionInactive = errors.New("git connection is not active")
	// ErrConnectionLost is returned when GitHub rejects a stored credential;
	// the connection has been moved to the error state.
	ErrConnectionLost = errors.New("git connection credential was rejected, reconnect required")
	ErrFlowDisabled   = errors.New("connection flow is not configured")
)

// Handshake callback errors. Each maps to a short redirect reason.
var (
	ErrInvalidState        = errors.New("invalid or expired state")
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrTokenExchange       = errors.New("token exchange failed")
	ErrAccountLookup       = errors.New("account lookup failed")
	ErrPersistConnection   = errors.New("failed to save connection")
	ErrInvalidInstallation = errors.New("invalid installation")
	ErrInstallationPending = errors.New("installation pending approval")
)

// Webhook errors
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)
