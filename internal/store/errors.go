package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrStateAlreadyConsumed is returned by DeleteConnectionState when a
	// concurrent callback already removed the row (0 rows deleted).
	ErrStateAlreadyConsumed = errors.New("connection state already consumed")
)
