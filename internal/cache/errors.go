package cache

import "errors"

// Callers treat a miss as "mint a new installation token"; the other two
// errors surface as a failed GitHub call.
var (
	ErrCacheMiss        = errors.New("cache: key not found")
	ErrCacheUnavailable = errors.New("cache: redis unreachable")
	ErrInvalidValue     = errors.New("cache: stored value does not decode")
)
