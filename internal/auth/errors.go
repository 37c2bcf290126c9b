package auth

import "errors"

var (
	ErrMissingCode = errors.New("authorization code is missing")
	// ErrExchangeRejected means GitHub answered the exchange with an OAuth
	// error such as bad_verification_code.
	ErrExchangeRejected = errors.New("authorization code rejected")
	ErrExchangeFailed   = errors.New("token exchange failed")
)
