package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/retry"

	gh "github.com/google/go-github/v66/github"
)

var (
	// ErrUnexpectedShape is returned when a provider payload lacks a required field.
	ErrUnexpectedShape = errors.New("github: unexpected payload shape")

	// ErrNoCredential means the connection has nothing to authenticate with.
	ErrNoCredential = errors.New("github: connection has no usable credential")

	// ErrAppNotConfigured is returned for App operations without App credentials.
	ErrAppNotConfigured = errors.New("github: app credentials not configured")
)

// APIError is a classified GitHub failure. It satisfies retry.StatusCoder so
// the retrier can tell rate limits from everything else.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: status %d", e.Status)
	}
	return fmt.Sprintf("github: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error   { return e.Err }
func (e *APIError) HTTPStatus() int { return e.Status }

var _ retry.StatusCoder = (*APIError)(nil)

// classify maps go-github error types onto APIError. Transport errors pass
// through unchanged and are therefore never retried.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Status: statusOr(rateErr.Response, http.StatusForbidden), Message: rateErr.Message, Err: err}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{Status: statusOr(abuseErr.Response, http.StatusForbidden), Message: abuseErr.Message, Err: err}
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) {
		return &APIError{Status: statusOr(respErr.Response, http.StatusInternalServerError), Message: respErr.Message, Err: err}
	}

	return err
}

func statusOr(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}

// IsUnauthorized reports a rejected credential (HTTP 401).
func IsUnauthorized(err error) bool {
	return retry.StatusOf(err) == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	return retry.StatusOf(err) == http.StatusNotFound
}

// IsValidation reports a request GitHub refused as invalid (422), e.g. a PR
// for a head with no commits ahead of base.
func IsValidation(err error) bool {
	return retry.StatusOf(err) == http.StatusUnprocessableEntity
}

// IsNotMergeable covers 405 (not mergeable) and 409 (head moved).
func IsNotMergeable(err error) bool {
	s := retry.StatusOf(err)
	return s == http.StatusMethodNotAllowed || s == http.StatusConflict
}
