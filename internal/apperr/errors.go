// Package apperr holds the error taxonomy shared by the sync pipeline, the
// ad-platform client and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing is returned before any network call when a
	// required credential or account mapping is absent.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrMissingCredential means the agency access token is not configured.
	ErrMissingCredential = fmt.Errorf("%w: ad platform access token not set", ErrConfigurationMissing)
	// ErrMissingAccountID means the client has no ad-account id.
	ErrMissingAccountID = fmt.Errorf("%w: client has no ad account id", ErrConfigurationMissing)
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamRejected matches any *UpstreamRejectedError.
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrTransport wraps network-level failures talking to the ad platform.
	ErrTransport = errors.New("transport failure")
	// ErrSyncInProgress is returned when another sync holds the client lock.
	ErrSyncInProgress = errors.New("sync already in progress for client")
	// ErrInvalidInput marks a request rejected by validation.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamRejectedError carries a structured error returned by the ad
// platform. Message is the vendor text, passed through unchanged.
type UpstreamRejectedError struct {
	Message   string
	Type      string
	Code      int
	FBTraceID string
}

func (e *UpstreamRejectedError) Error() string {
	return "upstream rejected: " + e.Message
}

func (e *UpstreamRejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}
