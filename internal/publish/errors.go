package publish

import (
	"errors"
	"fmt"
)

// Terminal pipeline errors. Every one of these ends the attempt with exactly
// one FAILED status write and one notification; none is retried within the
// same invocation.
var (
	ErrNoConnectedAccount = errors.New("no connected social account for this brand")
	ErrTokenExpired       = errors.New("access token expired and could not be refreshed")
)

// MediaValidationError means the media does not meet the platform's
// constraints. It is raised before any network call is made.
type MediaValidationError struct {
	Reason string
}

func (e *MediaValidationError) Error() string {
	return "media validation failed: " + e.Reason
}

// MediaTransferError wraps a network or platform failure during upload.
// Whether it fails the attempt depends on the adapter's failure policy.
type MediaTransferError struct {
	Err error
}

func (e *MediaTransferError) Error() string {
	return fmt.Sprintf("media transfer failed: %v", e.Err)
}

func (e *MediaTransferError) Unwrap() error {
	return e.Err
}

// PlatformError is a normalized platform-level rejection. Detail preserves
// the raw payload for operator debugging regardless of the shape the
// platform returned it in.
type PlatformError struct {
	Platform   string
	StatusCode int
	Detail     string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s rejected the request (status %d): %s", e.Platform, e.StatusCode, e.Detail)
}
