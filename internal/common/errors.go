// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Identification errors surfaced to callers of the orchestrator.
var (
	ErrQuotaExceeded          = errors.New("daily free scan limit reached (3/day)")
	ErrImageProcessingFailed  = errors.New("failed to process image for upload")
	ErrNetworkFailure         = errors.New("network error")
	ErrRateLimited            = errors.New("API rate limit reached, please try again later")
	ErrMalformedResponse      = errors.New("could not parse identification results")
	ErrCameraPermissionDenied = errors.New("camera access is required to scan wood")
)

// Configuration and storage errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NetworkError describes a failed remote call. StatusCode is zero when the
// request never produced an HTTP response.
type NetworkError struct {
	Err        error
	StatusCode int
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(statusCode int, err error) error {
	return &NetworkError{StatusCode: statusCode, Err: err}
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d): %v", ErrNetworkFailure, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrNetworkFailure, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", ErrNetworkFailure, e.StatusCode)
	default:
		return ErrNetworkFailure.Error()
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any NetworkError against ErrNetworkFailure.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// IsCancellation reports whether err stems from the caller abandoning the request.
func IsCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// UserMessage returns the human-readable message for an identification error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		return netErr.Error()
	case errors.Is(err, ErrQuotaExceeded):
		return "Daily free scan limit reached (3/day)."
	case errors.Is(err, ErrRateLimited):
		return "API rate limit reached. Please try again later."
	case errors.Is(err, ErrMalformedResponse):
		return "Could not parse identification results."
	case errors.Is(err, ErrImageProcessingFailed):
		return "Failed to process image for upload."
	case errors.Is(err, ErrCameraPermissionDenied):
		return "Camera access is required to scan wood."
	default:
		return err.Error()
	}
}
