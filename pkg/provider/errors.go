package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a provider failure for diagnostics. The council layer
// absorbs every kind the same way; the classification only drives logging
// and metrics.
type ErrorKind string

const (
	// KindAuth covers rejected or missing credentials (HTTP 401/403).
	KindAuth ErrorKind = "auth"

	// KindRateLimited covers quota and throughput rejections (HTTP 429).
	KindRateLimited ErrorKind = "rate_limited"

	// KindTimeout covers deadline expiry, both local (context) and
	// network-level.
	KindTimeout ErrorKind = "timeout"

	// KindProvider covers everything else the backend can do wrong:
	// server errors, malformed responses, unknown models, network faults.
	KindProvider ErrorKind = "provider"
)

// Error is a classified provider failure. Status carries the upstream HTTP
// status code when one was observed, 0 otherwise.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewAuthError creates a classified authentication failure.
func NewAuthError(status int, message string) *Error {
	return &Error{Kind: KindAuth, Status: status, Message: message}
}

// NewRateLimitError creates a classified rate-limit failure.
func NewRateLimitError(status int, message string) *Error {
	return &Error{Kind: KindRateLimited, Status: status, Message: message}
}

// NewTimeoutError creates a classified timeout failure.
func NewTimeoutError(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// NewUpstreamError creates an unclassified provider failure.
func NewUpstreamError(status int, message string) *Error {
	return &Error{Kind: KindProvider, Status: status, Message: message}
}

// ClassifyStatus maps an upstream HTTP status code to an ErrorKind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	case status == 408 || status == 504:
		return KindTimeout
	default:
		return KindProvider
	}
}

// KindOf classifies an arbitrary error returned by a Provider. Classified
// *Error values report their own kind; context deadline expiry and net
// timeouts report KindTimeout; everything else is KindProvider.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindProvider
}
