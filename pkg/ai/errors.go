package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// BackendErrorKind classifies a backend failure.
type BackendErrorKind string

const (
	KindUnreachable BackendErrorKind = "unreachable"
	KindAuth        BackendErrorKind = "auth"
	KindRateLimited BackendErrorKind = "rate_limited"
	KindServer      BackendErrorKind = "server"
	KindUnknown     BackendErrorKind = "unknown"
)

// BackendError is the uniform failure of any model backend. The original
// cause is kept for diagnostics and is reachable with errors.Unwrap.
type BackendError struct {
	Backend string
	Kind    BackendErrorKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend failed (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err, choosing the kind from the HTTP status when one
// is known (status <= 0 means none) and from the error chain otherwise.
// Context cancellation is returned unwrapped so callers can tell a timeout
// apart from a backend fault.
func NewBackendError(backend string, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var existing *BackendError
	if errors.As(err, &existing) {
		return err
	}
	return &BackendError{Backend: backend, Kind: classify(status, err), Err: err}
}

func classify(status int, err error) BackendErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	return KindUnknown
}

// IsBackendError reports whether err carries a *BackendError.
func IsBackendError(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}
