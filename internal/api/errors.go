package api

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed remote call at the HTTP-response boundary.
// The sync engine branches retry behavior on it: only Transient failures
// consume retry budget, Permanent ones are dropped on the spot, and
// AuthExpired halts replay until the session is renewed.
type ErrorKind int

const (
	// KindTransient covers network errors, timeouts, 5xx, 408 and 429.
	KindTransient ErrorKind = iota

	// KindPermanent covers non-auth 4xx: validation failures, not-found.
	// Retrying these can never succeed.
	KindPermanent

	// KindAuthExpired is a 401 carrying an expiration signal.
	KindAuthExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindAuthExpired:
		return "auth_expired"
	default:
		return "unknown"
	}
}

// Error is a classified remote-call failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.StatusCode, e.Message)
}

// Retryable reports whether the failure should consume retry budget.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// transportError wraps a failure that happened before any HTTP response
// arrived (DNS, connect, timeout). Always transient.
func transportError(err error) *Error {
	return &Error{Kind: KindTransient, Message: err.Error()}
}

// classifyResponse maps an unsuccessful HTTP response to an Error.
func classifyResponse(status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized && looksExpired(body):
		return &Error{Kind: KindAuthExpired, StatusCode: status, Message: msg}
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return &Error{Kind: KindTransient, StatusCode: status, Message: msg}
	default:
		return &Error{Kind: KindPermanent, StatusCode: status, Message: msg}
	}
}

// looksExpired detects the API's token-expiration indicator in a 401 body.
func looksExpired(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "expired")
}
