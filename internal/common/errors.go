// Package common defines shared sentinel errors used across the sync
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Queue-level errors.
	ErrOperationNotFound = errors.New("queued operation not found")

	// Sync engine flow control.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrOffline        = errors.New("no network connection")

	// Auth/token lifecycle.
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
)
