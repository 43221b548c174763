// Package common defines shared constants and sentinel errors used across
// the server and the device agent. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Create-time errors surfaced to the compose flow.
	ErrValidation = errors.New("validation error")
	ErrPermission = errors.New("permission denied")

	// Transient errors: the store or push channel is unreachable. Sync-time
	// callers log these and leave the previous cache bundle intact.
	ErrUnavailable = errors.New("store unavailable")

	// The aggregated query path is missing on this deployment. Never
	// surfaced to callers; the query service falls back silently.
	ErrCapabilityUnavailable = errors.New("aggregated query unavailable")

	// Session errors.
	ErrInvalidToken = errors.New("invalid session token")
)
