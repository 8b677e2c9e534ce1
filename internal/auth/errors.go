// Package auth defines the typed failure taxonomy shared by the engine's
// services and repositories. The consuming API layer maps these sentinels to
// user-facing responses; no caller should have to inspect message text.
package auth

import "errors"

var (
	// ErrNotFound means the named user, account type, or session token does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadCredential means the password did not match the stored hash.
	ErrBadCredential = errors.New("invalid credentials")
	// ErrDisabled means the account exists but is_active is false.
	ErrDisabled = errors.New("account disabled")
	// ErrExpired means the account or session is past its expires_at.
	ErrExpired = errors.New("expired")
	// ErrConflict means a uniqueness constraint (username) was violated.
	ErrConflict = errors.New("username already exists")
	// ErrDeviceMismatch means the account is bound to a different device.
	// This is a hard block; only an admin device reset clears the binding.
	ErrDeviceMismatch = errors.New("account is bound to another device")
	// ErrSessionInvalid means the session is deactivated or its owner is no
	// longer valid (cascading invalidation).
	ErrSessionInvalid = errors.New("session invalid")
	// ErrRecordingFailed means an audit/auth event could not be appended.
	// Callers must treat it as non-fatal to the primary operation.
	ErrRecordingFailed = errors.New("event recording failed")
	// ErrStoreUnavailable means the store failed or timed out during a primary
	// operation. Fatal to the request; the engine never retries.
	ErrStoreUnavailable = errors.New("store unavailable")
)
