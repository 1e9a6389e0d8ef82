package profile

import "errors"

var (
	// ErrNotFound indicates no profile row exists for the given identity.
	ErrNotFound = errors.New("profile not found")
	// ErrUsernameConflict indicates the username column's uniqueness
	// constraint rejected the write.
	ErrUsernameConflict = errors.New("username already taken")
	// ErrPermissionDenied indicates row-level security rejected the write.
	ErrPermissionDenied = errors.New("profile write denied by row-level security")
	// ErrUpsertRaceUnresolved indicates the upsert was denied under a live
	// session even after the retry.
	ErrUpsertRaceUnresolved = errors.New("profile upsert race not resolved")
	// ErrIdentityRequired indicates EnsureProfile was called without an
	// identity.
	ErrIdentityRequired = errors.New("identity is required")
)
