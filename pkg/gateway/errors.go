package gateway

import "errors"

// Authority-reported errors. Produced exclusively by the classification
// table in classify.go; call sites branch with errors.Is.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailNotConfirmed      = errors.New("email not confirmed")
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUsernameConflict       = errors.New("username already taken")
	ErrOrphanedAccount        = errors.New("account exists without a profile")
	ErrRateLimited            = errors.New("rate limited by authority")
	ErrForbidden              = errors.New("forbidden")
	ErrTokenExpiredOrInvalid  = errors.New("token expired or invalid")
	ErrWeakPasswordRejected   = errors.New("password rejected by authority")
)

// Session errors.
var (
	ErrNoSession               = errors.New("no session")
	ErrSessionExpiredOrInvalid = errors.New("session expired or invalid")
	ErrSessionNotVisible       = errors.New("session write not visible after sign-in")
	ErrSessionStillVisible     = errors.New("session still visible after sign-out")
)

// Transport errors.
var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("request timed out")
	ErrUnexpectedResponse = errors.New("unexpected authority response")
)

// Input errors raised before any network call.
var (
	ErrEmailRequired   = errors.New("email required")
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrUnknownPurpose  = errors.New("unsupported verification purpose")
)
