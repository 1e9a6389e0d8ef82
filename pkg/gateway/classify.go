package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// authorityMapping binds one (status, message substring) pair to a taxonomy
// error. A zero status matches any status; an empty substring matches any
// message. First match wins, so specific message rules precede bare status
// rules.
type authorityMapping struct {
	status int
	substr string
	mapped error
}

// authorityErrorTable is the only place raw authority message text is ever
// inspected. Substrings are matched case-insensitively against both the
// machine code and human message fields of the error payload.
var authorityErrorTable = []authorityMapping{
	// Message-specific rules first.
	{http.StatusBadRequest, "invalid login credentials", ErrInvalidCredentials},
	{http.StatusBadRequest, "invalid_credentials", ErrInvalidCredentials},
	{http.StatusBadRequest, "email not confirmed", ErrEmailNotConfirmed},
	{http.StatusForbidden, "email not confirmed", ErrEmailNotConfirmed},
	{http.StatusBadRequest, "user already registered", ErrEmailAlreadyRegistered},
	{http.StatusUnprocessableEntity, "user already registered", ErrEmailAlreadyRegistered},
	{http.StatusUnprocessableEntity, "email_exists", ErrEmailAlreadyRegistered},
	{http.StatusBadRequest, "user not found", ErrUserNotFound},
	{http.StatusNotFound, "user not found", ErrUserNotFound},
	{http.StatusUnprocessableEntity, "password should be", ErrWeakPasswordRejected},
	{http.StatusUnprocessableEntity, "weak_password", ErrWeakPasswordRejected},
	{http.StatusBadRequest, "weak_password", ErrWeakPasswordRejected},
	{http.StatusBadRequest, "otp_expired", ErrTokenExpiredOrInvalid},
	{http.StatusBadRequest, "token has expired or is invalid", ErrTokenExpiredOrInvalid},
	{http.StatusForbidden, "token has expired or is invalid", ErrTokenExpiredOrInvalid},
	{http.StatusUnauthorized, "invalid token", ErrTokenExpiredOrInvalid},
	{http.StatusBadRequest, "invalid flow state", ErrTokenExpiredOrInvalid},
	{http.StatusBadRequest, "refresh_token_not_found", ErrTokenExpiredOrInvalid},
	{http.StatusBadRequest, "invalid refresh token", ErrTokenExpiredOrInvalid},

	// Bare status fallbacks.
	{http.StatusTooManyRequests, "", ErrRateLimited},
	{http.StatusForbidden, "", ErrForbidden},
	{http.StatusUnauthorized, "", ErrTokenExpiredOrInvalid},
}

// classifyAuthorityError maps an authority error payload into the taxonomy.
// code and message are the machine and human fields of the payload; either
// may be empty.
func classifyAuthorityError(status int, code, message string) error {
	haystack := strings.ToLower(code + " " + message)

	for _, m := range authorityErrorTable {
		if m.status != 0 && m.status != status {
			continue
		}
		if m.substr != "" && !strings.Contains(haystack, m.substr) {
			continue
		}
		return m.mapped
	}

	return ErrUnexpectedResponse
}

// classifyTransportError maps request-level failures (no HTTP response) into
// the transport taxonomy.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return ErrNetworkUnavailable
}

// isTransient reports whether an already-classified error may succeed on
// retry. Rate limiting is deliberately excluded: the caller surfaces a
// wait-and-retry message instead of hammering the authority.
func isTransient(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) || errors.Is(err, ErrTimeout)
}
