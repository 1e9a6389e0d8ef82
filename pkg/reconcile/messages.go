package reconcile

import (
	"errors"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/profile"
)

// User-facing state messages.
const (
	msgAwaitingAction   = "Check your inbox for the confirmation link, or resend it below."
	msgStillPropagating = "Your confirmation is still being processed. This usually takes a few seconds."
	msgVerified         = "Your email is confirmed. Redirecting you now."
	msgGenericFailure   = "Something went wrong. Please try again."
)

// FailureMessage maps a classified error to the message shown to the user.
// Raw transport or authority text never reaches the UI.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, gateway.ErrEmailNotConfirmed):
		return "Confirm your email address before signing in. Check your inbox for the link."
	case errors.Is(err, gateway.ErrOrphanedAccount):
		return "This email is registered but its account setup never completed. Sign up again with the same address to finish it, or contact support."
	case errors.Is(err, gateway.ErrEmailAlreadyRegistered):
		return "An account with this email already exists. Try signing in instead."
	case errors.Is(err, gateway.ErrUsernameConflict), errors.Is(err, profile.ErrUsernameConflict):
		return "That username is already taken. Pick another one."
	case errors.Is(err, gateway.ErrUserNotFound):
		return "No account exists for this email address."
	case errors.Is(err, gateway.ErrRateLimited):
		return "Too many attempts. Wait a minute before trying again."
	case errors.Is(err, gateway.ErrSessionExpiredOrInvalid):
		return "Your session has expired. Request a new recovery link and try again."
	case errors.Is(err, gateway.ErrTokenExpiredOrInvalid):
		return "This link or code is invalid or has expired. Request a new one."
	case errors.Is(err, gateway.ErrWeakPasswordRejected):
		return "That password is too weak. Use at least 8 characters with a mix of cases, digits and symbols."
	case errors.Is(err, gateway.ErrEmailRequired):
		return "We could not determine which email this code belongs to. Enter your email address and try again."
	case errors.Is(err, gateway.ErrNetworkUnavailable), errors.Is(err, gateway.ErrTimeout):
		return "Connection problem. Check your network and try again."
	case errors.Is(err, gateway.ErrForbidden):
		return "Access denied for this account."
	case errors.Is(err, profile.ErrUpsertRaceUnresolved):
		return "Your account was confirmed but setting up your profile failed. Reload the page to retry."
	default:
		return msgGenericFailure
	}
}

// RecoveryFailureMessage selects the message for a failed recovery link by
// its sub-code.
func RecoveryFailureMessage(code string) string {
	switch code {
	case "access_denied":
		return "This recovery link was rejected. Request a new one."
	case "otp_expired":
		return "This recovery link has expired. Request a new one."
	case "invalid_token":
		return "This recovery link is invalid. Request a new one."
	default:
		return "This recovery link could not be used. Request a new one."
	}
}

// OAuthFailureMessage is shown on the sign-in page after a failed social
// sign-in. It never leaks provider error text.
func OAuthFailureMessage() string {
	return "Social sign-in failed. Try again, or sign in with your email and password."
}
