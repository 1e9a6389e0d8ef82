package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// OAuth provider identifiers accepted by SignInWithOAuth.
const (
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// Purpose constrains what a one-time code may be used for.
type Purpose string

const (
	// PurposeSignup confirms a freshly registered email address.
	PurposeSignup Purpose = "signup"
	// PurposeEmail confirms an email-change or generic email link.
	PurposeEmail Purpose = "email"
	// PurposeRecovery scopes a password-recovery session.
	PurposeRecovery Purpose = "recovery"
)

// Identity is the authority-owned record for one authenticated principal.
// This subsystem only reads it and triggers transitions on it.
type Identity struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// IsConfirmed reports whether the identity's email has been confirmed.
func (i *Identity) IsConfirmed() bool {
	return i != nil && i.EmailConfirmedAt != nil && !i.EmailConfirmedAt.IsZero()
}

// TokenPair is the raw access/refresh credential pair as delivered in URL
// fragments or token responses.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is a short-lived credential pair bound to one identity. At most
// one session exists per TokenStore; setting a new one supersedes any prior
// session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     *Identity `json:"identity,omitempty"`
}

// IsExpired reports whether the access token has passed its expiry. Sessions
// without a known expiry are treated as live; the authority rejects them
// server-side if not.
func (s *Session) IsExpired() bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SignUpMetadata carries the application fields attached to a new identity.
// Username is immutable after profile creation, so it is validated and
// conflict-checked before the authority call.
type SignUpMetadata struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// accessTokenExpiry extracts the exp claim from a JWT access token without
// verifying its signature. The authority owns the signing keys; the client
// only needs the expiry to schedule refreshes.
func accessTokenExpiry(accessToken string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
