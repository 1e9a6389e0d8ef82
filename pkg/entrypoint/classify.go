package entrypoint

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/sanitizer"
)

// Kind identifies which entry path a page-load URL belongs to.
type Kind string

const (
	// KindNone means no actionable token material is present.
	KindNone Kind = "none"
	// KindOAuthError is an OAuth flow failure; the sign-in page owns it.
	KindOAuthError Kind = "oauth_error"
	// KindRecoveryError is a failed recovery link (expired, denied, invalid).
	KindRecoveryError Kind = "recovery_error"
	// KindTokenPair is a fragment-delivered access/refresh token pair.
	KindTokenPair Kind = "token_pair"
	// KindOAuthCode is an authorization code awaiting single-use exchange.
	KindOAuthCode Kind = "oauth_code"
	// KindOTPCode is a one-time verification token.
	KindOTPCode Kind = "otp_code"
)

// Page identifies which entry page produced the URL being classified.
type Page string

const (
	PageSignUp   Page = "signup"
	PageSignIn   Page = "signin"
	PageConfirm  Page = "confirm"
	PageRecovery Page = "recovery"
	PageCallback Page = "callback"
)

// knownOAuthErrorCodes are provider-originated error codes that identify an
// OAuth failure on their own. Recovery-link sub-codes (access_denied,
// otp_expired, invalid_token) are deliberately absent: a bare fragment error
// with one of those must stay classifiable as a recovery failure.
var knownOAuthErrorCodes = map[string]bool{
	"invalid_request":                   true,
	"unauthorized_client":               true,
	"unsupported_response_type":         true,
	"invalid_scope":                     true,
	"server_error":                      true,
	"temporarily_unavailable":           true,
	"provider_email_needs_verification": true,
}

// Input is everything classification may consult: the URL's query and
// fragment parameters, where the navigation came from, which page it landed
// on, and the two pieces of ambient state (pending-verification hint,
// session presence).
type Input struct {
	Query    url.Values
	Fragment url.Values

	// Referrer is the navigating document's URL, empty when unknown.
	Referrer string
	// CallbackPath is the configured OAuth callback path used for the
	// referrer check.
	CallbackPath string

	// Page is the entry page that received the navigation.
	Page Page
	// PendingEmail is the stored pending-verification hint, already
	// normalized, empty when absent.
	PendingEmail string
	// HasSession reports whether a valid session is already stored.
	HasSession bool
}

// NewInput parses a raw page URL into an Input. The fragment is parsed with
// query-string syntax, which is how the authority encodes token material in
// it. Remaining Input fields are left for the caller to fill in.
func NewInput(rawURL string, page Page) (Input, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Input{}, fmt.Errorf("failed to parse entry url: %w", err)
	}

	fragment, err := url.ParseQuery(u.Fragment)
	if err != nil {
		// A non-parameter fragment (plain anchor) carries no tokens.
		fragment = url.Values{}
	}

	return Input{
		Query:    u.Query(),
		Fragment: fragment,
		Page:     page,
	}, nil
}

// Classification is the single outcome of classifying one page load.
type Classification struct {
	Kind Kind

	// Type discriminates the flow variant where one applies: signup, email,
	// or recovery.
	Type gateway.Purpose

	// Code is the authorization code for KindOAuthCode.
	Code string
	// DeferToCallback marks a recovery-variant code that must be handed to
	// the callback handler instead of exchanged in place. Code exchange is
	// single-use, and the callback path is its canonical consumer.
	DeferToCallback bool

	// TokenPair carries the fragment tokens for KindTokenPair.
	TokenPair gateway.TokenPair

	// OTPToken and Email carry the one-time code material for KindOTPCode.
	// Email is resolved from the pending-verification hint when the URL does
	// not name it; it stays empty when unresolvable.
	OTPToken string
	Email    string

	// ErrorCode and ErrorDescription carry the failure detail for
	// KindOAuthError and KindRecoveryError.
	ErrorCode        string
	ErrorDescription string

	// Satisfied marks a KindNone result backed by an existing session.
	Satisfied bool
}

// Fingerprint returns a stable key identifying this classification payload.
// The reconciler uses it as a re-entrancy guard: the same page load may ask
// for reconciliation repeatedly, and only the first request per fingerprint
// acts.
func (c Classification) Fingerprint() string {
	h := fnv.New64a()
	for _, part := range []string{
		string(c.Kind),
		string(c.Type),
		c.Code,
		c.TokenPair.AccessToken,
		c.TokenPair.RefreshToken,
		c.OTPToken,
		c.Email,
		c.ErrorCode,
	} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%s-%016x", c.Kind, h.Sum64())
}

// Classify maps one Input to exactly one Classification. Checks run in a
// fixed precedence order and later checks are skipped once one matches, so
// overlapping token shapes cannot cross-classify. The OAuth-error check runs
// first unconditionally.
func Classify(in Input) Classification {
	queryType := firstParam(in.Query, "type")
	fragmentType := firstParam(in.Fragment, "type")

	// 1. OAuth error. Wins over everything else when the error is
	// attributable to the OAuth flow: a known provider code, a navigation
	// from the callback path, or a co-occurring code parameter that is not
	// recovery-marked.
	if errCode := pickParam(in, "error"); errCode != "" {
		fromOAuth := knownOAuthErrorCodes[errCode] ||
			referrerMatchesCallback(in.Referrer, in.CallbackPath) ||
			(in.Query.Get("code") != "" && queryType != string(gateway.PurposeRecovery))
		if fromOAuth {
			return Classification{
				Kind:             KindOAuthError,
				ErrorCode:        errCode,
				ErrorDescription: pickParam(in, "error_description"),
			}
		}
	}

	// 2. Recovery error: a fragment-delivered error that step 1 did not
	// claim.
	if errCode := firstParam(in.Fragment, "error"); errCode != "" {
		sub := firstParam(in.Fragment, "error_code")
		if sub == "" {
			sub = errCode
		}
		return Classification{
			Kind:             KindRecoveryError,
			Type:             gateway.PurposeRecovery,
			ErrorCode:        sub,
			ErrorDescription: firstParam(in.Fragment, "error_description"),
		}
	}

	// 3. Recovery token pair.
	if in.Fragment.Get("access_token") != "" && fragmentType == string(gateway.PurposeRecovery) {
		return Classification{
			Kind: KindTokenPair,
			Type: gateway.PurposeRecovery,
			TokenPair: gateway.TokenPair{
				AccessToken:  in.Fragment.Get("access_token"),
				RefreshToken: in.Fragment.Get("refresh_token"),
			},
		}
	}

	// 4. Recovery code. The recovery page never consumes it in place.
	if code := in.Query.Get("code"); code != "" &&
		(queryType == string(gateway.PurposeRecovery) || in.Page == PageRecovery) {
		return Classification{
			Kind:            KindOAuthCode,
			Type:            gateway.PurposeRecovery,
			Code:            code,
			DeferToCallback: in.Page == PageRecovery,
		}
	}

	// 5. Verification token pair.
	if in.Fragment.Get("access_token") != "" {
		typ := gateway.PurposeEmail
		if fragmentType == string(gateway.PurposeSignup) {
			typ = gateway.PurposeSignup
		}
		return Classification{
			Kind: KindTokenPair,
			Type: typ,
			TokenPair: gateway.TokenPair{
				AccessToken:  in.Fragment.Get("access_token"),
				RefreshToken: in.Fragment.Get("refresh_token"),
			},
		}
	}

	// 6. Verification code.
	if code := pickParam(in, "code"); code != "" {
		return Classification{
			Kind: KindOAuthCode,
			Code: code,
		}
	}

	// 7. One-time code with a signup/email type marker.
	token := pickParam(in, "token")
	if token == "" {
		token = pickParam(in, "token_hash")
	}
	if token != "" {
		typ := firstNonEmpty(queryType, fragmentType)
		if typ == string(gateway.PurposeSignup) || typ == string(gateway.PurposeEmail) {
			email := sanitizer.NormalizeEmail(pickParam(in, "email"))
			if email == "" {
				email = in.PendingEmail
			}
			return Classification{
				Kind:     KindOTPCode,
				Type:     gateway.Purpose(typ),
				OTPToken: token,
				Email:    email,
			}
		}
	}

	// 8-9. Nothing actionable: either already satisfied by a stored session
	// or still awaiting user action.
	return Classification{Kind: KindNone, Satisfied: in.HasSession}
}

// pickParam reads a parameter from the query first, then the fragment.
func pickParam(in Input, key string) string {
	if v := in.Query.Get(key); v != "" {
		return v
	}
	return in.Fragment.Get(key)
}

func firstParam(values url.Values, key string) string {
	if values == nil {
		return ""
	}
	return values.Get(key)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func referrerMatchesCallback(referrer, callbackPath string) bool {
	if referrer == "" || callbackPath == "" {
		return false
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(callbackPath, "/")
}
