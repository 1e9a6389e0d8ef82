package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/sanitizer"
)

// Config holds the connection settings for the identity authority.
type Config struct {
	BaseURL     string        `env:"IDENTITY_AUTHORITY_URL,required"`
	APIKey      string        `env:"IDENTITY_AUTHORITY_API_KEY,required"`
	CallbackURL string        `env:"IDENTITY_CALLBACK_URL,required"`
	Timeout     time.Duration `env:"IDENTITY_AUTHORITY_TIMEOUT" envDefault:"10s"`
}

// ProfileChecker exposes the two profile-store lookups the sign-up flow
// needs to disambiguate authority conflicts: a username collision before the
// call, and the orphaned-account case (identity exists, profile does not)
// after an already-registered rejection.
type ProfileChecker interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	HasProfileForEmail(ctx context.Context, email string) (bool, error)
}

// Client is the identity gateway: a stateless, retry-aware wrapper around
// the authority's operations. All failures are classified into the package
// error taxonomy at this boundary.
type Client interface {
	SignUpWithPassword(ctx context.Context, email, password string, meta SignUpMetadata) (*Session, *Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithOAuth(ctx context.Context, provider string) (string, error)
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)
	SetSessionFromTokenPair(ctx context.Context, pair TokenPair) (*Session, error)
	VerifyOneTimeCode(ctx context.Context, email, code string, purpose Purpose) (*Session, error)
	ResendVerification(ctx context.Context, email string) error
	RefreshSession(ctx context.Context) (*Session, error)
	GetCurrentUser(ctx context.Context) (*Identity, error)
	GetCurrentSession(ctx context.Context) (*Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	SignOut(ctx context.Context) error
}

type httpClient struct {
	cfg     Config
	http    *http.Client
	store   TokenStore
	checker ProfileChecker
	logger  *slog.Logger

	retryAttempts      uint64
	retryBackoff       time.Duration
	visibilityAttempts uint64
	visibilityBackoff  time.Duration
}

// Option configures the gateway client during construction.
type Option func(*httpClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *httpClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger configures the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *httpClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProfileChecker wires the profile lookups used to disambiguate sign-up
// conflicts. Without it, an already-registered rejection is always reported
// as ErrEmailAlreadyRegistered.
func WithProfileChecker(pc ProfileChecker) Option {
	return func(c *httpClient) {
		c.checker = pc
	}
}

// WithRetry configures the transient-failure retry budget.
func WithRetry(attempts uint64, backoff time.Duration) Option {
	return func(c *httpClient) {
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	}
}

// WithVisibilityProbe configures the session read-back loop that follows
// every session write and sign-out.
func WithVisibilityProbe(attempts uint64, backoff time.Duration) Option {
	return func(c *httpClient) {
		c.visibilityAttempts = attempts
		c.visibilityBackoff = backoff
	}
}

// NewClient creates a gateway client over the given token store.
func NewClient(cfg Config, store TokenStore, opts ...Option) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &httpClient{
		cfg:                cfg,
		http:               &http.Client{Timeout: timeout},
		store:              store,
		logger:             logger.Discard(),
		retryAttempts:      2,
		retryBackoff:       250 * time.Millisecond,
		visibilityAttempts: defaultVisibilityAttempts,
		visibilityBackoff:  defaultVisibilityBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// authorityErrorPayload covers both error body shapes the authority emits.
type authorityErrorPayload struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *Identity `json:"user"`
}

func (tr *tokenResponse) session() *Session {
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Identity:     tr.User,
	}
	if tr.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if exp, ok := accessTokenExpiry(tr.AccessToken); ok {
		s.ExpiresAt = exp
	}
	return s
}

// do performs one request against the authority. A non-empty accessToken
// authenticates as the user; otherwise the API key authenticates the app.
// Responses >= 400 are classified into the error taxonomy here and nowhere
// else.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.doAuthed(ctx, method, path, query, body, "", out)
}

func (c *httpClient) doAuthed(ctx context.Context, method, path string, query url.Values, body any, accessToken string, out any) error {
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var payload authorityErrorPayload
		_ = json.NewDecoder(resp.Body).Decode(&payload)

		mapped := classifyAuthorityError(
			resp.StatusCode,
			payload.ErrorCode+" "+payload.ErrorField,
			payload.Msg+" "+payload.ErrorDescription,
		)
		c.logger.Debug("authority rejected request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", mapped),
		)
		return mapped
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
	}
	return nil
}

// doRetry wraps do with the transient-failure retry budget. Only transport
// errors are retried; authority rejections are final.
func (c *httpClient) doRetry(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return retry.Do(ctx, retry.WithMaxRetries(c.retryAttempts, retry.NewConstant(c.retryBackoff)), func(ctx context.Context) error {
		err := c.do(ctx, method, path, query, body, out)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// SignUpWithPassword creates a new identity. The returned session is nil
// when the authority defers email confirmation. An already-registered
// rejection is refined via the profile checker: username collisions are
// reported before the call, and a missing profile row turns the rejection
// into ErrOrphanedAccount so the user gets actionable guidance instead of a
// dead-end "already registered".
func (c *httpClient) SignUpWithPassword(ctx context.Context, email, password string, meta SignUpMetadata) (*Session, *Identity, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrEmailRequired
	}

	if c.checker != nil && meta.Username != "" {
		taken, err := c.checker.UsernameTaken(ctx, meta.Username)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, nil, ErrUsernameConflict
		}
	}

	// Stored before the call so a later verification step that only
	// carries a code can still resolve the address.
	if err := c.store.SetPendingVerification(ctx, email); err != nil {
		return nil, nil, fmt.Errorf("failed to store pending verification: %w", err)
	}

	var resp struct {
		tokenResponse
		ID               uuid.UUID  `json:"id"`
		Email            string     `json:"email"`
		EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
		CreatedAt        time.Time  `json:"created_at"`
	}
	err := c.doRetry(ctx, http.MethodPost, "/signup", nil, map[string]any{
		"email":    email,
		"password": password,
		"data":     meta,
	}, &resp)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyRegistered) && c.checker != nil {
			hasProfile, checkErr := c.checker.HasProfileForEmail(ctx, email)
			if checkErr == nil && !hasProfile {
				return nil, nil, ErrOrphanedAccount
			}
		}
		return nil, nil, err
	}

	if resp.AccessToken != "" {
		session := resp.tokenResponse.session()
		if err := c.persistSession(ctx, session); err != nil {
			return nil, nil, err
		}
		c.logger.Info("signed up with immediate session", slog.String("email", email))
		return session, session.Identity, nil
	}

	identity := resp.User
	if identity == nil {
		identity = &Identity{
			ID:               resp.ID,
			Email:            resp.Email,
			EmailConfirmedAt: resp.EmailConfirmedAt,
			CreatedAt:        resp.CreatedAt,
		}
	}
	if identity.ID == uuid.Nil {
		return nil, nil, ErrUnexpectedResponse
	}

	c.logger.Info("signed up, confirmation pending", slog.String("email", email))
	return nil, identity, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *httpClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	var resp tokenResponse
	err := c.doRetry(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	session := resp.session()
	if err := c.persistSession(ctx, session); err != nil {
		return nil, err
	}

	_ = c.store.ClearPendingVerification(ctx)
	c.logger.Info("signed in with password", slog.String("email", email))
	return session, nil
}

// SignInWithOAuth clears any existing session, then returns the authority's
// authorization URL for the caller to navigate to. Completion happens on a
// later page load via the callback path; this call never yields a session.
func (c *httpClient) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	switch provider {
	case ProviderGoogle, ProviderGithub:
	default:
		return "", ErrUnknownProvider
	}

	// A lingering session from another account would be silently replaced
	// mid-flow; clearing first keeps provider and account aligned.
	if err := c.SignOut(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		return "", fmt.Errorf("failed to clear session before oauth: %w", err)
	}

	q := url.Values{
		"provider":    {provider},
		"redirect_to": {c.cfg.CallbackURL},
	}
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/authorize?" + q.Encode(), nil
}

// ExchangeCodeForSession trades an authorization code for a session. Codes
// are single-use: the call is never retried, and any failure is terminal
// for that code.
func (c *httpClient) ExchangeCodeForSession(ctx context.Context, code string) (*Session, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"pkce"}}, map[string]string{
		"auth_code": code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	session := resp.session()
	if err := c.persistSession(ctx, session); err != nil {
		return nil, err
	}

	_ = c.store.ClearPendingVerification(ctx)
	c.logger.Info("exchanged code for session")
	return session, nil
}

// SetSessionFromTokenPair installs a fragment-delivered token pair as the
// current session. The identity is hydrated from the authority, and the
// write is read back before success is declared because some backends lag.
func (c *httpClient) SetSessionFromTokenPair(ctx context.Context, pair TokenPair) (*Session, error) {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, ErrTokenExpiredOrInvalid
	}

	var identity Identity
	if err := c.doAuthed(ctx, http.MethodGet, "/user", nil, nil, pair.AccessToken, &identity); err != nil {
		if errors.Is(err, ErrTokenExpiredOrInvalid) || errors.Is(err, ErrForbidden) {
			return nil, ErrTokenExpiredOrInvalid
		}
		return nil, err
	}

	session := &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Identity:     &identity,
	}
	if exp, ok := accessTokenExpiry(pair.AccessToken); ok {
		session.ExpiresAt = exp
	}

	if err := c.persistSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("session set from token pair", slog.String("user_id", identity.ID.String()))
	return session, nil
}

// VerifyOneTimeCode confirms an email address with a one-time code. The
// email is resolved from the pending-verification hint when not supplied.
// Codes are single-use, so like ExchangeCodeForSession this is never
// retried.
func (c *httpClient) VerifyOneTimeCode(ctx context.Context, email, code string, purpose Purpose) (*Session, error) {
	switch purpose {
	case PurposeSignup, PurposeEmail:
	default:
		return nil, ErrUnknownPurpose
	}

	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		pending, err := c.store.PendingVerification(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending verification: %w", err)
		}
		email = pending
	}
	if email == "" {
		return nil, ErrEmailRequired
	}

	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/verify", nil, map[string]string{
		"type":  string(purpose),
		"email": email,
		"token": code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	session := resp.session()
	if err := c.persistSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("one-time code verified", slog.String("email", email))
	return session, nil
}

// ResendVerification asks the authority to send a fresh confirmation email.
// Client-side cooldown lives in the resend package; the authority enforces
// its own limits independently.
func (c *httpClient) ResendVerification(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	err := c.doRetry(ctx, http.MethodPost, "/resend", nil, map[string]string{
		"type":  string(PurposeSignup),
		"email": email,
	}, nil)
	if err != nil {
		return err
	}

	_ = c.store.SetPendingVerification(ctx, email)
	c.logger.Info("verification email resent", slog.String("email", email))
	return nil
}

// RefreshSession exchanges the stored refresh token for a fresh session. An
// invalid or expired refresh token destroys the stored session.
func (c *httpClient) RefreshSession(ctx context.Context) (*Session, error) {
	current, err := c.store.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	err = c.doRetry(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, map[string]string{
		"refresh_token": current.RefreshToken,
	}, &resp)
	if err != nil {
		if errors.Is(err, ErrTokenExpiredOrInvalid) {
			_ = c.store.ClearSession(ctx)
			return nil, ErrSessionExpiredOrInvalid
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}

	session := resp.session()
	if session.Identity == nil {
		session.Identity = current.Identity
	}
	if err := c.store.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store refreshed session: %w", err)
	}

	c.logger.Debug("session refreshed")
	return session, nil
}

// GetCurrentSession returns the stored session, transparently refreshing an
// expired one. A missing or unrecoverable session yields (nil, nil): pages
// probe auth state speculatively and absence is a normal answer.
func (c *httpClient) GetCurrentSession(ctx context.Context) (*Session, error) {
	session, err := c.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}

	if session.IsExpired() {
		refreshed, err := c.RefreshSession(ctx)
		if err != nil {
			if errors.Is(err, ErrSessionExpiredOrInvalid) || errors.Is(err, ErrNoSession) {
				return nil, nil
			}
			return nil, err
		}
		return refreshed, nil
	}

	return session, nil
}

// GetCurrentUser fetches the authority's view of the current user. Not
// being authenticated (no session, rejected token) is a normal (nil, nil)
// result, never an error.
func (c *httpClient) GetCurrentUser(ctx context.Context) (*Identity, error) {
	session, err := c.GetCurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	var identity Identity
	err = c.doAuthed(ctx, http.MethodGet, "/user", nil, nil, session.AccessToken, &identity)
	if err != nil {
		if errors.Is(err, ErrTokenExpiredOrInvalid) || errors.Is(err, ErrForbidden) {
			return nil, nil
		}
		return nil, err
	}
	if identity.ID == uuid.Nil {
		return nil, ErrUnexpectedResponse
	}

	// Keep the stored identity fresh so confirmation reads see the latest
	// email_confirmed_at without another round trip.
	session.Identity = &identity
	_ = c.store.SetSession(ctx, session)

	return &identity, nil
}

// UpdatePassword sets a new password on the current (possibly
// recovery-scoped) session. A missing or rejected session is reported as
// ErrSessionExpiredOrInvalid so the caller can request a fresh recovery
// link; a weak password keeps its own error.
func (c *httpClient) UpdatePassword(ctx context.Context, newPassword string) error {
	session, err := c.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return ErrSessionExpiredOrInvalid
		}
		return err
	}

	err = c.doAuthed(ctx, http.MethodPut, "/user", nil, map[string]string{
		"password": newPassword,
	}, session.AccessToken, nil)
	if err != nil {
		if errors.Is(err, ErrTokenExpiredOrInvalid) || errors.Is(err, ErrForbidden) {
			return ErrSessionExpiredOrInvalid
		}
		return err
	}

	c.logger.Info("password updated")
	return nil
}

// SignOut revokes the session with the authority and clears the local slot,
// then verifies by read-back that the slot actually cleared; lagging
// backends get one forced re-clear before the failure surfaces.
func (c *httpClient) SignOut(ctx context.Context) error {
	session, err := c.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}

	// Best effort: a token the authority already rejects is as signed out
	// as it gets.
	if err := c.doAuthed(ctx, http.MethodPost, "/logout", nil, nil, session.AccessToken, nil); err != nil {
		if !errors.Is(err, ErrTokenExpiredOrInvalid) && !errors.Is(err, ErrForbidden) {
			c.logger.Warn("authority logout failed", slog.Any("error", err))
		}
	}

	if err := c.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if err := AwaitSessionGone(ctx, c.store, c.visibilityAttempts, c.visibilityBackoff); err != nil {
		if errors.Is(err, ErrSessionStillVisible) {
			// Fallback for lagging storage: force the clear once more.
			if clearErr := c.store.ClearSession(ctx); clearErr != nil {
				return fmt.Errorf("failed to force-clear session: %w", clearErr)
			}
			return AwaitSessionGone(ctx, c.store, c.visibilityAttempts, c.visibilityBackoff)
		}
		return err
	}

	c.logger.Info("signed out")
	return nil
}

// persistSession stores a session and confirms the write is visible to a
// subsequent read before declaring success.
func (c *httpClient) persistSession(ctx context.Context, session *Session) error {
	if err := c.store.SetSession(ctx, session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if _, err := AwaitSessionVisibility(ctx, c.store, c.visibilityAttempts, c.visibilityBackoff); err != nil {
		return err
	}
	return nil
}

// Compile-time interface assertion
var _ Client = (*httpClient)(nil)
