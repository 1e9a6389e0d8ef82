package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
)

const testCallbackURL = "https://app.example.com/auth/callback"

// fakeAuthority is a minimal stand-in for the identity authority's REST
// surface, with per-route hit counting.
type fakeAuthority struct {
	t       *testing.T
	mu      sync.Mutex
	hits    map[string]int
	handler http.HandlerFunc
	srv     *httptest.Server
}

func newFakeAuthority(t *testing.T, handler http.HandlerFunc) *fakeAuthority {
	t.Helper()

	fa := &fakeAuthority{t: t, hits: make(map[string]int), handler: handler}
	fa.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if gt := r.URL.Query().Get("grant_type"); gt != "" {
			key += ":" + gt
		}
		fa.mu.Lock()
		fa.hits[key]++
		fa.mu.Unlock()
		fa.handler(w, r)
	}))
	t.Cleanup(fa.srv.Close)
	return fa
}

func (fa *fakeAuthority) hitCount(key string) int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.hits[key]
}

func (fa *fakeAuthority) config() gateway.Config {
	return gateway.Config{
		BaseURL:     fa.srv.URL,
		APIKey:      "test-api-key",
		CallbackURL: testCallbackURL,
		Timeout:     2 * time.Second,
	}
}

// flakyTransport fails the first n round trips with a transport error, then
// delegates.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	attempts int
	base     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.attempts++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return f.base.RoundTrip(req)
}

type fakeChecker struct {
	usernameTaken bool
	hasProfile    bool
}

func (f *fakeChecker) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return f.usernameTaken, nil
}

func (f *fakeChecker) HasProfileForEmail(ctx context.Context, email string) (bool, error) {
	return f.hasProfile, nil
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func identityJSON(id uuid.UUID, email string, confirmed bool) map[string]any {
	body := map[string]any{
		"id":         id.String(),
		"email":      email,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if confirmed {
		body["email_confirmed_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return body
}

func fastOpts(extra ...gateway.Option) []gateway.Option {
	opts := []gateway.Option{
		gateway.WithRetry(2, time.Millisecond),
		gateway.WithVisibilityProbe(2, time.Millisecond),
	}
	return append(opts, extra...)
}

func TestSignInWithPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("success stores session and clears pending hint", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/token", r.URL.Path)
			require.Equal(t, "password", r.URL.Query().Get("grant_type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "user@example.com", body["email"])

			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"user":          identityJSON(userID, "user@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetPendingVerification(ctx, "user@example.com"))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.SignInWithPassword(ctx, "  User@Example.COM ", "Secret1!")
		require.NoError(t, err)
		assert.Equal(t, "access-1", session.AccessToken)
		assert.Equal(t, userID, session.Identity.ID)
		assert.False(t, session.IsExpired())

		stored, err := store.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-1", stored.AccessToken)

		pending, err := store.PendingVerification(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error_description": "Invalid login credentials",
			})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SignInWithPassword(ctx, "user@example.com", "wrong")
		assert.ErrorIs(t, err, gateway.ErrInvalidCredentials)
	})

	t.Run("email not confirmed", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Email not confirmed"})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SignInWithPassword(ctx, "user@example.com", "Secret1!")
		assert.ErrorIs(t, err, gateway.ErrEmailNotConfirmed)
	})

	t.Run("rate limited is not retried", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"msg": "For security purposes, you can only request this once every 60 seconds",
			})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SignInWithPassword(ctx, "user@example.com", "Secret1!")
		assert.ErrorIs(t, err, gateway.ErrRateLimited)
		assert.Equal(t, 1, fa.hitCount("/token:password"))
	})

	t.Run("transient transport failure is retried", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
				"expires_in":    3600,
				"user":          identityJSON(userID, "user@example.com", true),
			})
		})

		transport := &flakyTransport{failures: 1, base: http.DefaultTransport}
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts(
			gateway.WithHTTPClient(&http.Client{Transport: transport, Timeout: 2 * time.Second}),
		)...)

		session, err := client.SignInWithPassword(ctx, "user@example.com", "Secret1!")
		require.NoError(t, err)
		assert.Equal(t, "access-2", session.AccessToken)
		assert.Equal(t, 2, transport.attempts)
	})

	t.Run("empty email rejected locally", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SignInWithPassword(ctx, "   ", "Secret1!")
		assert.ErrorIs(t, err, gateway.ErrEmailRequired)
	})
}

func TestSignUpWithPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("deferred confirmation returns identity without session", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/signup", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "new@example.com", body["email"])

			writeJSON(w, http.StatusOK, identityJSON(userID, "new@example.com", false))
		})

		store := gateway.NewMemoryStore()
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, identity, err := client.SignUpWithPassword(ctx, "New@Example.com", "Secret1!", gateway.SignUpMetadata{Username: "newuser"})
		require.NoError(t, err)
		assert.Nil(t, session)
		require.NotNil(t, identity)
		assert.Equal(t, userID, identity.ID)
		assert.False(t, identity.IsConfirmed())

		// The pending hint survives so a code-only verification step can
		// resolve the address.
		pending, err := store.PendingVerification(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", pending)
	})

	t.Run("immediate session when authority autoconfirms", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-3",
				"refresh_token": "refresh-3",
				"expires_in":    3600,
				"user":          identityJSON(userID, "new@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, identity, err := client.SignUpWithPassword(ctx, "new@example.com", "Secret1!", gateway.SignUpMetadata{})
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "access-3", session.AccessToken)
		assert.Equal(t, userID, identity.ID)
	})

	t.Run("username conflict short-circuits before the network", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts(
			gateway.WithProfileChecker(&fakeChecker{usernameTaken: true}),
		)...)

		_, _, err := client.SignUpWithPassword(ctx, "new@example.com", "Secret1!", gateway.SignUpMetadata{Username: "taken"})
		assert.ErrorIs(t, err, gateway.ErrUsernameConflict)
		assert.Equal(t, 0, fa.hitCount("/signup"))
	})

	t.Run("already registered with profile row", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"msg": "User already registered"})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts(
			gateway.WithProfileChecker(&fakeChecker{hasProfile: true}),
		)...)

		_, _, err := client.SignUpWithPassword(ctx, "exists@example.com", "Secret1!", gateway.SignUpMetadata{Username: "fresh"})
		assert.ErrorIs(t, err, gateway.ErrEmailAlreadyRegistered)
		assert.NotErrorIs(t, err, gateway.ErrOrphanedAccount)
	})

	t.Run("already registered without profile row is orphaned", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"msg": "User already registered"})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts(
			gateway.WithProfileChecker(&fakeChecker{hasProfile: false}),
		)...)

		_, _, err := client.SignUpWithPassword(ctx, "orphan@example.com", "Secret1!", gateway.SignUpMetadata{Username: "fresh"})
		assert.ErrorIs(t, err, gateway.ErrOrphanedAccount)
	})
}

func TestSignInWithOAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns authorize URL scoped to callback", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			// Only a possible logout may hit the authority.
			require.Equal(t, "/logout", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		redirect, err := client.SignInWithOAuth(ctx, gateway.ProviderGoogle)
		require.NoError(t, err)

		parsed, err := url.Parse(redirect)
		require.NoError(t, err)
		assert.Equal(t, "/authorize", parsed.Path)
		assert.Equal(t, gateway.ProviderGoogle, parsed.Query().Get("provider"))
		assert.Equal(t, testCallbackURL, parsed.Query().Get("redirect_to"))
	})

	t.Run("clears existing session first", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "stale", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		_, err := client.SignInWithOAuth(ctx, gateway.ProviderGithub)
		require.NoError(t, err)

		_, err = store.GetSession(ctx)
		assert.ErrorIs(t, err, gateway.ErrNoSession)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SignInWithOAuth(ctx, "myspace")
		assert.ErrorIs(t, err, gateway.ErrUnknownProvider)
	})
}

func TestExchangeCodeForSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "pkce", r.URL.Query().Get("grant_type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "auth-code-1", body["auth_code"])

			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-4",
				"refresh_token": "refresh-4",
				"expires_in":    3600,
				"user":          identityJSON(userID, "user@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.ExchangeCodeForSession(ctx, "auth-code-1")
		require.NoError(t, err)
		assert.Equal(t, "access-4", session.AccessToken)

		stored, err := store.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-4", stored.AccessToken)
	})

	t.Run("transport failure is not retried", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "never"})
		})

		transport := &flakyTransport{failures: 1, base: http.DefaultTransport}
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts(
			gateway.WithHTTPClient(&http.Client{Transport: transport, Timeout: 2 * time.Second}),
		)...)

		_, err := client.ExchangeCodeForSession(ctx, "single-use-code")
		assert.ErrorIs(t, err, gateway.ErrNetworkUnavailable)
		assert.Equal(t, 1, transport.attempts)
	})

	t.Run("expired code is terminal", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error_description": "invalid flow state, no valid flow state found",
			})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.ExchangeCodeForSession(ctx, "stale-code")
		assert.ErrorIs(t, err, gateway.ErrTokenExpiredOrInvalid)
	})
}

func TestSetSessionFromTokenPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("hydrates identity and persists with read-back", func(t *testing.T) {
		t.Parallel()

		access := signedToken(t, time.Now().Add(time.Hour))
		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/user", r.URL.Path)
			assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, identityJSON(userID, "user@example.com", true))
		})

		store := gateway.NewMemoryStore()
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.SetSessionFromTokenPair(ctx, gateway.TokenPair{AccessToken: access, RefreshToken: "refresh-5"})
		require.NoError(t, err)
		require.NotNil(t, session.Identity)
		assert.Equal(t, userID, session.Identity.ID)
		assert.True(t, session.Identity.IsConfirmed())
		assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

		stored, err := store.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, access, stored.AccessToken)
	})

	t.Run("rejected token pair", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Invalid token: signature is invalid"})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SetSessionFromTokenPair(ctx, gateway.TokenPair{AccessToken: "bad", RefreshToken: "bad"})
		assert.ErrorIs(t, err, gateway.ErrTokenExpiredOrInvalid)
	})

	t.Run("incomplete pair rejected locally", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.SetSessionFromTokenPair(ctx, gateway.TokenPair{AccessToken: "only-access"})
		assert.ErrorIs(t, err, gateway.ErrTokenExpiredOrInvalid)
	})
}

func TestVerifyOneTimeCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("resolves email from pending hint", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/verify", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pending@example.com", body["email"])
			assert.Equal(t, "signup", body["type"])
			assert.Equal(t, "123456", body["token"])

			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-6",
				"refresh_token": "refresh-6",
				"expires_in":    3600,
				"user":          identityJSON(userID, "pending@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetPendingVerification(ctx, "pending@example.com"))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.VerifyOneTimeCode(ctx, "", "123456", gateway.PurposeSignup)
		require.NoError(t, err)
		assert.Equal(t, "access-6", session.AccessToken)
	})

	t.Run("no resolvable email", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.VerifyOneTimeCode(ctx, "", "123456", gateway.PurposeSignup)
		assert.ErrorIs(t, err, gateway.ErrEmailRequired)
	})

	t.Run("recovery purpose rejected", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.VerifyOneTimeCode(ctx, "user@example.com", "123456", gateway.PurposeRecovery)
		assert.ErrorIs(t, err, gateway.ErrUnknownPurpose)
	})

	t.Run("expired code", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error_code": "otp_expired"})
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		_, err := client.VerifyOneTimeCode(ctx, "user@example.com", "000000", gateway.PurposeSignup)
		assert.ErrorIs(t, err, gateway.ErrTokenExpiredOrInvalid)
	})
}

func TestResendVerification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/resend", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "signup", body["type"])
		assert.Equal(t, "user@example.com", body["email"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	store := gateway.NewMemoryStore()
	client := gateway.NewClient(fa.config(), store, fastOpts()...)

	require.NoError(t, client.ResendVerification(ctx, "User@example.com"))

	pending, err := store.PendingVerification(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", pending)
}

func TestRefreshSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("success replaces session", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-old", body["refresh_token"])

			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-new",
				"refresh_token": "refresh-new",
				"expires_in":    3600,
				"user":          identityJSON(userID, "user@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "access-old", RefreshToken: "refresh-old"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.RefreshSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-new", session.AccessToken)

		stored, err := store.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "refresh-new", stored.RefreshToken)
	})

	t.Run("invalid refresh token destroys session", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error_code": "refresh_token_not_found"})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "a", RefreshToken: "gone"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		_, err := client.RefreshSession(ctx)
		assert.ErrorIs(t, err, gateway.ErrSessionExpiredOrInvalid)

		_, err = store.GetSession(ctx)
		assert.ErrorIs(t, err, gateway.ErrNoSession)
	})
}

func TestGetCurrentSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("no session is a normal nil result", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		session, err := client.GetCurrentSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("expired session is refreshed transparently", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access-fresh",
				"refresh_token": "refresh-fresh",
				"expires_in":    3600,
				"user":          identityJSON(userID, "user@example.com", true),
			})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{
			AccessToken:  "access-stale",
			RefreshToken: "refresh-stale",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		session, err := client.GetCurrentSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "access-fresh", session.AccessToken)
	})
}

func TestGetCurrentUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("no session yields nil user without error", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		identity, err := client.GetCurrentUser(ctx)
		require.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("rejected token yields nil user without error", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Invalid token: token is expired"})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "stale", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		identity, err := client.GetCurrentUser(ctx)
		require.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("success refreshes stored identity", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, identityJSON(userID, "user@example.com", true))
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "live", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		identity, err := client.GetCurrentUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.True(t, identity.IsConfirmed())

		stored, err := store.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, stored.Identity)
		assert.Equal(t, userID, stored.Identity.ID)
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		err := client.UpdatePassword(ctx, "NewSecret1!")
		assert.ErrorIs(t, err, gateway.ErrSessionExpiredOrInvalid)
	})

	t.Run("expired recovery session", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "Invalid token: token is expired"})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "stale", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		err := client.UpdatePassword(ctx, "NewSecret1!")
		assert.ErrorIs(t, err, gateway.ErrSessionExpiredOrInvalid)
	})

	t.Run("weak password keeps its own error", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"msg": "Password should be at least 8 characters",
			})
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "live", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		err := client.UpdatePassword(ctx, "short")
		assert.ErrorIs(t, err, gateway.ErrWeakPasswordRejected)
		assert.NotErrorIs(t, err, gateway.ErrSessionExpiredOrInvalid)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			require.Equal(t, "/user", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{}"))
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "live", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		assert.NoError(t, client.UpdatePassword(ctx, "NewSecret1!"))
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("clears session and verifies by read-back", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/logout", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		store := gateway.NewMemoryStore()
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "live", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		require.NoError(t, client.SignOut(ctx))

		_, err := store.GetSession(ctx)
		assert.ErrorIs(t, err, gateway.ErrNoSession)
	})

	t.Run("no session is a no-op", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no network call expected")
		})
		client := gateway.NewClient(fa.config(), gateway.NewMemoryStore(), fastOpts()...)

		assert.NoError(t, client.SignOut(ctx))
	})

	t.Run("lagging store gets a forced clear", func(t *testing.T) {
		t.Parallel()

		fa := newFakeAuthority(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		store := newLaggyStore(0, 1)
		require.NoError(t, store.SetSession(ctx, &gateway.Session{AccessToken: "live", RefreshToken: "r"}))
		client := gateway.NewClient(fa.config(), store, fastOpts()...)

		require.NoError(t, client.SignOut(ctx))

		_, err := store.GetSession(ctx)
		assert.ErrorIs(t, err, gateway.ErrNoSession)
	})
}
