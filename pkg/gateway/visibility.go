package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Defaults for the session visibility read-back loop. Some storage backends
// do not make a write synchronously visible to a subsequent read; the loop
// papers over that propagation delay with a small bounded retry instead of
// an inline sleep.
const (
	defaultVisibilityAttempts = 5
	defaultVisibilityBackoff  = 100 * time.Millisecond
)

// AwaitSessionVisibility reads the store until a session is visible, with a
// bounded constant backoff. Returns ErrSessionNotVisible when the write has
// not surfaced within the attempt budget.
func AwaitSessionVisibility(ctx context.Context, store TokenStore, attempts uint64, backoff time.Duration) (*Session, error) {
	var session *Session

	err := retry.Do(ctx, retry.WithMaxRetries(attempts, retry.NewConstant(backoff)), func(ctx context.Context) error {
		s, err := store.GetSession(ctx)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				return retry.RetryableError(err)
			}
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrSessionNotVisible
		}
		return nil, err
	}

	return session, nil
}

// AwaitSessionGone reads the store until no session is visible. Used after
// sign-out so a racing navigation cannot observe the stale session. Returns
// ErrSessionStillVisible when the slot refuses to clear.
func AwaitSessionGone(ctx context.Context, store TokenStore, attempts uint64, backoff time.Duration) error {
	err := retry.Do(ctx, retry.WithMaxRetries(attempts, retry.NewConstant(backoff)), func(ctx context.Context) error {
		_, err := store.GetSession(ctx)
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		if err != nil {
			return err
		}
		return retry.RetryableError(ErrSessionStillVisible)
	})
	if err != nil {
		if errors.Is(err, ErrSessionStillVisible) {
			return ErrSessionStillVisible
		}
		return err
	}
	return nil
}
