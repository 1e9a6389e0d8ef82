package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
)

// SessionReader reports whether a session is currently visible. The
// coordinator only needs this one read; gateway.TokenStore satisfies it.
type SessionReader interface {
	GetSession(ctx context.Context) (*gateway.Session, error)
}

// Coordinator runs the race-tolerant profile upsert.
type Coordinator struct {
	store      Store
	sessions   SessionReader
	logger     *slog.Logger
	retryDelay time.Duration
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger configures the coordinator's logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryDelay overrides the pause before the single retry of a denied
// upsert under a live session.
func WithRetryDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewCoordinator creates a Coordinator over the given store and session
// reader.
func NewCoordinator(store Store, sessions SessionReader, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:      store,
		sessions:   sessions,
		logger:     logger.Discard(),
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureProfile makes sure a profile row exists for the identity. It must be
// safe to call while the authority-side trigger races to create the same
// row.
//
// A permission denial without a visible session means the trigger will
// create the row shortly: that is success without a row, not a failure. A
// denial under a live session gets exactly one retry after a short delay
// before ErrUpsertRaceUnresolved surfaces. A username uniqueness violation
// always surfaces as ErrUsernameConflict.
func (c *Coordinator) EnsureProfile(ctx context.Context, identity *gateway.Identity, extra Fields) (*Profile, error) {
	if identity == nil || identity.ID == uuid.Nil {
		return nil, ErrIdentityRequired
	}

	p := Profile{
		ID:          identity.ID,
		Email:       identity.Email,
		Username:    extra.Username,
		DisplayName: extra.DisplayName,
	}
	if p.Username == "" {
		p.Username = metadataString(identity.UserMetadata, "username")
	}
	if p.DisplayName == "" {
		p.DisplayName = metadataString(identity.UserMetadata, "display_name")
	}

	got, err := c.store.Upsert(ctx, p)
	if err == nil {
		return &got, nil
	}
	if errors.Is(err, ErrUsernameConflict) {
		return nil, err
	}
	if !errors.Is(err, ErrPermissionDenied) {
		return nil, err
	}

	session, sessErr := c.sessions.GetSession(ctx)
	if sessErr != nil || session == nil {
		// No session yet: the write was never expected to pass row-level
		// security. The trigger path owns row creation here.
		c.logger.Debug("profile upsert deferred to trigger",
			slog.String("identity_id", identity.ID.String()))
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}

	got, err = c.store.Upsert(ctx, p)
	if err == nil {
		c.logger.Debug("profile upsert succeeded on retry",
			slog.String("identity_id", identity.ID.String()))
		return &got, nil
	}
	if errors.Is(err, ErrUsernameConflict) {
		return nil, err
	}

	return nil, fmt.Errorf("%w: %w", ErrUpsertRaceUnresolved, err)
}

func metadataString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return s
}
