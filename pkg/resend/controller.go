package resend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/sanitizer"
)

// ErrCooldownActive indicates the cooldown window for this address has not
// elapsed yet. No network call was made.
var ErrCooldownActive = errors.New("resend cooldown active")

// DefaultCooldown matches the authority's own per-address send limit.
const DefaultCooldown = 60 * time.Second

// Sender issues the actual resend. gateway.Client satisfies it.
type Sender interface {
	ResendVerification(ctx context.Context, email string) error
}

// Controller enforces the per-address cooldown in front of a Sender.
type Controller struct {
	sender   Sender
	cooldown time.Duration
	windows  *cache.Cache
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithCooldown overrides the cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// WithLogger configures the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a Controller over the given sender.
func NewController(sender Sender, opts ...Option) *Controller {
	c := &Controller{
		sender:   sender,
		cooldown: DefaultCooldown,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.windows = cache.New(c.cooldown, c.cooldown)
	return c
}

// RequestResend sends a fresh verification email unless the address is still
// in cooldown. The window arms only on a successful send, so a failed
// attempt can be retried immediately.
func (c *Controller) RequestResend(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return gateway.ErrEmailRequired
	}

	if _, found := c.windows.Get(email); found {
		return ErrCooldownActive
	}

	if err := c.sender.ResendVerification(ctx, email); err != nil {
		return err
	}

	c.windows.Set(email, time.Now(), c.cooldown)
	c.logger.Debug("resend cooldown armed",
		slog.String("email", email),
		slog.Duration("cooldown", c.cooldown),
	)
	return nil
}

// Remaining returns the time left in the address's cooldown window, zero
// when none is active. Intended for UI countdowns.
func (c *Controller) Remaining(email string) time.Duration {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return 0
	}

	_, expiry, found := c.windows.GetWithExpiration(email)
	if !found || expiry.IsZero() {
		return 0
	}
	if remaining := time.Until(expiry); remaining > 0 {
		return remaining
	}
	return 0
}
