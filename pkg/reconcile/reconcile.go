package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/entrypoint"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/profile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/statemachine"
)

// Reconciler states. Verified and error are terminal for the page load.
const (
	StateAwaiting  statemachine.State = "awaiting"
	StateVerifying statemachine.State = "verifying"
	StateVerified  statemachine.State = "verified"
	StateError     statemachine.State = "error"
)

const (
	eventStart   statemachine.Event = "start"
	eventConfirm statemachine.Event = "confirm"
	eventFail    statemachine.Event = "fail"
)

// Snapshot is the externally visible result of reconciliation. UI layers
// only ever read snapshots; they never drive transitions themselves.
type Snapshot struct {
	State   statemachine.State
	Message string

	// Destination and RedirectDelay describe the post-success navigation.
	// The delay is client-visible so the user sees the confirmation before
	// moving on. A zero-delay destination is an immediate redirect
	// instruction.
	Destination   string
	RedirectDelay time.Duration

	// CleanURL instructs the caller to strip token material from the
	// address bar with a history replace, not a reload.
	CleanURL bool

	Profile  *profile.Profile
	Identity *gateway.Identity
	Err      error
}

// Destinations are the navigation targets the reconciler can select.
type Destinations struct {
	Default        string
	Admin          string
	SignIn         string
	Callback       string
	PasswordUpdate string
}

// DefaultDestinations covers the standard page layout.
func DefaultDestinations() Destinations {
	return Destinations{
		Default:        "/",
		Admin:          "/admin",
		SignIn:         "/signin",
		Callback:       "/auth/callback",
		PasswordUpdate: "/recover?stage=update",
	}
}

// PendingStore is the slice of token storage the reconciler touches.
// gateway.TokenStore satisfies it.
type PendingStore interface {
	ClearPendingVerification(ctx context.Context) error
}

// ProfileEnsurer runs the race-tolerant profile upsert.
// *profile.Coordinator satisfies it.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identity *gateway.Identity, extra profile.Fields) (*profile.Profile, error)
}

// Reconciler consumes one page load's classifications and converges on a
// terminal session state. It is safe for concurrent use, though a page load
// is logically single-threaded.
type Reconciler struct {
	gw            gateway.Client
	pending       PendingStore
	profiles      ProfileEnsurer
	machine       *statemachine.Machine
	logger        *slog.Logger
	destinations  Destinations
	redirectDelay time.Duration

	mu        sync.Mutex
	seen      map[string]bool
	graceUsed bool
	snapshot  Snapshot
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger configures the reconciler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDestinations overrides the navigation targets.
func WithDestinations(d Destinations) Option {
	return func(r *Reconciler) {
		r.destinations = d
	}
}

// WithRedirectDelay overrides the post-success redirect delay.
func WithRedirectDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		if d >= 0 {
			r.redirectDelay = d
		}
	}
}

// New creates a Reconciler for one page load.
func New(gw gateway.Client, pending PendingStore, profiles ProfileEnsurer, opts ...Option) *Reconciler {
	machine, err := statemachine.New(StateAwaiting,
		statemachine.T(StateAwaiting, StateVerifying, eventStart, nil),
		statemachine.T(StateVerifying, StateVerified, eventConfirm, nil),
		statemachine.T(StateVerifying, StateError, eventFail, nil),
		statemachine.T(StateAwaiting, StateError, eventFail, nil),
	)
	if err != nil {
		// The table is static; a construction failure is a programming
		// error.
		panic(fmt.Sprintf("reconcile: invalid transition table: %v", err))
	}

	r := &Reconciler{
		gw:            gw,
		pending:       pending,
		profiles:      profiles,
		machine:       machine,
		logger:        logger.Discard(),
		destinations:  DefaultDestinations(),
		redirectDelay: 2 * time.Second,
		seen:          make(map[string]bool),
		snapshot:      Snapshot{State: StateAwaiting, Message: msgAwaitingAction},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current reconciliation state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Reconcile consumes one classification. Terminal states absorb further
// calls, and a classification payload already consumed on this page load is
// ignored, so re-dispatching the same page-load classification is safe.
func (r *Reconciler) Reconcile(ctx context.Context, cls entrypoint.Classification) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.machine.Current()
	if current == StateVerified || current == StateError {
		return r.snapshot
	}

	fp := cls.Fingerprint()
	if r.seen[fp] {
		return r.snapshot
	}
	r.seen[fp] = true

	switch cls.Kind {
	case entrypoint.KindOAuthError:
		return r.fail(ctx, gateway.ErrUnexpectedResponse, Snapshot{
			State:       StateError,
			Message:     OAuthFailureMessage(),
			Destination: r.destinations.SignIn,
			CleanURL:    true,
		})

	case entrypoint.KindRecoveryError:
		return r.fail(ctx, gateway.ErrTokenExpiredOrInvalid, Snapshot{
			State:    StateError,
			Message:  RecoveryFailureMessage(cls.ErrorCode),
			CleanURL: true,
		})

	case entrypoint.KindOAuthCode:
		if cls.DeferToCallback {
			// The callback handler is the canonical consumer of single-use
			// codes; hand the whole query over instead of exchanging here.
			delete(r.seen, fp)
			snap := r.snapshot
			snap.Destination = r.callbackRedirect(cls.Code)
			return snap
		}
		return r.establish(ctx, fp, cls, func(ctx context.Context) (*gateway.Session, error) {
			return r.gw.ExchangeCodeForSession(ctx, cls.Code)
		})

	case entrypoint.KindTokenPair:
		return r.establish(ctx, fp, cls, func(ctx context.Context) (*gateway.Session, error) {
			return r.gw.SetSessionFromTokenPair(ctx, cls.TokenPair)
		})

	case entrypoint.KindOTPCode:
		return r.establish(ctx, fp, cls, func(ctx context.Context) (*gateway.Session, error) {
			return r.gw.VerifyOneTimeCode(ctx, cls.Email, cls.OTPToken, cls.Type)
		})

	default: // KindNone
		if cls.Satisfied {
			return r.establish(ctx, fp, cls, nil)
		}
		r.snapshot = Snapshot{State: StateAwaiting, Message: msgAwaitingAction}
		return r.snapshot
	}
}

// establish runs one session-establishing gateway call (nil for a bare
// probe of an existing session), then requires a confirmed-email read-back
// before declaring verified.
func (r *Reconciler) establish(ctx context.Context, fp string, cls entrypoint.Classification, call func(context.Context) (*gateway.Session, error)) Snapshot {
	if err := r.machine.Fire(ctx, eventStart, nil); err != nil {
		return r.snapshot
	}
	r.snapshot = Snapshot{State: StateVerifying, Message: "Verifying..."}

	if call != nil {
		if _, err := call(ctx); err != nil {
			r.logger.Info("session establishment failed",
				slog.String("kind", string(cls.Kind)),
				slog.Any("error", err),
			)
			return r.fail(ctx, err, Snapshot{
				State:    StateError,
				Message:  FailureMessage(err),
				CleanURL: true,
				Err:      err,
			})
		}
	}

	identity, err := r.gw.GetCurrentUser(ctx)
	if err != nil {
		return r.fail(ctx, err, Snapshot{
			State:    StateError,
			Message:  FailureMessage(err),
			CleanURL: true,
			Err:      err,
		})
	}

	if !identity.IsConfirmed() {
		// The gateway accepted the call but confirmation has not propagated
		// yet. Fall back to awaiting once; a second unconfirmed read-back is
		// a real failure.
		if !r.graceUsed {
			r.graceUsed = true
			delete(r.seen, fp)
			r.machine.Set(StateAwaiting)
			r.snapshot = Snapshot{State: StateAwaiting, Message: msgStillPropagating}
			return r.snapshot
		}
		return r.fail(ctx, gateway.ErrEmailNotConfirmed, Snapshot{
			State:    StateError,
			Message:  FailureMessage(gateway.ErrEmailNotConfirmed),
			CleanURL: true,
			Err:      gateway.ErrEmailNotConfirmed,
		})
	}

	return r.verified(ctx, cls, identity)
}

// verified enters the terminal success state and runs its side effects:
// clear the pending hint, ensure the profile row, pick the destination.
func (r *Reconciler) verified(ctx context.Context, cls entrypoint.Classification, identity *gateway.Identity) Snapshot {
	if err := r.pending.ClearPendingVerification(ctx); err != nil {
		r.logger.Warn("failed to clear pending verification", slog.Any("error", err))
	}

	prof, err := r.profiles.EnsureProfile(ctx, identity, profile.Fields{})
	if err != nil {
		return r.fail(ctx, err, Snapshot{
			State:    StateError,
			Message:  FailureMessage(err),
			CleanURL: true,
			Err:      err,
		})
	}

	if err := r.machine.Fire(ctx, eventConfirm, nil); err != nil {
		return r.snapshot
	}

	r.snapshot = Snapshot{
		State:         StateVerified,
		Message:       msgVerified,
		Destination:   r.destination(cls, prof),
		RedirectDelay: r.redirectDelay,
		CleanURL:      cls.Kind != entrypoint.KindNone,
		Profile:       prof,
		Identity:      identity,
	}
	r.logger.Info("session reconciled",
		slog.String("kind", string(cls.Kind)),
		slog.String("user_id", identity.ID.String()),
	)
	return r.snapshot
}

func (r *Reconciler) fail(ctx context.Context, cause error, snap Snapshot) Snapshot {
	if err := r.machine.Fire(ctx, eventFail, cause); err != nil {
		return r.snapshot
	}
	r.snapshot = snap
	return r.snapshot
}

// destination picks the post-success navigation target: recovery sessions
// continue to the password update step, administrators go to the admin
// surface, everyone else to the default page.
func (r *Reconciler) destination(cls entrypoint.Classification, prof *profile.Profile) string {
	if cls.Type == gateway.PurposeRecovery {
		return r.destinations.PasswordUpdate
	}
	if prof != nil && prof.IsAdmin {
		return r.destinations.Admin
	}
	return r.destinations.Default
}

func (r *Reconciler) callbackRedirect(code string) string {
	q := url.Values{
		"code": {code},
		"type": {string(gateway.PurposeRecovery)},
	}
	return r.destinations.Callback + "?" + q.Encode()
}
