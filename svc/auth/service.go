package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/entrypoint"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/logger"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/profile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/reconcile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/resend"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/sanitizer"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/validator"
)

// Service wires the identity components behind the HTTP entry points.
type Service struct {
	cfg      Config
	gw       gateway.Client
	store    gateway.TokenStore
	profiles reconcile.ProfileEnsurer
	resender *resend.Controller
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger configures the service's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the auth service over its collaborators.
func New(cfg Config, gw gateway.Client, store gateway.TokenStore, profiles reconcile.ProfileEnsurer, resender *resend.Controller, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		gw:       gw,
		store:    store,
		profiles: profiles,
		resender: resender,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router mounts all identity entry points.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/signup", s.handleEntry(entrypoint.PageSignUp))
	r.Post("/signup", s.handleSignUp)

	r.Get("/signin", s.handleEntry(entrypoint.PageSignIn))
	r.Post("/signin", s.handleSignIn)
	r.Post("/signin/oauth", s.handleOAuthStart)

	r.Get("/confirm", s.handleEntry(entrypoint.PageConfirm))
	r.Post("/confirm/resend", s.handleResend)

	r.Get("/recover", s.handleEntry(entrypoint.PageRecovery))
	r.Post("/recover", s.handleUpdatePassword)

	r.Get("/auth/callback", s.handleEntry(entrypoint.PageCallback))

	r.Post("/signout", s.handleSignOut)

	return r
}

type stateResponse struct {
	State         string `json:"state"`
	Message       string `json:"message"`
	Destination   string `json:"destination,omitempty"`
	RedirectAfter int64  `json:"redirect_after_ms,omitempty"`
	CleanURL      bool   `json:"clean_url,omitempty"`
}

// handleEntry classifies the page-load URL and reconciles it. The page
// script forwards location.hash as the "fragment" query parameter because
// fragments never reach the server.
func (s *Service) handleEntry(page entrypoint.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query := r.URL.Query()
		fragment, err := url.ParseQuery(query.Get("fragment"))
		if err != nil {
			fragment = url.Values{}
		}
		query.Del("fragment")

		pending, err := s.store.PendingVerification(ctx)
		if err != nil {
			s.logger.Warn("failed to read pending verification", slog.Any("error", err))
		}
		session, err := s.gw.GetCurrentSession(ctx)
		if err != nil {
			writeError(w, err)
			return
		}

		in := entrypoint.Input{
			Query:        query,
			Fragment:     fragment,
			Referrer:     r.Referer(),
			CallbackPath: callbackPathOnly(s.cfg.CallbackPath),
			Page:         page,
			PendingEmail: pending,
			HasSession:   session != nil,
		}

		rec := reconcile.New(s.gw, s.store, s.profiles,
			reconcile.WithLogger(s.logger),
			reconcile.WithRedirectDelay(s.cfg.RedirectDelay),
			reconcile.WithDestinations(reconcile.Destinations{
				Default:        s.cfg.DefaultDestination,
				Admin:          s.cfg.AdminDestination,
				SignIn:         s.cfg.SignInPath,
				Callback:       s.cfg.CallbackPath,
				PasswordUpdate: s.cfg.PasswordUpdatePath,
			}),
		)
		snap := rec.Reconcile(ctx, entrypoint.Classify(in))

		writeJSON(w, http.StatusOK, stateResponse{
			State:         string(snap.State),
			Message:       snap.Message,
			Destination:   snap.Destination,
			RedirectAfter: snap.RedirectDelay.Milliseconds(),
			CleanURL:      snap.CleanURL,
		})
	}
}

type signUpRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

func (s *Service) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Username = sanitizer.NormalizeUsername(req.Username)
	req.Phone = sanitizer.NormalizePhone(req.Phone)

	rules := []validator.Rule{
		validator.ValidEmail("email", req.Email),
		validator.PasswordsMatch("password_confirm", req.Password, req.PasswordConfirm),
		validator.TermsAccepted("terms_accepted", req.TermsAccepted),
	}
	rules = append(rules, validator.UsernameRules("username", req.Username)...)
	rules = append(rules, validator.PasswordStrengthRules("password", req.Password)...)
	if req.Phone != "" {
		rules = append(rules, validator.ValidPhone("phone", req.Phone))
	}
	if err := validator.Apply(rules...); err != nil {
		writeError(w, err)
		return
	}

	session, identity, err := s.gw.SignUpWithPassword(r.Context(), req.Email, req.Password, gateway.SignUpMetadata{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if session != nil {
		writeJSON(w, http.StatusCreated, stateResponse{
			State:       string(reconcile.StateVerified),
			Message:     "Account created.",
			Destination: s.cfg.DefaultDestination,
		})
		return
	}

	s.logger.Info("sign-up pending confirmation", slog.String("user_id", identity.ID.String()))
	writeJSON(w, http.StatusCreated, stateResponse{
		State:   string(reconcile.StateAwaiting),
		Message: "Check your inbox to confirm your email address.",
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := validator.Apply(validator.ValidEmail("email", req.Email)); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.gw.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	destination := s.cfg.DefaultDestination
	if prof, profErr := s.profiles.EnsureProfile(r.Context(), session.Identity, profile.Fields{}); profErr == nil && prof != nil && prof.IsAdmin {
		destination = s.cfg.AdminDestination
	}

	writeJSON(w, http.StatusOK, stateResponse{
		State:       string(reconcile.StateVerified),
		Message:     "Signed in.",
		Destination: destination,
	})
}

type oauthStartRequest struct {
	Provider string `json:"provider"`
}

func (s *Service) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	var req oauthStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	redirect, err := s.gw.SignInWithOAuth(r.Context(), req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect": redirect})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (s *Service) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" {
		if pending, err := s.store.PendingVerification(r.Context()); err == nil {
			req.Email = pending
		}
	}

	if err := s.resender.RequestResend(r.Context(), req.Email); err != nil {
		if remaining := s.resender.Remaining(req.Email); remaining > 0 {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Message: "Please wait before requesting another email.",
				Retry:   int64(remaining.Round(time.Second).Seconds()),
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type updatePasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (s *Service) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rules := append(
		validator.PasswordStrengthRules("password", req.Password),
		validator.PasswordsMatch("password_confirm", req.Password, req.PasswordConfirm),
	)
	if err := validator.Apply(rules...); err != nil {
		writeError(w, err)
		return
	}

	if err := s.gw.UpdatePassword(r.Context(), req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		State:       string(reconcile.StateVerified),
		Message:     "Password updated. You can sign in now.",
		Destination: s.cfg.SignInPath,
	})
}

func (s *Service) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.gw.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// callbackPathOnly strips any query from a configured callback path so the
// referrer comparison matches on path alone.
func callbackPathOnly(p string) string {
	if u, err := url.Parse(p); err == nil {
		return u.Path
	}
	return p
}
