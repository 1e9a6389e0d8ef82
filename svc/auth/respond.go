package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/gateway"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/profile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/reconcile"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/resend"
	"github.com/toprakaras011-debug/otomasyonmarketi-sub000/pkg/validator"
)

type errorResponse struct {
	Message string                     `json:"message"`
	Fields  validator.ValidationErrors `json:"fields,omitempty"`
	Retry   int64                      `json:"retry_after_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a classified error to an HTTP status and a user-facing
// message. Validation failures carry their per-field detail.
func writeError(w http.ResponseWriter, err error) {
	if fields := validator.Extract(err); fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message: "Validation failed.",
			Fields:  fields,
		})
		return
	}

	writeJSON(w, statusFor(err), errorResponse{Message: reconcile.FailureMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials),
		errors.Is(err, gateway.ErrSessionExpiredOrInvalid),
		errors.Is(err, gateway.ErrTokenExpiredOrInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrForbidden),
		errors.Is(err, gateway.ErrEmailNotConfirmed):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrEmailAlreadyRegistered),
		errors.Is(err, gateway.ErrOrphanedAccount),
		errors.Is(err, gateway.ErrUsernameConflict),
		errors.Is(err, profile.ErrUsernameConflict):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrRateLimited),
		errors.Is(err, resend.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, gateway.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrEmailRequired),
		errors.Is(err, gateway.ErrUnknownProvider),
		errors.Is(err, gateway.ErrUnknownPurpose):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrNetworkUnavailable),
		errors.Is(err, gateway.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
