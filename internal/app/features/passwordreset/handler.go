// internal/app/features/passwordreset/handler.go
package passwordreset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/mailer"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	users    *userstore.Store
	mail     mailer.Sender
	siteName string
	expiry   time.Duration
	log      *zap.Logger
}

func NewHandler(users *userstore.Store, mail mailer.Sender, siteName string, expiry time.Duration, logger *zap.Logger) *Handler {
	if expiry <= 0 {
		expiry = userstore.DefaultResetExpiry
	}
	return &Handler{users: users, mail: mail, siteName: siteName, expiry: expiry, log: logger}
}

type startRequest struct {
	Email string `json:"email"`
}

// HandleStart generates a reset code and mails it to the account address.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reset, err := h.users.StartPasswordReset(ctx, req.Email, h.expiry)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "no account with this email")
		return
	default:
		h.log.Error("failed to start password reset", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not start password reset")
		return
	}

	email := mailer.BuildResetEmail(mailer.ResetEmailData{
		SiteName:  h.siteName,
		Code:      reset.Code,
		ExpiresIn: fmt.Sprintf("%d minutes", int(h.expiry.Minutes())),
	})
	email.To = req.Email

	if err := h.mail.Send(ctx, email); err != nil {
		h.log.Error("failed to send reset email", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not send reset email")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      reset.Token,
		"expires_at": reset.ExpiresAt,
	})
}

type completeRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// HandleComplete verifies the mailed code and replaces the password.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.users.CompletePasswordReset(ctx, req.Email, req.Code, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrPasswordTooShort):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodePasswordLength, "password must be at least 6 characters")
		return
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "no account with this email")
		return
	case errors.Is(err, userstore.ErrResetExpired):
		apierr.Write(w, http.StatusGone, apierr.CodeResetCodeExpired, "reset code expired, request a new one")
		return
	case errors.Is(err, userstore.ErrResetInvalid):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeResetCodeInvalid, "invalid reset code")
		return
	default:
		h.log.Error("failed to complete password reset", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not reset password")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
