// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/anketolabs/anketo/internal/app/system/sanitize"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	users *userstore.Store
	log   *zap.Logger
}

func NewHandler(users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{users: users, log: logger}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	InvitorCode string `json:"invitor_code,omitempty"`
}

// HandleSignup creates a new account. A signed-in caller cannot register
// another account in the same session.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeAlreadyAuthenticated, "already signed in")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.Create(ctx, userstore.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		InvitorCode: req.InvitorCode,
	})
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrBadInput):
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "email is required")
		return
	case errors.Is(err, userstore.ErrEmailInvalid):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeEmailValidation, "invalid email address")
		return
	case errors.Is(err, userstore.ErrPasswordTooShort):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodePasswordLength, "password must be at least 6 characters")
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		apierr.Write(w, http.StatusConflict, apierr.CodeEmailDuplication, "an account with this email already exists")
		return
	default:
		h.log.Error("signup failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not create account")
		return
	}

	h.log.Info("account created", zap.String("user_id", user.ID.Hex()))
	apierr.WriteJSON(w, http.StatusCreated, sanitize.User(&user))
}
