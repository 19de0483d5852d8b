// internal/app/features/login/handler.go
package login

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
	users      *userstore.Store
	sessionMgr *auth.SessionManager
	log        *zap.Logger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{users: users, sessionMgr: sessionMgr, log: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates the credentials and writes the session cookie.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeAlreadyAuthenticated, "already signed in")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "no account with this email")
		return
	case errors.Is(err, userstore.ErrPasswordMismatch):
		apierr.Write(w, http.StatusUnauthorized, apierr.CodePasswordVerification, "wrong password")
		return
	default:
		h.log.Error("login failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not sign in")
		return
	}

	sessionUser := auth.SessionUser{
		ID:    user.ID.Hex(),
		Email: user.Email,
		Role:  user.Role,
	}
	if err := h.sessionMgr.SignIn(w, r, sessionUser); err != nil {
		h.log.Error("failed to write session", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not sign in")
		return
	}

	h.log.Info("user signed in", zap.String("user_id", sessionUser.ID))
	apierr.WriteJSON(w, http.StatusOK, sanitize.User(user))
}
