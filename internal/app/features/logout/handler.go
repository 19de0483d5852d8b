// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	sessionMgr *auth.SessionManager
	log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{sessionMgr: sessionMgr, log: logger}
}

// HandleLogout clears the session cookie. Signing out without a session is
// not an error.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionMgr.SignOut(w, r); err != nil {
		h.log.Error("failed to clear session", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not sign out")
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}
