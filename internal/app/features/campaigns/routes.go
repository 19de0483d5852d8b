// internal/app/features/campaigns/routes.go
package campaigns

import (
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/{id}/join", h.HandleJoin)
	r.Post("/{id}/submissions", h.HandleSubmission)
	return r
}
