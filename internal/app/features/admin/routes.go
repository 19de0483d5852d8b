// internal/app/features/admin/routes.go
package admin

import (
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireAdmin)
	r.Post("/campaigns", h.HandleCreateCampaign)
	r.Post("/campaigns/{id}/mail", h.HandleMailBlast)
	r.Get("/campaigns/{id}/report", h.HandleReport)
	r.Post("/campaigns/{id}/reward", h.HandleReward)
	r.Post("/campaigns/{id}/version", h.HandleBumpVersion)
	r.Post("/campaigns/{id}/close", h.HandleClose)
	r.Get("/users/segment", h.HandleSegment)
	return r
}
