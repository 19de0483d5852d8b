// internal/app/features/profile/routes.go
package profile

import (
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Post("/complete", h.HandleComplete)
	r.Patch("/", h.HandleUpdate)
	r.Put("/information", h.HandleInformation)
	r.Put("/payment-number", h.HandlePaymentNumber)
	r.Get("/payments", h.HandlePayments)
	return r
}
