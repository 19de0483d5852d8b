// internal/app/features/passwordreset/routes.go
package passwordreset

import (
	"net/http"

	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(limiter.Middleware(func(w http.ResponseWriter, _ *http.Request) {
		apierr.Write(w, http.StatusTooManyRequests, apierr.CodeRateLimited, "too many reset attempts")
	}))
	r.Post("/start", h.HandleStart)
	r.Post("/complete", h.HandleComplete)
	return r
}
