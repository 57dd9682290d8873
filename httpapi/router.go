package httpapi

import (
	"net/http"

	"agencycrm/activity"
	"agencycrm/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the full HTTP surface. Auth endpoints are open; everything
// under /api/activities requires a bearer token.
func NewRouter(authSvc *auth.Service, activitySvc *activity.Service) http.Handler {
	authHandler := NewAuthHandler(authSvc)
	activityHandler := NewActivityHandler(activitySvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.register)
		r.Post("/auth/login", authHandler.login)

		r.Route("/activities", func(r chi.Router) {
			r.Use(AuthContext(authSvc))

			r.Get("/", activityHandler.list)
			r.Post("/", activityHandler.create)
			r.Get("/stats", activityHandler.stats)
			r.Get("/search/{query}", activityHandler.search)
			r.Post("/bulk", activityHandler.bulk)
			r.Get("/{id}", activityHandler.get)
			r.Put("/{id}", activityHandler.update)
			r.Delete("/{id}", activityHandler.delete)
		})
	})

	return r
}
