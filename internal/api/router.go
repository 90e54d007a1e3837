package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cardbind/internal/cardservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *cardservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// The card schema is public.
	r.Get("/schema", h.Schema)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Get("/bundles", h.ListBundles)
		r.Post("/bundles/sync", h.SyncBundles)
		r.Get("/bundles/{name}/contract", h.BundleContract)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.Get("/", h.ListSessions)
			r.Get("/{id}", h.GetSession)
			r.Put("/{id}/data", h.UpdateData)
			r.Put("/{id}/surface", h.Resize)
			r.Put("/{id}/color-mode", h.SetColorMode)
			r.Post("/{id}/evaluate", h.Evaluate)
			r.Delete("/{id}", h.CloseSession)
		})

		r.Post("/media/match", h.MatchMedia)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
