/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the calling UI

ROUTE GROUPS:
  /api/commissions/*       Settlement records and lifecycle operations
  /api/tier-rules          Rule configuration (admin)
  /api/representatives     Representative records (admin)
  /api/activity            Activity summaries (admin)

SECURITY NOTE:
  Authentication is owned by the source application's session layer;
  this service receives the established identity via headers. Role
  enforcement happens inside the engine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Commission routes
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.ListCommissions)
			r.Post("/generate", h.Generate)
			r.Get("/{id}", h.GetCommission)
			r.Post("/{id}/request-payment", h.RequestPayment)
			r.Post("/{id}/approve-payment", h.ApprovePayment)
			r.Post("/{id}/reject", h.RejectCommission)
			r.Post("/{id}/cancel", h.CancelCommission)
		})

		// Configuration routes (admin)
		r.Route("/tier-rules", func(r chi.Router) {
			r.Get("/", h.GetTierRules)
			r.Put("/", h.PutTierRules)
		})

		r.Route("/representatives", func(r chi.Router) {
			r.Get("/", h.ListRepresentatives)
			r.Post("/", h.SaveRepresentative)
		})

		r.Post("/activity", h.SaveActivity)
	})

	return r
}
