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
  4. CORS:       Cross-origin requests for the back office

ROUTE GROUPS:
  /api/commissions/*    Commission previews
  /api/parameters/*     Commission parameter administration
  /api/versements/*     Reconciliation dry runs
  /api/collecteurs/*    Per-collector accounts, closings, repayments, accruals
  /api/clients/*        Client withdrawal limits
  /api/mouvements       Collection movements
  /api/entities/*       Client and collector records (guarded)
  /api/audit            Audit trail
  /health               Liveness and store reachability
  /metrics              Prometheus scrape endpoint (when configured)

SECURITY NOTE:
  No authentication middleware. The gateway in front of this service
  authenticates and sets X-User-Role.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RoleHeader},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Commission routes
		r.Post("/commissions/preview", h.PreviewCommission)

		// Parameter routes
		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", h.ListParameters)
			r.Post("/", h.CreateParameter)
			r.Post("/{id}/deactivate", h.DeactivateParameter)
		})

		// Versement routes
		r.Post("/versements/preview", h.PreviewReconciliation)
		r.Post("/mouvements", h.CreateMouvement)

		// Collector routes
		r.Route("/collecteurs/{id}", func(r chi.Router) {
			r.Get("/seniority", h.GetSeniority)
			r.Post("/accruals", h.AccrueCommission)
			r.Get("/comptes", h.GetAccounts)
			r.Get("/versements", h.ListVersements)
			r.Post("/versements", h.CommitVersement)
			r.Post("/remboursements", h.CreateRemboursement)
		})

		// Client routes
		r.Get("/clients/{id}/available-balance", h.GetAvailableBalance)

		// Entity routes
		r.Route("/entities/{type}", func(r chi.Router) {
			r.Get("/", h.ListEntities)
			r.Post("/", h.RegisterEntity)
			r.Get("/allowed-fields", h.GetAllowedFields)
			r.Get("/{id}", h.GetEntity)
			r.Patch("/{id}", h.UpdateEntity)
			r.Delete("/{id}", h.DeleteEntity)
			r.Put("/{id}/status", h.SetEntityStatus)
		})

		// Audit routes
		r.Get("/audit", h.ListAudit)
	})

	return r
}
