/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/entries/*     Timesheet entries and their pay variables
  /api/workers/*     Weekly view, monthly recap, recap export
  /api/formulas/*    Pay formulas
  /api/lockdown/*    Payroll lockdown
  /api/admin/*       Directory and assignment sync
  /api/scenarios/*   Demo scenarios
  /healthz           Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list allows any origin.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.SearchEntries)
			r.Post("/", h.CreateEntry)
			r.Post("/from-assignment", h.CreateEntryFromAssignment)
			r.Post("/bulk-validate", h.BulkValidate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEntry)
				r.Put("/", h.UpdateEntry)
				r.Delete("/", h.DeleteEntry)
				r.Post("/sign", h.SignEntry)
				r.Post("/submit", h.SubmitEntry)
				r.Post("/validate", h.ValidateEntry)
				r.Post("/reject", h.RejectEntry)
				r.Post("/correct", h.CorrectEntry)

				r.Get("/variables", h.ListVariables)
				r.Post("/variables", h.CreateVariable)
				r.Delete("/variables/{variableID}", h.DeleteVariable)
			})
		})

		r.Route("/workers/{id}", func(r chi.Router) {
			r.Get("/weeks/{date}", h.GetWeek)
			r.Get("/recap/{year}/{month}", h.GetRecap)
			r.Get("/recap/{year}/{month}/export", h.ExportRecap)
		})

		r.Route("/formulas", func(r chi.Router) {
			r.Get("/", h.ListFormulas)
			r.Post("/", h.CreateFormula)
			r.Get("/{id}", h.GetFormula)
			r.Put("/{id}", h.UpdateFormula)
			r.Post("/{id}/evaluate", h.EvaluateFormula)
			r.Post("/{id}/apply", h.ApplyFormula)
		})

		r.Route("/lockdown", func(r chi.Router) {
			r.Get("/{year}/{month}", h.GetLockdown)
			r.Post("/run", h.RunLockdown)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/actors", h.PutActor)
			r.Post("/assignments", h.PutAssignment)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
