package api

import (
	"net/http"

	"leave-ledger/internal/apperror"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter wires the middleware stack and every route.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware)
	}

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireActor)

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.CreateEmployee)
			r.Get("/", h.ListEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}/role", h.UpdateEmployeeRole)
			r.Get("/{id}/leave-requests", h.ListEmployeeLeave)
			r.Get("/{id}/balances/{year}", h.GetBalance)
			r.Put("/{id}/balances/{year}", h.SetEntitlements)
		})

		r.Route("/leave-requests", func(r chi.Router) {
			r.Post("/", h.SubmitLeave)
			r.Get("/{id}", h.GetLeave)
			r.Post("/{id}/decision", h.DecideLeave)
			r.Post("/{id}/process", h.ProcessLeave)
			r.Post("/{id}/documents", h.AttachDocument)
			r.Get("/{id}/documents", h.ListDocuments)
		})

		r.Get("/calendar/{year}/{month}", h.ListNonWorkingDays)

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", h.CreateWorkflow)
			r.Get("/{id}", h.GetWorkflow)
			r.Post("/{id}/advance", h.AdvanceWorkflow)
			r.Post("/{id}/reject", h.RejectWorkflow)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, apperror.CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
