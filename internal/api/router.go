package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/craftlinkhq/craftlink/internal/api/middleware"
	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler   http.HandlerFunc
	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc

	CreateJobHandler http.HandlerFunc
	GetJobHandler    http.HandlerFunc
	ListJobsHandler  http.HandlerFunc

	CreateRequestHandler  http.HandlerFunc
	AcceptRequestHandler  http.HandlerFunc
	DeclineRequestHandler http.HandlerFunc
	CancelRequestHandler  http.HandlerFunc
	TimeoutCheckHandler   http.HandlerFunc
	GetRequestHandler     http.HandlerFunc
	ListRequestsHandler   http.HandlerFunc

	AdminListRequestsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))

	// Identity routes run before authentication, rate limited by client IP.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.LimitByIP)

		r.Post("/api/identity/register", orNotImplemented(deps.RegisterHandler))
		r.Post("/api/identity/token", orNotImplemented(deps.LoginHandler))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/jobs/create", orNotImplemented(deps.CreateJobHandler))
		r.Get("/api/jobs/all", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

		r.Post("/api/requests/create", orNotImplemented(deps.CreateRequestHandler))
		r.Put("/api/requests/accept/{requestID}", orNotImplemented(deps.AcceptRequestHandler))
		r.Put("/api/requests/reject/{requestID}", orNotImplemented(deps.DeclineRequestHandler))
		r.Put("/api/requests/cancel/{requestID}", orNotImplemented(deps.CancelRequestHandler))
		r.Post("/api/requests/timeout/{jobID}", orNotImplemented(deps.TimeoutCheckHandler))
		r.Get("/api/requests/all", orNotImplemented(deps.ListRequestsHandler))
		r.Get("/api/requests/{requestID}", orNotImplemented(deps.GetRequestHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireRole(models.RoleAdmin))

			r.Get("/api/requests/admin/all", orNotImplemented(deps.AdminListRequestsHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Failure(w, http.StatusNotImplemented, "Endpoint not yet implemented.")
	}
}
