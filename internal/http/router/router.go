package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/http/handlers"
	"github.com/diagnosis/bloodcare/internal/http/middleware"
	"github.com/diagnosis/bloodcare/internal/service"
	mw "github.com/diagnosis/bloodcare/pkg/middleware"
)

const serviceName = "bloodcare-api"

// Deps wires the router. RateCounter and Idempotency are optional; nil turns
// the matching middleware off.
type Deps struct {
	Users     service.UserService
	Donations service.DonationService
	Stats     service.StatsService

	Resolver middleware.PrincipalResolver
	Guard    middleware.Authorizer

	RateCounter    middleware.HitCounter
	RateRequests   int
	RateWindow     time.Duration
	Idempotency    mw.IdempotencyStore
	IdempotencyTTL time.Duration
	AllowedOrigins []string
	TrustProxy     bool
}

func New(d Deps) http.Handler {
	h := handlers.New(d.Users, d.Donations, d.Stats)

	r := chi.NewRouter()

	// Global middleware
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replay"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	limit := limiter(d)
	idempotent := func(next http.Handler) http.Handler { return next }
	if d.Idempotency != nil {
		idempotent = mw.IdempotencyMiddleware(d.Idempotency, d.IdempotencyTTL)
	}

	// Public routes
	r.Get("/", h.Welcome)
	r.Get("/users/check-status/{email}", h.CheckStatus)
	r.Get("/bloodType/{email}", h.BloodType)
	r.Get("/users/donors", h.ListDonors)
	r.Get("/donation-requests/public", h.ListPublicPending)
	r.Get("/donation-requests/{id}", h.GetRequest)
	r.With(limit("donate")).Patch("/donate/{id}", h.CommitDonor)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Resolver, d.Guard))

		r.With(limit("sync-login")).Post("/users", h.SyncLogin)
		r.Patch("/users/update/{email}", h.UpdateProfile)
		r.Get("/users/{email}", h.GetProfile)
		r.Get("/user/role", h.GetRole)
		r.Get("/application-stats", h.Stats)

		r.With(idempotent).Post("/donation-requests", h.CreateRequest)
		r.Get("/donation-requests", h.ListRequests)
		r.Get("/donations", h.ListDonations)
		r.Patch("/update-donation-status/{id}", h.UpdateStatus)
		r.Patch("/donation-requests/edit/{id}", h.EditRequest)
		r.Delete("/donation-requests/delete/{id}", h.DeleteRequest)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Get("/users", h.ListUsers)
			r.Patch("/users/block/{id}", h.SetUserStatus(domain.UserBlocked))
			r.Patch("/users/unblock/{id}", h.SetUserStatus(domain.UserActive))
			r.Patch("/users/make-volunteer/{id}", h.SetUserRole(domain.RoleVolunteer))
			r.Patch("/users/make-admin/{id}", h.SetUserRole(domain.RoleAdmin))
		})
	})

	return r
}

func limiter(d Deps) func(name string) func(http.Handler) http.Handler {
	return func(name string) func(http.Handler) http.Handler {
		if d.RateCounter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.NewRateLimiter(d.RateCounter, middleware.RateLimitConfig{
			Name:     name,
			Requests: d.RateRequests,
			Window:   d.RateWindow,
		}).Middleware()
	}
}
