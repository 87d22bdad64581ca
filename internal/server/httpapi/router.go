package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/contacthub/contacthub/internal/logging"
)

// AuthFlow is everything the router needs from the user service.
type AuthFlow interface {
	AuthService
	UserService
	Authenticator
}

// RouterDeps bundles the dependencies of NewRouter.
type RouterDeps struct {
	Auth     AuthFlow
	Contacts ContactService

	Logger        logging.Logger
	Metrics       *Metrics
	RateLimiter   *IPRateLimiter
	LockoutWindow time.Duration
}

// NewRouter wires every endpoint and the middleware chain. The auth
// endpoints sit behind the per-IP limiter; everything else requires a bearer
// access token.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authHandler := NewAuthHandler(deps.Auth, deps.LockoutWindow)
	userHandler := NewUserHandler(deps.Auth)
	contactHandler := NewContactHandler(deps.Contacts)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})

	// pre-auth endpoints, throttled per source IP
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Get("/confirmed_email/{token}", authHandler.ConfirmEmail)
			r.Post("/request_email", authHandler.RequestEmail)
			r.Post("/token/refresh", authHandler.Refresh)
			r.Post("/reset_password", authHandler.ResetPassword)
			r.Post("/confirm_reset_password/{token}", authHandler.ConfirmResetPassword)
		})
	})

	// authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Auth))

		r.Post("/api/auth/logout", authHandler.Logout)

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.Me)
			r.Patch("/avatar", userHandler.UpdateAvatar)
		})

		r.Route("/api/contacts", func(r chi.Router) {
			r.Post("/", contactHandler.Create)
			r.Get("/", contactHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contactHandler.Get)
				r.Put("/", contactHandler.Update)
				r.Delete("/", contactHandler.Delete)
			})
		})

		r.Get("/api/birthdays/nearest", contactHandler.UpcomingBirthdays)
	})

	return r
}
