package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/gitstats/backend/app"
	"github.com/upb/gitstats/backend/middleware"
	"github.com/upb/gitstats/backend/utils"
)

// corsMaxAge is how long browsers may cache a preflight response, in seconds
const corsMaxAge = 3600

// SetupRoutes configures all application routes and middleware.
// Every request passes Authenticate then Authorize, so route registration
// never decides who may reach a handler.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	if deps.Config.Server.TrustProxy {
		// Otherwise any client could pick its own rate-limit key
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	// CORS answers preflights before authentication runs
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))

	// Authentication and authorization
	r.Use(deps.AuthMiddleware.Authenticate)
	r.Use(deps.PolicyMiddleware.Authorize)
	r.Use(optionsNoContent)

	r.Get("/api/health-check", deps.HealthHandler.HandleHealth)

	// GitHub OAuth2 login
	r.Get("/oauth2/authorization/github", deps.AuthHandler.HandleLogin)
	r.Get("/login/oauth2/code/github", deps.AuthHandler.HandleCallback)

	// GitHub-backed API, rate limited per client
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimiter, deps.Logger))

		r.Route("/api/users/{username}", func(r chi.Router) {
			r.Get("/", deps.UserHandler.HandleGetUser)
			r.Get("/repos", deps.UserHandler.HandleGetRepos)
			r.Get("/languages", deps.UserHandler.HandleGetLanguages)
			r.Get("/events", deps.UserHandler.HandleGetEvents)
		})

		r.Route("/api/user", func(r chi.Router) {
			r.Get("/me", deps.UserHandler.HandleMe)
			r.Get("/repos", deps.UserHandler.HandleMyRepos)
			r.Get("/events", deps.UserHandler.HandleMyEvents)
			r.Get("/contributions", deps.UserHandler.HandleMyContributions)
			r.Get("/overview", deps.UserHandler.HandleMyOverview)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}

// optionsNoContent answers OPTIONS requests the CORS handler let through
// (those without a preflight Origin) on any path.
func optionsNoContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			utils.WriteNoContent(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
