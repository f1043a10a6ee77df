package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/auth-server/internal/api/http/handler"
	"github.com/dtroode/auth-server/internal/api/http/middleware"
	"github.com/dtroode/auth-server/internal/logger"
	"github.com/dtroode/auth-server/internal/model"
	"github.com/dtroode/auth-server/internal/service"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	authService    *service.Auth
	provider       model.IdentityProvider
	contextManager model.ContextManager
	frontendURL    string
	secureCookies  bool
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService *service.Auth,
	provider model.IdentityProvider,
	contextManager model.ContextManager,
	frontendURL string,
	secureCookies bool,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		provider:       provider,
		contextManager: contextManager,
		frontendURL:    frontendURL,
		secureCookies:  secureCookies,
		logger:         logger,
	}
}

// Register builds the route tree with logging on every request and
// authentication on the protected subtree.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.logger)
	authHandler := handler.NewAuth(r.authService, r.provider, r.contextManager, r.frontendURL, r.secureCookies, r.logger)

	mux := chi.NewRouter()
	mux.Use(logging.Handle)

	mux.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", authHandler.Register)
			auth.Post("/login", authHandler.Login)
			auth.Post("/refresh", authHandler.Refresh)
			auth.Post("/logout", authHandler.Logout)
			auth.Get("/google", authHandler.GoogleStart)
			auth.Get("/google/callback", authHandler.GoogleCallback)
		})

		api.Get("/users/{id}/avatar", authHandler.UserAvatar)

		api.Group(func(protected chi.Router) {
			protected.Use(authenticate.Handle)
			protected.Get("/me", authHandler.Me)
			protected.Put("/me/avatar", authHandler.UpdateAvatar)

			protected.Group(func(admin chi.Router) {
				admin.Use(authenticate.RequireRole(model.RoleAdmin))
				admin.Get("/admin/users", authHandler.ListUsers)
			})
		})
	})

	return mux
}
