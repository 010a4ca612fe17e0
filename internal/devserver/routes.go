package devserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving the StyleGuard API stub.
//
// Routes:
//
//	POST   /auth/register     → authHandler.Register (public)
//	POST   /auth/token        → authHandler.Token (public, form-encoded)
//	POST   /auth/refresh      → authHandler.Refresh (public)
//	GET    /auth/me           → authHandler.Me (bearer)
//	POST   /auth/logout       → authHandler.Logout (bearer)
//	POST   /corrections/      → correctionHandler.Create (bearer)
//	GET    /corrections/      → correctionHandler.List (bearer)
//	GET    /corrections/{id}  → correctionHandler.Get (bearer)
//	DELETE /corrections/{id}  → correctionHandler.Delete (bearer)
func NewRouter(
	authHandler *AuthHandler,
	correctionHandler *CorrectionHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(WithRequestLogging(logger))
	// The token endpoint is form-encoded, everything else is JSON
	r.Use(chiMiddleware.AllowContentType("application/json", "application/x-www-form-urlencoded"))

	r.Route("/auth", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/token", authHandler.Token)
		r.Post("/refresh", authHandler.Refresh)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(authHandler.Store))
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/corrections", func(r chi.Router) {
		r.Use(BearerAuth(authHandler.Store))
		r.Post("/", correctionHandler.Create)
		r.Get("/", correctionHandler.List)
		r.Get("/{id}", correctionHandler.Get)
		r.Delete("/{id}", correctionHandler.Delete)
	})

	return r
}
