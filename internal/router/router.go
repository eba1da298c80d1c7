// Package router sets up all HTTP routes and middleware chains for the
// Catalogo API. It organizes routes into auth, catalog, admin and media
// groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"catalogo/internal/handlers"
	"catalogo/internal/middleware"
)

// Config holds the handler groups and policies the router wires together.
type Config struct {
	Verifier     middleware.Verifier
	PublicReads  bool
	CORSOrigins  []string
	LoginLimiter *middleware.RateLimiter // nil disables login rate limiting

	API    *handlers.API
	Auth   *handlers.Auth
	Media  *handlers.Media
	Health *handlers.Health
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-TOTP-Secret", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.Verifier)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check, no auth.
	r.Get("/health", cfg.Health.Serve)

	r.Route("/api", func(r chi.Router) {
		// Token endpoints, accessible without a token. A stale Authorization
		// header left by the client is not verified here.
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Group(func(r chi.Router) {
				if cfg.LoginLimiter != nil {
					r.Use(cfg.LoginLimiter.Middleware)
				}
				r.Post("/login", cfg.Auth.Login)
				r.Post("/refresh", cfg.Auth.Refresh)
			})
			r.Post("/verify", cfg.Auth.Verify)
			r.Post("/logout", cfg.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, middleware.RequireAuth)
				r.Get("/me", cfg.Auth.Me)
				r.Patch("/me", cfg.Auth.UpdateMe)
				r.Get("/2fa/setup", cfg.Auth.TwoFASetup)
				r.Post("/2fa/enable", cfg.Auth.TwoFAEnable)
			})
		})

		// Catalog entities: writes always need a token, reads only when
		// public reads are disabled.
		r.Group(func(r chi.Router) {
			r.Use(authenticate, middleware.ReadPolicy(cfg.PublicReads))

			r.Route("/catalogs", func(r chi.Router) {
				r.Get("/", cfg.API.ListCatalogs)
				r.Post("/", cfg.API.CreateCatalog)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.API.GetCatalog)
					r.Put("/", cfg.API.UpdateCatalog)
					r.Patch("/", cfg.API.UpdateCatalog)
					r.Delete("/", cfg.API.DeleteCatalog)
					r.Get("/files", cfg.API.CatalogFiles)
					r.Get("/tree", cfg.API.CatalogTree)
					r.Post("/cover", cfg.API.UploadCover)
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", cfg.API.ListCategories)
				r.Post("/", cfg.API.CreateCategory)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.API.GetCategory)
					r.Put("/", cfg.API.UpdateCategory)
					r.Patch("/", cfg.API.UpdateCategory)
					r.Delete("/", cfg.API.DeleteCategory)
					r.Get("/path", cfg.API.CategoryPath)
					r.Get("/files", cfg.API.CategoryFiles)
				})
			})

			r.Route("/files", func(r chi.Router) {
				r.Get("/", cfg.API.ListFiles)
				r.Post("/", cfg.API.CreateFile)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.API.GetFile)
					r.Put("/", cfg.API.UpdateFile)
					r.Patch("/", cfg.API.UpdateFile)
					r.Delete("/", cfg.API.DeleteFile)
				})
			})

			r.Get("/library", cfg.API.ListLibrary)
			r.Post("/library", cfg.API.UploadLibrary)
		})

		// Bulk import, staff only.
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, middleware.RequireStaff)
			r.Get("/import/candidates", cfg.API.ImportCandidates)
			r.Post("/import", cfg.API.Import)
		})
	})

	// Protected media downloads.
	r.Group(func(r chi.Router) {
		r.Use(authenticate, middleware.ReadPolicy(cfg.PublicReads))
		r.Get("/media/*", cfg.Media.Serve)
		r.Head("/media/*", cfg.Media.Serve)
	})

	return r
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
