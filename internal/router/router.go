// Package router sets up all HTTP routes and middleware chains for the
// media portal API. Every protected route is wrapped by the authorizer
// with the permission its operation requires; routes that take a
// category id expose it under the shared URL parameter name so the
// category-scope check finds it.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediaportal/internal/handlers"
	"mediaportal/internal/middleware"
	"mediaportal/internal/models"
	"mediaportal/internal/session"
)

// Deps bundles everything the router needs wired in.
type Deps struct {
	Sessions   *session.Store
	Authorizer *middleware.Authorizer
	Secure     bool

	Auth       *handlers.Auth
	Categories *handlers.Categories
	Materials  *handlers.Materials
	Users      *handlers.Users
	Roles      *handlers.Roles
	Logs       *handlers.Logs
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))

	// Health check — no auth, no CSRF.
	r.Get("/health", healthHandler)

	authz := d.Authorizer

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.Secure))

		// Login is rate limited per client IP to slow down credential
		// stuffing. 10 attempts per minute is generous for humans.
		loginLimiter := middleware.NewRateLimiter(10, time.Minute)
		r.With(loginLimiter.Middleware).Post("/auth/login", d.Auth.Login)
		r.Post("/auth/logout", d.Auth.Logout)

		// 2FA — requires auth but NOT completed 2FA.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/auth/2fa/setup", d.Auth.TwoFASetup)
			r.Post("/auth/2fa/verify", d.Auth.TwoFAVerify)
			r.Get("/auth/me", d.Auth.Me)
		})

		// Authenticated + 2FA-verified portal area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			// Categories. Browsing falls under viewing materials; the
			// tree handlers narrow output to the accessible set.
			r.Route("/categories", func(r chi.Router) {
				r.With(authz.RequirePermission(models.PermViewMaterials)).Get("/", d.Categories.List)
				r.With(authz.RequirePermission(models.PermViewMaterials)).Get("/tree", d.Categories.Tree)
				r.With(authz.RequirePermission(models.PermCreateCategories)).Post("/", d.Categories.Create)
				r.With(authz.RequirePermission(models.PermEditCategories)).Post("/reorder", d.Categories.Reorder)

				r.Route("/{categoryID}", func(r chi.Router) {
					r.With(authz.RequirePermission(models.PermViewMaterials)).Get("/", d.Categories.Get)
					r.With(authz.RequirePermission(models.PermEditCategories)).Put("/", d.Categories.Update)
					r.With(authz.RequirePermission(models.PermEditCategories)).Put("/move", d.Categories.Move)
					r.With(authz.RequirePermission(models.PermEditCategories)).Put("/active", d.Categories.SetActive)
					r.With(authz.RequirePermission(models.PermDeleteCategories)).Delete("/", d.Categories.Delete)
				})
			})

			// Materials. Listing filters through the attached scope;
			// id-addressed routes re-check access against the loaded row.
			r.Route("/materials", func(r chi.Router) {
				r.With(
					authz.RequirePermission(models.PermViewMaterials),
					authz.AttachAccessibleCategories,
				).Get("/", d.Materials.List)
				r.With(authz.RequirePermission(models.PermCreateMaterials)).Post("/", d.Materials.Upload)

				r.Route("/{materialID}", func(r chi.Router) {
					r.With(authz.RequirePermission(models.PermViewMaterials)).Get("/", d.Materials.Get)
					r.With(authz.RequirePermission(models.PermDownloadMaterials)).Get("/download", d.Materials.Download)
					r.With(authz.RequirePermission(models.PermEditMaterials)).Put("/", d.Materials.Update)
					r.With(authz.RequirePermission(models.PermEditMaterials)).Put("/active", d.Materials.SetActive)
					r.With(authz.RequirePermission(models.PermDeleteMaterials)).Delete("/", d.Materials.Delete)
				})
			})

			// User administration.
			r.Route("/users", func(r chi.Router) {
				r.With(authz.RequirePermission(models.PermViewUsers)).Get("/", d.Users.List)
				r.With(authz.RequirePermission(models.PermCreateUsers)).Post("/", d.Users.Create)

				r.Route("/{userID}", func(r chi.Router) {
					r.With(authz.RequirePermission(models.PermEditUsers)).Put("/", d.Users.Update)
					r.With(authz.RequirePermission(models.PermEditUsers)).Post("/reset-password", d.Users.ResetPassword)
					r.With(authz.RequirePermission(models.PermEditUsers)).Post("/reset-2fa", d.Users.ResetTOTP)
					r.With(authz.RequirePermission(models.PermDeleteUsers)).Delete("/", d.Users.Delete)
				})
			})

			// Role administration.
			r.Route("/roles", func(r chi.Router) {
				r.Use(authz.RequirePermission(models.PermManageRoles))
				r.Get("/", d.Roles.List)
				r.Post("/", d.Roles.Create)
				r.Get("/{roleID}", d.Roles.Get)
				r.Put("/{roleID}", d.Roles.Update)
				r.Put("/{roleID}/categories", d.Roles.SetCategories)
				r.Delete("/{roleID}", d.Roles.Delete)
			})

			// Audit log.
			r.With(authz.RequirePermission(models.PermViewLogs)).Get("/logs", d.Logs.List)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
