package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// formOverhead leaves room for the other multipart fields next to the file
const formOverhead = 1 << 20

func (h *Handler) Routes(m *Middleware, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Timeout(30 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	r.NotFound(h.notFound)

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})
	r.Get("/static/uploads/{name}", h.ServeUpload)

	// Public read API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.CORS(h.config.Security.CORSAllowedOrigins))
		r.Use(m.RateLimit(h.config.Security.RateLimitRPM))

		r.Get("/posts", h.ListPublishedPosts)
		r.Get("/posts/{slug}", h.GetPublishedPost)
		r.Get("/categories", h.ListPublicCategories)
	})

	// Admin panel
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.LoadSession)
		r.Use(h.LimitBody(h.config.Uploads.MaxBytes + formOverhead))
		r.Use(h.VerifyCSRF)

		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)
		r.Get("/forgot-password", h.ForgotPasswordPage)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Get("/reset-password/{token}", h.ResetPasswordPage)
		r.Post("/reset-password/{token}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireLogin)

			r.Get("/", h.Dashboard)
			r.Get("/profile", h.ProfilePage)
			r.Post("/profile", h.UpdateProfile)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", h.ListPosts)
				r.Get("/create", h.NewPostPage)
				r.Post("/create", h.CreatePost)
				r.Get("/{id}/edit", h.EditPostPage)
				r.Post("/{id}/edit", h.UpdatePost)
				r.Post("/{id}/delete", h.DeletePost)
				r.Post("/{id}/publish", h.PublishPost)
				r.Post("/{id}/unpublish", h.UnpublishPost)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Get("/create", h.ListCategories)
				r.Post("/create", h.CreateCategory)
				r.Get("/{id}/edit", h.EditCategoryPage)
				r.Post("/{id}/edit", h.UpdateCategory)
				r.Post("/{id}/delete", h.DeleteCategory)
			})

			r.Route("/media", func(r chi.Router) {
				r.Get("/", h.ListMedia)
				r.Post("/upload", h.UploadMedia)
				r.Post("/{id}/delete", h.DeleteMedia)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Get("/create", h.NewUserPage)
					r.Post("/create", h.CreateUser)
					r.Get("/{id}/edit", h.EditUserPage)
					r.Post("/{id}/edit", h.UpdateUser)
					r.Post("/{id}/delete", h.DeleteUser)
				})

				r.Get("/settings", h.SettingsPage)
				r.Post("/settings", h.UpdateSiteSettings)
				r.Post("/settings/update", h.UpdateSiteSettings)
				r.Post("/settings/email/update", h.UpdateMailSettings)
			})
		})
	})

	return r
}
