package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Settings *SettingsHandler
	Upload   *UploadHandler
	Health   *HealthHandler
}

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	// Sessions resolves the session cookie on protected routes.
	Sessions middleware.SessionChecker
	// Limiter throttles login and forgot-password per client IP.
	Limiter *middleware.RateLimiter
	// AllowedOrigins lists the CORS origins. Development reflects any origin.
	AllowedOrigins []string
	Development    bool
	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP. Off,
	// the rate limiter keys on the TCP peer.
	TrustProxy bool
}

// NewRouter constructs the HTTP handler serving the CMS API.
//
// Routes:
//
//	POST   /api/auth/login              → Auth.Login (rate limited)
//	POST   /api/auth/logout             → Auth.Logout
//	GET    /api/auth/check              → Auth.Check
//	POST   /api/auth/change-password    → Auth.ChangePassword (session)
//	POST   /api/auth/change-profile     → Auth.ChangeProfile (session)
//	POST   /api/auth/forgot-password    → Auth.ForgotPassword (rate limited)
//	POST   /api/auth/reset-password     → Auth.ResetPassword
//	GET    /api/settings                → Settings.GetAll
//	PUT    /api/settings                → Settings.Update (session)
//	PUT    /api/settings/{key}          → Settings.Set (session)
//	DELETE /api/settings/{key}          → Settings.Clear (session)
//	POST   /api/settings/{key}/upload   → Settings.Upload (session)
//	POST   /api/upload-image            → Upload.UploadImage (session)
//	POST   /api/upload-video            → Upload.UploadVideo (session)
//	GET    /api/health                  → Health.Health
func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if opts.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(corsOptions(opts)))

	requireSession := middleware.RequireSession(opts.Sessions, logger)
	limit := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		limit = opts.Limiter.Limit
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health.Health)

		// JSON endpoints
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Route("/auth", func(r chi.Router) {
				r.With(limit).Post("/login", h.Auth.Login)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/check", h.Auth.Check)
				r.With(limit).Post("/forgot-password", h.Auth.ForgotPassword)
				r.Post("/reset-password", h.Auth.ResetPassword)

				r.Group(func(r chi.Router) {
					r.Use(requireSession)
					r.Post("/change-password", h.Auth.ChangePassword)
					r.Post("/change-profile", h.Auth.ChangeProfile)
				})
			})

			r.Get("/settings", h.Settings.GetAll)
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Put("/settings", h.Settings.Update)
				r.Put("/settings/{key}", h.Settings.Set)
				r.Delete("/settings/{key}", h.Settings.Clear)
			})
		})

		// Multipart endpoints
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("multipart/form-data"))
			r.Use(requireSession)
			r.Post("/settings/{key}/upload", h.Settings.Upload)
			r.Post("/upload-image", h.Upload.UploadImage)
			r.Post("/upload-video", h.Upload.UploadVideo)
		})
	})

	return r
}

func corsOptions(opts RouterOptions) cors.Options {
	o := cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if opts.Development {
		o.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	}
	return o
}
