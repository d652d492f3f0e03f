package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
)

type RouterOptions struct {
	Sessions SessionService
	Metrics  *metrics.Metrics
	Logger   logging.Logger

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string
	// RateLimitPerMinute limits each client IP on the auth routes; 0 disables it.
	RateLimitPerMinute int
	// RequestTimeout bounds every request; 0 means 60s.
	RequestTimeout time.Duration
}

// NewRouter mounts the auth routes at the root and under /api/auth, next to
// /health and /metrics.
func NewRouter(opts RouterOptions) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	h := NewHandler(opts.Sessions, opts.Metrics, opts.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(opts.Metrics.Middleware)
	r.Use(recoverer(h.logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           int((10 * time.Minute).Seconds()),
		}))
	}

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	authRoutes := func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.With(h.RequireAccessToken).Post("/logout", h.Logout)
	}

	r.Group(authRoutes)
	r.Route("/api/auth", authRoutes)

	return r
}
