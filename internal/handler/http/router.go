package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/auth-service/internal/auth"
	"github.com/utafrali/auth-service/internal/service"
	"github.com/utafrali/auth-service/pkg/health"
	"github.com/utafrali/auth-service/pkg/middleware"
)

// RouterConfig carries the transport-level settings the router needs.
type RouterConfig struct {
	Environment       string
	AllowedOrigins    []string
	SecureCookies     bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all auth routes registered.
func NewRouter(
	authService *service.AuthService,
	tokenManager *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.Environment = cfg.Environment
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.AllowedOrigins
		// Cookie-based refresh requires credentialed CORS requests.
		corsConfig.AllowCredentials = true
	}

	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	authHandler := NewAuthHandler(authService, logger, tokenManager.RefreshExpiry(), cfg.SecureCookies)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh", authHandler.Refresh)
		// Browser clients refresh silently via the cookie on page load.
		r.Get("/refresh", authHandler.Refresh)
	})

	validate := func(token string) (*middleware.Claims, error) {
		claims, err := tokenManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, nil
	}

	userHandler := NewUserHandler(authService, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(validate))

		r.Get("/me", userHandler.Me)
	})

	return r
}
