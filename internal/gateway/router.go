package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/medcore/hospital-gateway/internal/api"
	"github.com/medcore/hospital-gateway/internal/api/metrics"
	"github.com/medcore/hospital-gateway/internal/api/middleware"
	"github.com/medcore/hospital-gateway/internal/infrastructure/http/handlers"
)

// RouterConfig holds the edge settings that are not part of routing.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	ReadyChecks    map[string]handlers.Check
}

// NewRouter builds the public echo instance. CORS runs first so preflight
// requests are answered without identity or routing work.
func NewRouter(d *Dispatcher, cfg RouterConfig, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.CORSWithConfig(corsConfig(cfg.AllowedOrigins)))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	if cfg.RateLimitRPS > 0 {
		store := echomiddleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS))
		e.Use(echomiddleware.RateLimiter(store))
	}

	// --- Probes and metrics (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(cfg.ReadyChecks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Everything else is dispatched ---
	e.Any("/*", d.Handle)

	return e
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowCredentials:                         true,
		UnsafeWildcardOriginWithAllowCredentials: wildcard,
		MaxAge:                                   3600,
	}
}
