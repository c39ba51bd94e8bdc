package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/medcore/hospital-gateway/internal/api/handler"
	"github.com/medcore/hospital-gateway/internal/api/metrics"
	"github.com/medcore/hospital-gateway/internal/api/middleware"
	"github.com/medcore/hospital-gateway/internal/core/domain"
	"github.com/medcore/hospital-gateway/internal/core/ports"
	"github.com/medcore/hospital-gateway/internal/infrastructure/http/handlers"
)

// Deps bundles what the auth service router needs.
type Deps struct {
	AuthService ports.AuthService
	Policy      ports.AccessPolicy
	ReadyChecks map[string]handlers.Check
	Swagger     bool
}

// userPrefixes are the two mounts of the user administration API.
var userPrefixes = []string{"/api/auth/users", "/api/users"}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.Identify(deps.AuthService))

	authHandler := handler.NewAuthHandler(deps.AuthService)
	userHandler := handler.NewUserHandler(deps.AuthService)
	allow := func(op domain.Operation) echo.MiddlewareFunc {
		return middleware.Authorize(deps.Policy, op)
	}

	// --- Auth routes ---
	e.POST("/api/auth/login", authHandler.Login)
	e.POST("/api/auth/validate", authHandler.Validate)
	e.POST("/api/auth/register", authHandler.Register, allow(domain.OpRegister))

	// --- User administration ---
	for _, prefix := range userPrefixes {
		g := e.Group(prefix)
		g.GET("", userHandler.List, allow(domain.OpListUsers))
		g.POST("", authHandler.Register, allow(domain.OpRegister))
		g.GET("/active", userHandler.ListActive, allow(domain.OpListActive))
		g.GET("/role/:role", userHandler.ListByRole, allow(domain.OpListByRole))
		g.GET("/username/:username", userHandler.GetByUsername, allow(domain.OpFetchUser))
		g.GET("/:id", userHandler.Get, allow(domain.OpFetchUser))
		g.PUT("/:id", userHandler.Update, allow(domain.OpUpdateUser))
		g.PATCH("/:id", userHandler.Update, allow(domain.OpUpdateUser))
		g.DELETE("/:id", userHandler.Deactivate, allow(domain.OpDeactivateUser))
	}

	// --- Probes, metrics and docs (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(deps.ReadyChecks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}
