package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medcore/hospital-gateway/internal/api/metrics"
	"github.com/medcore/hospital-gateway/internal/core/domain"
	"github.com/medcore/hospital-gateway/internal/core/ports"
)

// Authorize enforces the access rule bound to op for the identity set by
// Identify. Ownership checks that need the target record happen in the
// service instead.
func Authorize(policy ports.AccessPolicy, op domain.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := policy.Evaluate(IdentityFrom(c), op, "")
			if d.Allowed {
				metrics.AccessDecisionsTotal.WithLabelValues(string(op), "allow").Inc()
				return next(c)
			}

			metrics.AccessDecisionsTotal.WithLabelValues(string(op), string(d.Reason)).Inc()
			if d.Reason == domain.ReasonUnauthenticated {
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}
			return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
		}
	}
}
