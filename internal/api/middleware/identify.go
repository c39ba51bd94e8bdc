package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

const identityKey = "identity"

// Identifier turns a bearer token into an identity without failing.
type Identifier interface {
	Identify(token string) domain.Identity
}

// Identify decodes the bearer token, if any, and stores the caller identity
// in the context. It never rejects a request: a missing, expired or forged
// token leaves the caller anonymous and Authorize decides what follows.
func Identify(identifier Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(identityKey, identifier.Identify(BearerToken(c.Request())))
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Identify, or the anonymous
// identity when the middleware did not run.
func IdentityFrom(c echo.Context) domain.Identity {
	id, _ := c.Get(identityKey).(domain.Identity)
	return id
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
