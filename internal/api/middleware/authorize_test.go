package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

type stubPolicy struct {
	evaluateFn func(identity domain.Identity, op domain.Operation, owner string) domain.Decision
}

func (s stubPolicy) Evaluate(identity domain.Identity, op domain.Operation, owner string) domain.Decision {
	return s.evaluateFn(identity, op, owner)
}

func adminOnly() stubPolicy {
	return stubPolicy{evaluateFn: func(identity domain.Identity, op domain.Operation, owner string) domain.Decision {
		switch {
		case identity.Role == domain.RoleAdmin:
			return domain.Decision{Allowed: true}
		case identity.IsAnonymous():
			return domain.Decision{Reason: domain.ReasonUnauthenticated}
		default:
			return domain.Decision{Reason: domain.ReasonForbidden}
		}
	}}
}

func serveAuthorized(t *testing.T, who domain.Identity) (int, bool) {
	t.Helper()
	e := echo.New()
	called := false
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(identityKey, who)
			return next(c)
		}
	})
	e.GET("/admin", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}, Authorize(adminOnly(), domain.OpListUsers))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return rec.Code, called
}

func TestAuthorize_Allowed(t *testing.T) {
	code, called := serveAuthorized(t, domain.Identity{Username: "root", Role: domain.RoleAdmin})
	if code != http.StatusOK || !called {
		t.Fatalf("expected 200 and next called, got %d called=%v", code, called)
	}
}

func TestAuthorize_Forbidden(t *testing.T) {
	code, called := serveAuthorized(t, domain.Identity{Username: "alice", Role: domain.RoleNurse})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if called {
		t.Fatalf("next must not run on deny")
	}
}

func TestAuthorize_Anonymous(t *testing.T) {
	code, called := serveAuthorized(t, domain.Anonymous)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if called {
		t.Fatalf("next must not run on deny")
	}
}

func TestAuthorize_PassesOperation(t *testing.T) {
	var gotOp domain.Operation
	gotOwner := "unset"
	policy := stubPolicy{evaluateFn: func(identity domain.Identity, op domain.Operation, owner string) domain.Decision {
		gotOp, gotOwner = op, owner
		return domain.Decision{Allowed: true}
	}}

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	h := Authorize(policy, domain.OpDeactivateUser)(func(c echo.Context) error { return nil })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOp != domain.OpDeactivateUser || gotOwner != "" {
		t.Fatalf("unexpected evaluation args: %q %q", gotOp, gotOwner)
	}
}
