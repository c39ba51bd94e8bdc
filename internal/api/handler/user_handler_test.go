package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medcore/hospital-gateway/internal/api/middleware"
	"github.com/medcore/hospital-gateway/internal/core/domain"
	"github.com/medcore/hospital-gateway/internal/core/ports"
)

var (
	nurseIdentity = domain.Identity{Username: "nurse_joy", Role: domain.RoleNurse}
	adminIdentity = domain.Identity{Username: "admin", Role: domain.RoleAdmin}
)

// serve routes one request through a bare echo instance with Identify
// wired to a fixed identity.
func serve(t *testing.T, who domain.Identity, method, path, body string, register func(e *echo.Echo)) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := newTestEcho()
	var handlerErr error
	e.HTTPErrorHandler = func(err error, c echo.Context) { handlerErr = err }
	e.Use(middleware.Identify(fixedIdentifier(who)))
	register(e)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = jsonRequest(method, path, body)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer any")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, handlerErr
}

type fixedIdentifier domain.Identity

func (f fixedIdentifier) Identify(string) domain.Identity { return domain.Identity(f) }

func TestUserHandler_List(t *testing.T) {
	stub := &stubAuthService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{
				{ID: "u1", Username: "admin", PasswordHash: "h", Role: domain.RoleAdmin, Active: true},
				{ID: "u2", Username: "dr_smith", PasswordHash: "h", Role: domain.RoleDoctor},
			}, nil
		},
	}
	h := NewUserHandler(stub)

	rec, err := serve(t, adminIdentity, http.MethodGet, "/api/users", "", func(e *echo.Echo) {
		e.GET("/api/users", h.List)
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var users []domain.UserView
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(users) != 2 || users[1].Username != "dr_smith" || users[1].Active {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestUserHandler_ListByRole_PassesParam(t *testing.T) {
	var got string
	stub := &stubAuthService{
		listByRoleFn: func(ctx context.Context, role string) ([]*domain.User, error) {
			got = role
			if role == "janitor" {
				return nil, domain.ErrInvalidRole
			}
			return []*domain.User{}, nil
		},
	}
	h := NewUserHandler(stub)
	register := func(e *echo.Echo) { e.GET("/api/users/role/:role", h.ListByRole) }

	rec, err := serve(t, adminIdentity, http.MethodGet, "/api/users/role/doctor", "", register)
	if err != nil || rec.Code != http.StatusOK || got != "doctor" {
		t.Fatalf("unexpected result: code=%d err=%v role=%q", rec.Code, err, got)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}

	_, err = serve(t, adminIdentity, http.MethodGet, "/api/users/role/janitor", "", register)
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestUserHandler_Get_ForwardsCaller(t *testing.T) {
	stub := &stubAuthService{
		getUserFn: func(ctx context.Context, caller domain.Identity, id string) (*domain.User, error) {
			if caller != nurseIdentity {
				t.Fatalf("caller not propagated: %+v", caller)
			}
			if id != "u3" {
				return nil, domain.ErrForbidden
			}
			return &domain.User{ID: "u3", Username: "nurse_joy", Role: domain.RoleNurse, Active: true}, nil
		},
	}
	h := NewUserHandler(stub)
	register := func(e *echo.Echo) { e.GET("/api/users/:id", h.Get) }

	rec, err := serve(t, nurseIdentity, http.MethodGet, "/api/users/u3", "", register)
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("unexpected result: code=%d err=%v", rec.Code, err)
	}

	_, err = serve(t, nurseIdentity, http.MethodGet, "/api/users/u1", "", register)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUserHandler_GetByUsername(t *testing.T) {
	stub := &stubAuthService{
		lookupFn: func(ctx context.Context, caller domain.Identity, username string) (*domain.User, error) {
			if username == "ghost" {
				return nil, domain.ErrUserNotFound
			}
			return &domain.User{ID: "u2", Username: username, Role: domain.RoleDoctor, Active: true}, nil
		},
	}
	h := NewUserHandler(stub)
	register := func(e *echo.Echo) { e.GET("/api/users/username/:username", h.GetByUsername) }

	rec, err := serve(t, nurseIdentity, http.MethodGet, "/api/users/username/dr_smith", "", register)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var user domain.UserView
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil || user.Username != "dr_smith" {
		t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
	}

	_, err = serve(t, nurseIdentity, http.MethodGet, "/api/users/username/ghost", "", register)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Update(t *testing.T) {
	var got ports.UpdateInput
	stub := &stubAuthService{
		updateFn: func(ctx context.Context, actor domain.Identity, id string, in ports.UpdateInput) (*domain.User, error) {
			if actor != adminIdentity || id != "u2" {
				t.Fatalf("unexpected actor/id: %+v %s", actor, id)
			}
			got = in
			return &domain.User{ID: id, Username: "dr_smith", Email: *in.Email, Role: domain.RoleDoctor, Active: true}, nil
		},
	}
	h := NewUserHandler(stub)
	register := func(e *echo.Echo) { e.PUT("/api/users/:id", h.Update) }

	rec, err := serve(t, adminIdentity, http.MethodPut, "/api/users/u2", `{"email":"new@hospital.org","active":false}`, register)
	if err != nil || rec.Code != http.StatusOK {
		t.Fatalf("unexpected result: code=%d err=%v", rec.Code, err)
	}
	if got.Email == nil || *got.Email != "new@hospital.org" {
		t.Fatalf("email not passed: %+v", got)
	}
	if got.Active == nil || *got.Active {
		t.Fatalf("active flag not passed: %+v", got)
	}
	if got.Role != nil || got.Password != nil || got.FirstName != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}

	_, err = serve(t, adminIdentity, http.MethodPut, "/api/users/u2", `{"email":"broken"}`, register)
	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestUserHandler_Deactivate(t *testing.T) {
	calls := 0
	stub := &stubAuthService{
		deactivateFn: func(ctx context.Context, actor domain.Identity, id string) error {
			calls++
			if id == "missing" {
				return domain.ErrUserNotFound
			}
			return nil
		},
	}
	h := NewUserHandler(stub)
	register := func(e *echo.Echo) { e.DELETE("/api/users/:id", h.Deactivate) }

	rec, err := serve(t, adminIdentity, http.MethodDelete, "/api/users/u2", "", register)
	if err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected result: code=%d err=%v", rec.Code, err)
	}

	_, err = serve(t, adminIdentity, http.MethodDelete, "/api/users/missing", "", register)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
