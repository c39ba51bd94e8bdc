package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func readiness(t *testing.T, checks map[string]Check) (int, readinessResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	if err := NewHealthDependenciesHandler(checks).Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec.Code, resp
}

func TestReadiness_AllHealthy(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	code, resp := readiness(t, map[string]Check{"mongo": ok, "redis": ok})

	if code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("unexpected %d %+v", code, resp)
	}
	if len(resp.Dependencies) != 2 || resp.Dependencies["redis"].Status != "ok" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestReadiness_OneFailing(t *testing.T) {
	code, resp := readiness(t, map[string]Check{
		"mongo": func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	if code != http.StatusServiceUnavailable || resp.Status != "degraded" {
		t.Fatalf("unexpected %d %+v", code, resp)
	}
	if dep := resp.Dependencies["redis"]; dep.Status != "unhealthy" || dep.Error == "" {
		t.Fatalf("unexpected redis status: %+v", dep)
	}
	if resp.Dependencies["mongo"].Status != "ok" {
		t.Fatalf("healthy dependency reported as %+v", resp.Dependencies["mongo"])
	}
}

func TestReadiness_ChecksShareDeadline(t *testing.T) {
	var deadline time.Time
	code, _ := readiness(t, map[string]Check{
		"slow": func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		},
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if deadline.IsZero() || time.Until(deadline) > readinessTimeout {
		t.Fatalf("expected bounded deadline, got %v", deadline)
	}
}

func TestTCPCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	if err := TCPCheck(addr)(context.Background()); err != nil {
		t.Fatalf("expected reachable: %v", err)
	}

	ln.Close()
	if err := TCPCheck(addr)(context.Background()); err == nil {
		t.Fatalf("expected error after listener closed")
	}
}
