package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newHealthRouter(opts ...HealthOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHealthHandler(opts...)
	r := gin.New()
	r.GET("/healthz", handler.Status)
	r.GET("/readyz", handler.Readiness)
	return r
}

func TestHealthStatus(t *testing.T) {
	router := newHealthRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestReadinessAllChecksPassing(t *testing.T) {
	router := newHealthRouter(
		WithReadinessCheck("database", func(ctx context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadinessFailingCheck(t *testing.T) {
	router := newHealthRouter(
		WithReadinessCheck("database", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("migrations", func(ctx context.Context) error {
			return errors.New("migration state is dirty")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "migration state is dirty") {
		t.Fatalf("body missing failing check detail: %s", body)
	}
	if !strings.Contains(body, `"database":"ok"`) {
		t.Fatalf("body missing passing check: %s", body)
	}
}
