package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/infra/security"
)

func newAuthRouter(t *testing.T, adminOnly bool) (*gin.Engine, *security.SessionSigner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := security.NewSessionSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new session signer: %v", err)
	}

	r := gin.New()
	r.GET("/protected", RequireAuth(signer, adminOnly), func(c *gin.Context) {
		claims := GetSessionClaims(c)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	return r, signer
}

func signedCookie(t *testing.T, signer *security.SessionSigner, name domain.CookieName, username string, isAdmin bool) *http.Cookie {
	t.Helper()
	token, _, err := signer.Sign(1, username, isAdmin, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &http.Cookie{Name: string(name), Value: token}
}

func TestRequireAuthValidCookie(t *testing.T) {
	router, signer := newAuthRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(signedCookie(t, signer, domain.CookieGeneral, "alice@example.org", false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAuthMissingCookie(t *testing.T) {
	router, _ := newAuthRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthExpiredSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	signer, err := security.NewSessionSigner("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new session signer: %v", err)
	}

	r := gin.New()
	r.GET("/protected", RequireAuth(signer, false), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, _, err := signer.Sign(1, "alice@example.org", false, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: string(domain.CookieGeneral), Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthGarbageToken(t *testing.T) {
	router, _ := newAuthRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: string(domain.CookieGeneral), Value: "not-a-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthAdminOnly(t *testing.T) {
	router, signer := newAuthRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(signedCookie(t, signer, domain.CookieGeneral, "alice@example.org", false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for non-admin", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(signedCookie(t, signer, domain.CookieGeneral, "admin@example.org", true))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for admin", rec.Code)
	}
}

func TestRequireAuthInterfaceScopedCookie(t *testing.T) {
	router, signer := newAuthRouter(t, false)

	// A portal-named cookie must not satisfy a request without the portal
	// interface header.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(signedCookie(t, signer, domain.CookiePortal, "alice@example.org", false))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(domain.InterfaceNameHeader, "portal")
	req.AddCookie(signedCookie(t, signer, domain.CookiePortal, "alice@example.org", false))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with matching interface header", rec.Code)
	}
}
