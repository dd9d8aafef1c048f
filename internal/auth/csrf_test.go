package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCSRFRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewCSRFGuard(false).Middleware())
	handler := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	router.GET("/api/admin/quotes", handler)
	router.PUT("/api/admin/quotes/1/status", handler)
	router.POST("/api/contact", handler)
	router.POST("/api/auth/login", handler)
	return router
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "csrf_token" {
			return cookie
		}
	}
	t.Fatal("no csrf_token cookie set")
	return nil
}

func TestCSRFGetSetsCookieAndPasses(t *testing.T) {
	router := newCSRFRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookie := csrfCookie(t, rec)
	if cookie.HttpOnly {
		t.Error("csrf cookie must be readable by client script")
	}
	if len(cookie.Value) != 64 {
		t.Errorf("csrf token length = %d, want 64 hex chars", len(cookie.Value))
	}
}

func TestCSRFMutationWithoutTokenRejected(t *testing.T) {
	router := newCSRFRouter()

	req := httptest.NewRequest(http.MethodPut, "/api/admin/quotes/1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["code"] != "CSRF_MISSING" {
		t.Errorf("code = %v, want CSRF_MISSING", body["code"])
	}
}

func TestCSRFMismatchRejected(t *testing.T) {
	router := newCSRFRouter()

	// First request obtains a cookie.
	first := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	cookie := csrfCookie(t, firstRec)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/quotes/1/status", nil)
	req.AddCookie(cookie)
	req.Header.Set("x-csrf-token", "0000000000000000000000000000000000000000000000000000000000000000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["code"] != "CSRF_INVALID" {
		t.Errorf("code = %v, want CSRF_INVALID", body["code"])
	}
}

func TestCSRFMatchingTokenPasses(t *testing.T) {
	router := newCSRFRouter()

	first := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	cookie := csrfCookie(t, firstRec)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/quotes/1/status", nil)
	req.AddCookie(cookie)
	req.Header.Set("x-csrf-token", cookie.Value)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCSRFExemptPaths(t *testing.T) {
	router := newCSRFRouter()

	for _, path := range []string{"/api/contact", "/api/auth/login"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("POST %s without token: status = %d, want 200", path, rec.Code)
		}
	}
}
