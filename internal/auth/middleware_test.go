package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newGateRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ok := func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"accountId": claims.AccountID()})
	}
	router.GET("/staff", m.RequireAuth(), ok)
	router.GET("/admin", m.RequireAuth(), m.RequireRole(RoleAdmin), ok)
	router.GET("/active", m.RequireAuth(), m.VerifyActiveUser(), ok)
	return router
}

func TestRequireAuthBearerBeatsCookie(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	bearerToken, err := m.codec.Issue(1, RoleAdmin, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	cookieToken, err := m.codec.Issue(2, RoleModerator, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: cookieToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"accountId":1}` {
		t.Errorf("body = %s, want the bearer identity", body)
	}
}

func TestRequireAuthCookieFallback(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	token, err := m.codec.Issue(2, RoleModerator, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireAuthMalformedToken(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer kapot")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if decodeBody(t, rec)["code"] != "MALFORMED_TOKEN" {
		t.Errorf("code = %v, want MALFORMED_TOKEN", decodeBody(t, rec)["code"])
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	issued := time.Now()
	m.codec.now = func() time.Time { return issued }
	token, err := m.codec.Issue(1, RoleAdmin, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	m.codec.now = func() time.Time { return issued.Add(TokenLifetime + time.Minute) }

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	// An expired session must be distinguishable from a tampered one so the
	// client can prompt a re-login.
	body := decodeBody(t, rec)
	if body["code"] != "EXPIRED_TOKEN" {
		t.Errorf("code = %v, want EXPIRED_TOKEN", body["code"])
	}
}

func TestRequireRoleRejectsModerator(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	token, err := m.codec.Issue(2, RoleModerator, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if decodeBody(t, rec)["code"] != "INSUFFICIENT_ROLE" {
		t.Errorf("code = %v, want INSUFFICIENT_ROLE", decodeBody(t, rec)["code"])
	}
}

func TestVerifyActiveUserRejectsDeactivated(t *testing.T) {
	m := newTestManager(t, testAccounts(t))
	router := newGateRouter(m)

	// Account 2 is deactivated but still holds a valid token.
	token, err := m.codec.Issue(2, RoleModerator, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/active", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if decodeBody(t, rec)["code"] != "ACCOUNT_INACTIVE" {
		t.Errorf("code = %v, want ACCOUNT_INACTIVE", decodeBody(t, rec)["code"])
	}
}
