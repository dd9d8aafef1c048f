package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "x-csrf-token"

	csrfTokenBytes = 32
	csrfTokenTTL   = 8 * time.Hour
)

// csrfExemptPaths are public submission endpoints that skip the double-submit
// check. They are protected by rate limiting instead; a browser posting to
// them has no session to forge.
var csrfExemptPaths = map[string]struct{}{
	"/api/contact":        {},
	"/api/quotes":         {},
	"/api/reviews/submit": {},
	"/api/auth/login":     {},
}

// CSRFGuard enforces the double-submit cookie pattern: a random token lives
// in a cookie readable by client script and must be echoed in the
// x-csrf-token header on every state-changing request. The guard is
// independent of authentication; it proves same-origin intent, not identity.
type CSRFGuard struct {
	secureCookies bool
}

// NewCSRFGuard creates a guard. secureCookies should be true in release mode.
func NewCSRFGuard(secureCookies bool) *CSRFGuard {
	return &CSRFGuard{secureCookies: secureCookies}
}

// Middleware returns the gin middleware implementing the guard.
func (g *CSRFGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.ensureCookie(c)

		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if _, exempt := csrfExemptPaths[c.Request.URL.Path]; exempt {
			c.Next()
			return
		}

		cookieValue, err := c.Cookie(csrfCookieName)
		headerValue := c.GetHeader(csrfHeaderName)
		if err != nil || cookieValue == "" || headerValue == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_MISSING",
				"message": "CSRF-token ontbreekt.",
			})
			return
		}

		// ConstantTimeCompare rejects differing lengths up front; the byte
		// comparison itself never short-circuits on a mismatch position.
		if subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_INVALID",
				"message": "CSRF-token is ongeldig.",
			})
			return
		}

		c.Next()
	}
}

// ensureCookie sets the CSRF cookie when the request does not carry one.
func (g *CSRFGuard) ensureCookie(c *gin.Context) {
	if v, err := c.Cookie(csrfCookieName); err == nil && v != "" {
		return
	}

	token, err := generateCSRFToken()
	if err != nil {
		logging.Error().Err(err).Msg("csrf: token generation failed")
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfTokenTTL.Seconds()),
		Secure:   g.secureCookies,
		HttpOnly: false, // client script must read and echo it
		SameSite: http.SameSiteStrictMode,
	})
}

func generateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
