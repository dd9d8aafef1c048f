package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// ContextClaimsKey is where the session resolver stores verified claims on
// the gin context.
const ContextClaimsKey = "auth.claims"

const authCookieName = "auth_token"

// ClaimsFrom returns the verified claims attached by RequireAuth.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// RequireAuth is the session resolver. It extracts a token from the
// Authorization header (taking priority) or the auth cookie, verifies it and
// attaches the claims to the request context. Claims are trusted as-is: the
// credential store is not consulted here. Use VerifyActiveUser for
// operations that need the store-verified capability level.
func (m *Manager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_CREDENTIALS",
				"message": "Authenticatie vereist.",
			})
			return
		}

		claims, err := m.codec.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody(err))
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// RequireRole authorizes an already-resolved identity for a role-restricted
// operation. It must run after RequireAuth. The role embedded in the token
// is trusted; see VerifyActiveUser for the store-verified variant.
func (m *Manager) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_CREDENTIALS",
				"message": "Authenticatie vereist.",
			})
			return
		}
		if claims.Role != role {
			logging.Warn().
				Int64("account_id", claims.AccountID()).
				Str("role", claims.Role).
				Str("required_role", role).
				Str("path", c.Request.URL.Path).
				Msg("role gate rejected request")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "INSUFFICIENT_ROLE",
				"message": "Je hebt geen rechten voor deze actie.",
			})
			return
		}
		c.Next()
	}
}

// VerifyActiveUser re-checks the credential store's active flag for the
// resolved identity. It is an optional second gate for sensitive operations;
// the default path trusts token claims and skips this round trip.
func (m *Manager) VerifyActiveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_CREDENTIALS",
				"message": "Authenticatie vereist.",
			})
			return
		}

		acc, err := m.store.GetByID(c.Request.Context(), claims.AccountID())
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Authenticatie mislukt.",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Er is een interne fout opgetreden.",
			})
			return
		}
		if !acc.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "ACCOUNT_INACTIVE",
				"message": "Dit account is gedeactiveerd.",
			})
			return
		}
		c.Next()
	}
}

// extractToken returns the session token from the request. A Bearer header
// takes priority over the cookie.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}
	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}

// unauthorizedBody maps a verification failure onto the caller-facing 401
// body. Only "expired" is distinguishable, so the client knows to prompt a
// re-login rather than treat the session as tampered with.
func unauthorizedBody(err error) gin.H {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return gin.H{
			"code":    "EXPIRED_TOKEN",
			"message": "Sessie verlopen, log opnieuw in.",
		}
	case errors.Is(err, ErrTokenMalformed):
		return gin.H{
			"code":    "MALFORMED_TOKEN",
			"message": "Ongeldige sessie.",
		}
	case errors.Is(err, ErrTokenStale):
		return gin.H{
			"code":    "STALE_TOKEN",
			"message": "Sessie verlopen, log opnieuw in.",
		}
	default:
		return gin.H{
			"code":    "INVALID_TOKEN",
			"message": "Authenticatie mislukt.",
		}
	}
}
