package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/klimaatdesk/internal/config"
	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Manager bundles the login and password handlers with the session
// middleware. It owns the token codec and the credential store boundary.
type Manager struct {
	cfg       *config.Config
	store     CredentialStore
	codec     *Codec
	dummyHash []byte
}

// NewManager creates the auth manager. The dummy hash is precomputed once so
// a login against a non-existent account still pays a bcrypt comparison of
// comparable cost, keeping account enumeration out of the timing signal. It
// uses the configured cost, the same one stored hashes are rehashed at.
func NewManager(cfg *config.Config, store CredentialStore, codec *Codec) (*Manager, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("klimaatdesk-dummy-password"), cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		dummyHash: dummy,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Vul een e-mailadres en wachtwoord in.",
		})
		return
	}

	ctx := c.Request.Context()
	acc, err := m.store.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		internalError(c)
		return
	}

	// The hash comparison runs whether or not the account exists, and the
	// response is identical for "unknown email" and "wrong password".
	hash := m.dummyHash
	if acc != nil {
		hash = []byte(acc.PasswordHash)
	}
	if compareErr := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); compareErr != nil || acc == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "E-mailadres of wachtwoord is onjuist.",
		})
		return
	}

	// Checked only after a successful password match; see DESIGN.md on the
	// existence leak this ordering accepts.
	if !acc.Active {
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "ACCOUNT_INACTIVE",
			"message": "Dit account is gedeactiveerd.",
		})
		return
	}

	if err := m.store.TouchLastLogin(ctx, acc.ID); err != nil {
		logging.Warn().Err(err).Int64("account_id", acc.ID).Msg("failed to update last login")
	}

	token, err := m.codec.Issue(acc.ID, acc.Role, m.codec.MinVersion())
	if err != nil {
		logging.Error().Err(err).Msg("token issuance failed")
		internalError(c)
		return
	}

	m.setAuthCookie(c, token, int(TokenLifetime.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  acc.Projection(),
	})
}

// Logout handles POST /api/auth/logout. It clears the cookie copy of the
// token; an issued bearer token stays valid until its own expiry.
func (m *Manager) Logout(c *gin.Context) {
	m.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Uitgelogd."})
}

// Me handles GET /api/auth/me. The projection is re-read from the credential
// store, never served from token claims alone.
func (m *Manager) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		unauthenticated(c)
		return
	}

	acc, err := m.store.GetByID(c.Request.Context(), claims.AccountID())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			unauthenticated(c)
			return
		}
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": acc.Projection()})
}

// Refresh handles POST /api/auth/refresh. A new token is issued only when
// the identity still resolves against the store.
func (m *Manager) Refresh(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		unauthenticated(c)
		return
	}

	acc, err := m.store.GetByID(c.Request.Context(), claims.AccountID())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			unauthenticated(c)
			return
		}
		internalError(c)
		return
	}

	token, err := m.codec.Issue(acc.ID, acc.Role, m.codec.MinVersion())
	if err != nil {
		logging.Error().Err(err).Msg("token issuance failed")
		internalError(c)
		return
	}

	m.setAuthCookie(c, token, int(TokenLifetime.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  acc.Projection(),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePassword handles PUT /api/auth/password. On success the session
// cookie is cleared so the browser has to re-authenticate; a bearer token
// held elsewhere stays valid until expiry.
func (m *Manager) ChangePassword(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		unauthenticated(c)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Vul het huidige en het nieuwe wachtwoord in.",
		})
		return
	}

	ctx := c.Request.Context()
	acc, err := m.store.GetByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			unauthenticated(c)
			return
		}
		internalError(c)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.CurrentPassword)) != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "CURRENT_PASSWORD_INCORRECT",
			"message": "Het huidige wachtwoord is onjuist.",
		})
		return
	}

	if req.NewPassword == req.CurrentPassword {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "PASSWORD_REUSED",
			"message": "Het nieuwe wachtwoord moet verschillen van het huidige wachtwoord.",
		})
		return
	}

	if violations := ValidatePasswordStrength(req.NewPassword); len(violations) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "WEAK_PASSWORD",
			"message": "Het nieuwe wachtwoord voldoet niet aan de eisen.",
			"rules":   violations,
		})
		return
	}

	// Rehash at a higher cost than account provisioning used.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), m.cfg.BcryptCost)
	if err != nil {
		internalError(c)
		return
	}
	if err := m.store.UpdatePassword(ctx, acc.ID, string(hash)); err != nil {
		internalError(c)
		return
	}

	logging.Info().Int64("account_id", acc.ID).Msg("password changed")
	m.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Wachtwoord gewijzigd. Log opnieuw in."})
}

func (m *Manager) setAuthCookie(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.cfg.CookieSecure(),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func unauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    "INVALID_TOKEN",
		"message": "Authenticatie mislukt.",
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Er is een interne fout opgetreden.",
	})
}
