package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "klimaatdesk"
	tokenAudience = "klimaatdesk-admin"

	// TokenLifetime is how long an issued session token stays valid.
	TokenLifetime = 8 * time.Hour
)

// Token verification failure kinds. Handlers map these onto 401 responses
// with messages that distinguish "expired" from everything else.
var (
	ErrTokenExpired   = errors.New("session token expired")
	ErrTokenMalformed = errors.New("session token malformed")
	ErrTokenInvalid   = errors.New("session token invalid")
	ErrTokenStale     = errors.New("session token version no longer accepted")
)

// Claims is the payload carried by a session token.
type Claims struct {
	Role    string `json:"role"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// AccountID returns the numeric identity stored in the subject claim.
func (c *Claims) AccountID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Codec creates and verifies signed session tokens. Verification is
// stateless: only the secret and the minimum accepted schema version are
// held server-side.
type Codec struct {
	secret     []byte
	minVersion int
	now        func() time.Time
}

// NewCodec returns a Codec signing with the given secret. Tokens whose
// version claim is below minVersion are rejected, which allows bulk
// invalidation of previously issued tokens without per-token storage.
func NewCodec(secret string, minVersion int) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Codec{
		secret:     []byte(secret),
		minVersion: minVersion,
		now:        time.Now,
	}, nil
}

// MinVersion returns the version embedded in newly issued tokens.
func (c *Codec) MinVersion() int {
	return c.minVersion
}

// Issue creates a signed token for the given account.
func (c *Codec) Issue(accountID int64, role string, version int) (string, error) {
	now := c.now()
	claims := &Claims{
		Role:    role,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience, expiry and schema version, and
// returns the embedded claims on success.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	// A missing version claim decodes as zero and is treated as stale.
	if claims.Version < c.minVersion {
		return nil, ErrTokenStale
	}
	return claims, nil
}
