// Package auth verifies the HS256 tokens that carry the admin capability.
// Tokens are minted elsewhere (the identity service or cmd/admintoken).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient privileges")
)

// Claims represents the JWT claims of an authenticated user
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies user tokens
type Authenticator struct {
	secret    []byte
	adminRole string
}

// New creates an authenticator. An empty secret rejects every token.
func New(secret, adminRole string) *Authenticator {
	return &Authenticator{secret: []byte(secret), adminRole: adminRole}
}

// Verify parses a token and validates its signature and expiry
func (a *Authenticator) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireAdmin verifies a token and checks it carries the admin role
func (a *Authenticator) RequireAdmin(tokenStr string) (*Claims, error) {
	claims, err := a.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Role != a.adminRole {
		return claims, ErrForbidden
	}
	return claims, nil
}

// Issue signs claims valid for ttl from now
func (a *Authenticator) Issue(claims Claims, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("signing secret not configured")
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// AdminRole returns the role required by RequireAdmin
func (a *Authenticator) AdminRole() string {
	return a.adminRole
}
