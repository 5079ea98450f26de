package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is what handlers see of an authenticated caller
type UserClaims interface {
	UserID() string
	TenantID() string
	Role() string
	Source() string
}

// JWTClaims is the bearer token payload. Every API call is scoped to the
// tenant named in tenant_id.
type JWTClaims struct {
	Tenant    string `json:"tenant_id"`
	RoleValue string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) UserID() string   { return c.Subject }
func (c *JWTClaims) TenantID() string { return c.Tenant }
func (c *JWTClaims) Role() string     { return c.RoleValue }
func (c *JWTClaims) Source() string   { return "JWT" }

var (
	ErrMissingTenant = errors.New("token has no tenant_id claim")
	ErrInvalidToken  = errors.New("invalid token")
)

// ParseToken validates an HS256 token and returns its claims
func ParseToken(secret, raw string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Tenant) == "" {
		return nil, ErrMissingTenant
	}
	return claims, nil
}

// IssueToken signs a token for a tenant. ttl of zero issues a token without expiry.
func IssueToken(secret, tenantID, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Tenant:    tenantID,
		RoleValue: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
