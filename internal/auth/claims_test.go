package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	raw, err := IssueToken("secret", "tenant-1", "ops@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := ParseToken("secret", raw)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.TenantID() != "tenant-1" {
		t.Errorf("Expected tenant-1, got %q", claims.TenantID())
	}
	if claims.UserID() != "ops@example.com" || claims.Role() != "admin" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	wrongSecret, _ := IssueToken("other", "tenant-1", "u", "", time.Hour)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		Tenant:           "tenant-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString([]byte("secret"))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{Tenant: "tenant-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noTenant, _ := IssueToken("secret", "", "u", "", time.Hour)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"wrong secret", wrongSecret, ErrInvalidToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"unsigned", none, ErrInvalidToken},
		{"missing tenant", noTenant, ErrMissingTenant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken("secret", tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTenantIDFromContext(t *testing.T) {
	if got := TenantID(context.Background()); got != "" {
		t.Errorf("Expected empty tenant, got %q", got)
	}
	ctx := SetUserClaims(context.Background(), &JWTClaims{Tenant: "tenant-9"})
	if got := TenantID(ctx); got != "tenant-9" {
		t.Errorf("Expected tenant-9, got %q", got)
	}
}
