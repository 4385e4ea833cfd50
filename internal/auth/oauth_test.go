package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer = "https://accounts.example.com"
	testSecret = "test-oauth-shared-secret-32-chars!!"
)

// signTestToken builds an HS256 identity token for verifier tests.
func signTestToken(t *testing.T, secret string, claims externalClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func validClaims() externalClaims {
	now := time.Now().UTC()
	return externalClaims{
		Email:         "user@example.com",
		EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	v := NewJWTVerifier(testIssuer, testSecret)
	token := signTestToken(t, testSecret, validClaims())

	email, err := v.VerifyExternalToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyExternalToken() error = %v", err)
	}
	if email != "user@example.com" {
		t.Errorf("email = %q, want %q", email, "user@example.com")
	}
}

func TestJWTVerifier_NormalisesEmail(t *testing.T) {
	v := NewJWTVerifier(testIssuer, testSecret)
	claims := validClaims()
	claims.Email = "  User@Example.COM "
	token := signTestToken(t, testSecret, claims)

	email, err := v.VerifyExternalToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyExternalToken() error = %v", err)
	}
	if email != "user@example.com" {
		t.Errorf("email = %q, want lowercased trimmed form", email)
	}
}

func TestJWTVerifier_Rejections(t *testing.T) {
	v := NewJWTVerifier(testIssuer, testSecret)
	ctx := context.Background()

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "garbage token",
			token: func(t *testing.T) string {
				return "not.a.jwt"
			},
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signTestToken(t, "some-other-secret-that-is-32-chars!", validClaims())
			},
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims.Issuer = "https://evil.example.com"
				return signTestToken(t, testSecret, claims)
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().UTC().Add(-time.Hour))
				return signTestToken(t, testSecret, claims)
			},
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims.ExpiresAt = nil
				return signTestToken(t, testSecret, claims)
			},
		},
		{
			name: "missing email",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims.Email = ""
				return signTestToken(t, testSecret, claims)
			},
		},
		{
			name: "email not verified",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims.EmailVerified = false
				return signTestToken(t, testSecret, claims)
			},
		},
		{
			name: "unsigned token",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
				signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				if err != nil {
					t.Fatalf("signing none token: %v", err)
				}
				return signed
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyExternalToken(ctx, tt.token(t))
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
