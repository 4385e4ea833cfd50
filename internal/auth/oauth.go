package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// externalClaims is the claim set expected from the identity provider.
type externalClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies identity tokens signed by a trusted external
// provider with a shared HS256 secret. Issuer and expiry are enforced;
// the email claim must be present and marked verified.
type JWTVerifier struct {
	issuer string
	secret []byte
}

// NewJWTVerifier creates a verifier for the given issuer and shared secret.
func NewJWTVerifier(issuer, secret string) *JWTVerifier {
	return &JWTVerifier{issuer: issuer, secret: []byte(secret)}
}

// VerifyExternalToken parses and verifies a provider token, returning
// the verified email address. Any failure, from bad signature to a
// missing claim, collapses to ErrInvalidToken; callers never learn why
// a token was rejected.
func (v *JWTVerifier) VerifyExternalToken(_ context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &externalClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*externalClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if email == "" || !claims.EmailVerified {
		return "", ErrInvalidToken
	}

	return email, nil
}
