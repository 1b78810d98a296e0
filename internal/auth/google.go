package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Identity is the subset of Google ID-token claims the service trusts
// after the token has been verified.
type Identity struct {
	Subject string
	Email   string
}

// GoogleVerifier validates a Google-issued ID token and extracts the
// caller's identity.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

type googleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWKSVerifier verifies ID tokens against Google's published signing keys.
// The key set refreshes itself in the background.
type JWKSVerifier struct {
	clientID string
	keys     keyfunc.Keyfunc
}

// NewGoogleVerifier fetches Google's JWKS and returns a verifier that
// accepts only tokens issued to the given OAuth client ID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*JWKSVerifier, error) {
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{googleJWKSURL})
	if err != nil {
		return nil, fmt.Errorf("fetch google jwks: %w", err)
	}
	return &JWKSVerifier{clientID: clientID, keys: keys}, nil
}

// Verify checks the credential's signature, issuer, audience and expiry
// before trusting any of its claims.
func (v *JWKSVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(credential, &googleClaims{}, v.keys.Keyfunc,
		jwt.WithAudience(v.clientID),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*googleClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	// Google publishes both issuer forms.
	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
