package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const fallbackDisplayName = "Player"

// Validator validates JWTs against the JWKS published at {baseURL}/.well-known/jwks.json.
// The JWKS client is created lazily on first use and reused afterwards.
type Validator struct {
	baseURL string

	once    sync.Once
	jwks    keyfunc.Keyfunc
	issuer  string
	initErr error
}

// NewValidator returns a Validator for baseURL. An empty baseURL yields a validator that rejects every token.
func NewValidator(baseURL string) *Validator {
	return &Validator{baseURL: strings.TrimRight(baseURL, "/")}
}

// Enabled reports whether an auth base URL is configured.
func (v *Validator) Enabled() bool {
	return v != nil && v.baseURL != ""
}

func (v *Validator) init() {
	u, err := url.Parse(v.baseURL)
	if err != nil {
		v.initErr = fmt.Errorf("invalid auth base URL: %w", err)
		return
	}
	v.issuer = u.Scheme + "://" + u.Host
	v.jwks, v.initErr = keyfunc.NewDefaultCtx(context.Background(), []string{v.baseURL + "/.well-known/jwks.json"})
}

// Validate parses tokenString, checks signature and issuer, and returns the claims.
func (v *Validator) Validate(tokenString string) (jwt.MapClaims, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("AUTH_BASE_URL is not set")
	}
	v.once.Do(v.init)
	if v.initErr != nil {
		return nil, v.initErr
	}

	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"EdDSA", "RS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// DisplayNameFromClaims returns the first word of the "name" claim, or a fallback.
func DisplayNameFromClaims(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return fallbackDisplayName
	}
	return parts[0]
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
