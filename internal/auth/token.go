package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/models"
)

const (
	// SessionCookie is the name of the HTTP-only session cookie.
	SessionCookie = "token"
	// SessionTTL bounds how long an issued session token is valid.
	SessionTTL = 7 * 24 * time.Hour
)

// Claims are the identity claims embedded in a session token. Protected
// routes read these directly instead of re-fetching the user record.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed session tokens and manages the
// session cookie they travel in.
type TokenManager struct {
	secret []byte
	secure bool
}

func NewTokenManager(secret string, secureCookies bool) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &TokenManager{secret: []byte(secret), secure: secureCookies}, nil
}

// Issue signs a session token carrying the user's identity claims.
func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify parses and validates a session token. Tampered, expired, and
// malformed tokens all fail uniformly with an AuthError.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, apierr.Auth("Invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, apierr.Auth("Invalid token")
	}
	return claims, nil
}

// SetSessionCookie attaches the session token to the response.
func (m *TokenManager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// ClearSessionCookie expires the session cookie.
func (m *TokenManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
		MaxAge:   -1,
	})
}

type ctxKey struct{}

// WithClaims returns a context carrying the verified identity claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFrom returns the identity claims stored by the auth middleware,
// or nil on unauthenticated requests.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ctxKey{}).(*Claims)
	return claims
}
