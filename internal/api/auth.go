package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"walkumentary/pkg/config"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id from the request context.
func UserID(r *http.Request) string {
	if v, ok := r.Context().Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware authenticates requests with an HS256 bearer token.
// Without a configured secret the server runs in demo mode and every
// request acts as the demo user.
type AuthMiddleware struct {
	secret   []byte
	demoUser string
}

// NewAuthMiddleware creates the middleware from config.
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	demo := cfg.DemoUser
	if demo == "" {
		demo = "demo"
	}
	var secret []byte
	if cfg.JWTSecret != "" {
		secret = []byte(cfg.JWTSecret)
	}
	return &AuthMiddleware{secret: secret, demoUser: demo}
}

// Wrap injects the user id into the request context, rejecting
// requests that fail token verification.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, m.demoUser)))
			return
		}

		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		sub, err := m.verify(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
	})
}

func (m *AuthMiddleware) verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
