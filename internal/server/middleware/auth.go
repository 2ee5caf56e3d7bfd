package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gosuda/parley/internal/identity"
)

// jwtClaims is the subset of the external identity provider's token we
// rely on. The provider issues tokens at login; this service only
// validates them — it never mints its own.
type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Auth validates a bearer JWT and injects the caller's identity and
// derived actor key into the request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				ctx, ok := authenticateJWT(r.Context(), tok, jwtSecret)
				if ok {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, bool) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return ctx, false
	}

	// Prefer the email claim; fall back to the subject.
	rawIdentity := claims.Email
	if rawIdentity == "" {
		rawIdentity = claims.Subject
	}
	if rawIdentity == "" {
		return ctx, false
	}

	ctx = context.WithValue(ctx, ContextKeyIdentity, rawIdentity)
	ctx = context.WithValue(ctx, ContextKeyActorKey, identity.Normalize(rawIdentity))
	return ctx, true
}
