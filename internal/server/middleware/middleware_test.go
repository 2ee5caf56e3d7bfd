package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/parley/internal/server/middleware"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// signToken mints a token the way the external identity provider would.
func signToken(t *testing.T, secret, subject, email string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	t.Parallel()

	nextHandler := func(captured *context.Context) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*captured = r.Context()
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("valid token injects identity and actor key", func(t *testing.T) {
		t.Parallel()

		var gotCtx context.Context
		handler := middleware.Auth(testSecret)(nextHandler(&gotCtx))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u-123", "Alice@Example.com", time.Minute))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		rawIdentity, ok := middleware.IdentityFromContext(gotCtx)
		require.True(t, ok)
		assert.Equal(t, "Alice@Example.com", rawIdentity)

		actorKey, ok := middleware.ActorKeyFromContext(gotCtx)
		require.True(t, ok)
		assert.Equal(t, "alice_example_com", actorKey)
	})

	t.Run("subject used when email claim absent", func(t *testing.T) {
		t.Parallel()

		var gotCtx context.Context
		handler := middleware.Auth(testSecret)(nextHandler(&gotCtx))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u-123", "", time.Minute))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		rawIdentity, ok := middleware.IdentityFromContext(gotCtx)
		require.True(t, ok)
		assert.Equal(t, "u-123", rawIdentity)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		t.Parallel()

		handler := middleware.Auth(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		handler := middleware.Auth(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "another-secret-another-secret-32", "u-123", "a@b.c", time.Minute))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		t.Parallel()

		handler := middleware.Auth(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u-123", "a@b.c", -time.Minute))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without identity rejected", func(t *testing.T) {
		t.Parallel()

		handler := middleware.Auth(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "", "", time.Minute))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	actorRequest := func(actorKey string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		ctx := context.WithValue(req.Context(), middleware.ContextKeyActorKey, actorKey)
		return req.WithContext(ctx)
	}

	t.Run("requests within burst pass", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		handler := middleware.RateLimit(ctx, 1, 3)(okHandler)

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, actorRequest("alice"))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("burst exceeded returns 429", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		handler := middleware.RateLimit(ctx, 0.001, 2)(okHandler)

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, actorRequest("bob"))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, actorRequest("bob"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("actors are limited independently", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		handler := middleware.RateLimit(ctx, 0.001, 1)(okHandler)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, actorRequest("carol"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, actorRequest("carol"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, actorRequest("dave"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
