package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prebaalex/voicememos/internal/server/handlers"
	"github.com/prebaalex/voicememos/internal/server/jwt"
	"github.com/prebaalex/voicememos/internal/server/session"
	"github.com/prebaalex/voicememos/internal/server/storage/sqlite"
)

func setupAuthMiddleware(t *testing.T, ttl time.Duration) (*session.Authority, func(http.Handler) http.Handler) {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwt.NewService("test-secret", ttl)
	authority := session.NewAuthority(logger, store, store, tokens, bcrypt.MinCost)

	require.NoError(t, store.CreateCodes(ctx, []string{"CODE-1"}))
	_, err = authority.Register(ctx, "alex", "alex@example.com", "password123", "CODE-1")
	require.NoError(t, err)

	return authority, AuthMiddleware(logger, authority)
}

// echoPrincipal отвечает 200 и user id из контекста
func echoPrincipal(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(handlers.UserIDKey).(string)
		deviceID, _ := r.Context().Value(handlers.DeviceIDKey).(string)
		assert.NotEmpty(t, userID)
		assert.NotEmpty(t, deviceID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	authority, mw := setupAuthMiddleware(t, time.Hour)

	sess, err := authority.Login(context.Background(), "alex", "password123", "iphone")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	w := httptest.NewRecorder()
	mw(echoPrincipal(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	authority, mw := setupAuthMiddleware(t, time.Hour)

	sess, err := authority.Login(context.Background(), "alex", "password123", "iphone")
	require.NoError(t, err)

	notCalled := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer garbage"},
		{name: "tampered token", header: "Bearer " + sess.Token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mw(notCalled).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_TakeoverKillsOldToken(t *testing.T) {
	// Lazy invalidation на уровне HTTP: после force-logout и логина с
	// нового устройства запрос со старым токеном получает 401
	authority, mw := setupAuthMiddleware(t, time.Hour)
	ctx := context.Background()

	iphoneSess, err := authority.Login(ctx, "alex", "password123", "iphone")
	require.NoError(t, err)

	require.NoError(t, authority.Reclaim(ctx, "alex", "password123"))
	ipadSess, err := authority.Login(ctx, "alex", "password123", "ipad")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+iphoneSess.Token)
	w := httptest.NewRecorder()
	mw(ok).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+ipadSess.Token)
	w = httptest.NewRecorder()
	mw(ok).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	authority, mw := setupAuthMiddleware(t, -time.Minute)

	sess, err := authority.Login(context.Background(), "alex", "password123", "iphone")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	w := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	})).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
