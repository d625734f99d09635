package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebaalex/voicememos/internal/models"
	"github.com/prebaalex/voicememos/internal/server/storage"
)

// setupTestStorage creates an in-memory SQLite storage for testing
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	ctx := context.Background()
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		require.NoError(t, s.Close())
	}

	return s, cleanup
}

// createTestUser inserts a user and returns it
func createTestUser(t *testing.T, s *Storage, username, email string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$testhash",
		ActiveDevice: "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestStorage_CreateUser(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "alex", "alex@example.com")

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alex", got.Username)
	assert.Equal(t, "alex@example.com", got.Email)
	assert.Equal(t, "", got.ActiveDevice)
	assert.False(t, got.LoggedIn())
}

func TestStorage_CreateUser_Duplicates(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	createTestUser(t, s, "alex", "alex@example.com")

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{name: "duplicate username", username: "alex", email: "other@example.com"},
		{name: "duplicate email", username: "other", email: "alex@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			err := s.CreateUser(ctx, &models.User{
				ID:           uuid.New().String(),
				Username:     tt.username,
				Email:        tt.email,
				PasswordHash: "$2a$04$testhash",
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
		})
	}
}

func TestStorage_GetUserByLogin(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "alex", "alex@example.com")

	tests := []struct {
		name    string
		login   string
		wantErr error
	}{
		{name: "by username", login: "alex"},
		{name: "by email", login: "alex@example.com"},
		{name: "unknown login", login: "nobody", wantErr: storage.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetUserByLogin(ctx, tt.login)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}

func TestStorage_GetUserByID_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_CompareAndSetActiveDevice(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "alex", "alex@example.com")

	// Пустой слот: CAS("" -> iphone) выигрывает
	require.NoError(t, s.CompareAndSetActiveDevice(ctx, user.ID, "", "iphone"))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "iphone", got.ActiveDevice)
	assert.True(t, got.LoggedIn())

	// Устаревшее ожидание проигрывает, состояние не меняется
	err = s.CompareAndSetActiveDevice(ctx, user.ID, "", "ipad")
	assert.ErrorIs(t, err, storage.ErrDeviceCASConflict)

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "iphone", got.ActiveDevice)

	// Совпадающее ожидание выигрывает: iphone -> ""
	require.NoError(t, s.CompareAndSetActiveDevice(ctx, user.ID, "iphone", ""))

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.ActiveDevice)
}

func TestStorage_CompareAndSetActiveDevice_UserNotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// Отсутствующий пользователь отличим от проигранного CAS
	err := s.CompareAndSetActiveDevice(context.Background(), uuid.New().String(), "", "iphone")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_SetActiveDevice(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "alex", "alex@example.com")
	require.NoError(t, s.CompareAndSetActiveDevice(ctx, user.ID, "", "iphone"))

	// Безусловная перезапись независимо от текущего устройства
	require.NoError(t, s.SetActiveDevice(ctx, user.ID, ""))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.ActiveDevice)

	assert.ErrorIs(t, s.SetActiveDevice(ctx, uuid.New().String(), ""), storage.ErrUserNotFound)
}

func TestStorage_ResetCredentials(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, s, "alex", "alex@example.com")
	require.NoError(t, s.SetActiveDevice(ctx, user.ID, "iphone"))

	require.NoError(t, s.ResetCredentials(ctx, user.ID, "$2a$04$newhash"))

	// Хеш обновлен и сессия снята одной операцией
	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$newhash", got.PasswordHash)
	assert.Equal(t, "", got.ActiveDevice)

	assert.ErrorIs(t, s.ResetCredentials(ctx, uuid.New().String(), "x"), storage.ErrUserNotFound)
}
