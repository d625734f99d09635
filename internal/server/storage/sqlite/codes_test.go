package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebaalex/voicememos/internal/server/storage"
)

func TestStorage_CreateCodes(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateCodes(ctx, []string{"CODE-1", "CODE-2", "CODE-3"}))

	code, err := s.GetCode(ctx, "CODE-2")
	require.NoError(t, err)
	assert.Equal(t, "CODE-2", code.Code)
	assert.False(t, code.Used)
	assert.False(t, code.UsedForPassReset)
	assert.Nil(t, code.UsedAt)
	assert.Nil(t, code.PassResetAt)

	// Пустой батч — no-op
	require.NoError(t, s.CreateCodes(ctx, nil))
}

func TestStorage_GetCode_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, storage.ErrCodeNotFound)
}

func TestStorage_MarkCodeUsed(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateCodes(ctx, []string{"CODE-1"}))

	require.NoError(t, s.MarkCodeUsed(ctx, "CODE-1", "user-1"))

	code, err := s.GetCode(ctx, "CODE-1")
	require.NoError(t, err)
	assert.True(t, code.Used)
	assert.Equal(t, "user-1", code.UsedBy)
	require.NotNil(t, code.UsedAt)

	// Повторная отметка проигрывает: WHERE used = 0 не совпал
	err = s.MarkCodeUsed(ctx, "CODE-1", "user-2")
	assert.ErrorIs(t, err, storage.ErrCodeAlreadyUsed)

	// Победитель не перезаписан
	code, err = s.GetCode(ctx, "CODE-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", code.UsedBy)

	assert.ErrorIs(t, s.MarkCodeUsed(ctx, "NOPE", "user-1"), storage.ErrCodeNotFound)
}

func TestStorage_MarkCodeUsedForReset(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateCodes(ctx, []string{"CODE-1"}))

	// Отметки регистрации и сброса пароля независимы
	require.NoError(t, s.MarkCodeUsed(ctx, "CODE-1", "user-1"))
	require.NoError(t, s.MarkCodeUsedForReset(ctx, "CODE-1", "user-1"))

	code, err := s.GetCode(ctx, "CODE-1")
	require.NoError(t, err)
	assert.True(t, code.Used)
	assert.True(t, code.UsedForPassReset)
	assert.Equal(t, "user-1", code.PassResetBy)
	require.NotNil(t, code.PassResetAt)

	err = s.MarkCodeUsedForReset(ctx, "CODE-1", "user-2")
	assert.ErrorIs(t, err, storage.ErrCodeAlreadyUsed)

	assert.ErrorIs(t, s.MarkCodeUsedForReset(ctx, "NOPE", "user-1"), storage.ErrCodeNotFound)
}

func TestStorage_ListUnusedCodes(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	codes, err := s.ListUnusedCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, s.CreateCodes(ctx, []string{"CODE-1", "CODE-2", "CODE-3"}))
	require.NoError(t, s.MarkCodeUsed(ctx, "CODE-2", "user-1"))

	codes, err = s.ListUnusedCodes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CODE-1", "CODE-3"}, codes)
}
