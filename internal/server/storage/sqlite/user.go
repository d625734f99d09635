package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prebaalex/voicememos/internal/models"
	"github.com/prebaalex/voicememos/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, active_device, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ActiveDevice,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Проверяем на duplicate username/email
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, active_device, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByLogin retrieves user by username or email
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, active_device, created_at, updated_at
		FROM users
		WHERE username = ? OR email = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, login, login))
}

// scanUser reads one user row
func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ActiveDevice,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CompareAndSetActiveDevice atomically replaces active_device only if the
// stored value still equals expected. The WHERE clause carries the
// comparison, so the read-compare-write is a single row update and two
// concurrent logins can never both win.
func (s *Storage) CompareAndSetActiveDevice(ctx context.Context, userID, expected, next string) error {
	query := `
		UPDATE users
		SET active_device = ?, updated_at = ?
		WHERE id = ? AND active_device = ?
	`

	result, err := s.db.ExecContext(ctx, query, next, time.Now(), userID, expected)
	if err != nil {
		return fmt.Errorf("failed to update active device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Ноль строк: либо пользователя нет, либо active_device уже изменился
		if _, err := s.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return storage.ErrDeviceCASConflict
	}

	return nil
}

// SetActiveDevice unconditionally replaces active_device
func (s *Storage) SetActiveDevice(ctx context.Context, userID, device string) error {
	query := `UPDATE users SET active_device = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, device, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set active device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// ResetCredentials updates the password hash and clears active_device in
// one statement, so a reset can never leave a stale session behind
func (s *Storage) ResetCredentials(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = ?, active_device = '', updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to reset credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}
