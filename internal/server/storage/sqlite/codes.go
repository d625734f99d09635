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

// CreateCodes inserts a batch of fresh unused activation codes
func (s *Storage) CreateCodes(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback после commit — no-op

	query := `INSERT INTO activation_codes (code, created_at) VALUES (?, ?)`
	now := time.Now()

	for _, code := range codes {
		if _, err := tx.ExecContext(ctx, query, code, now); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return storage.ErrCodeAlreadyUsed
			}
			return fmt.Errorf("failed to insert code: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit codes: %w", err)
	}

	return nil
}

// GetCode retrieves an activation code
func (s *Storage) GetCode(ctx context.Context, code string) (*models.ActivationCode, error) {
	query := `
		SELECT code, used, used_by, used_at, used_for_pw_reset, pw_reset_by, pw_reset_at, created_at
		FROM activation_codes
		WHERE code = ?
	`

	ac := &models.ActivationCode{}
	var usedAt, resetAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&ac.Code,
		&ac.Used,
		&ac.UsedBy,
		&usedAt,
		&ac.UsedForPassReset,
		&ac.PassResetBy,
		&resetAt,
		&ac.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get code: %w", err)
	}

	if usedAt.Valid {
		ac.UsedAt = &usedAt.Time
	}
	if resetAt.Valid {
		ac.PassResetAt = &resetAt.Time
	}

	return ac, nil
}

// MarkCodeUsed marks the code as consumed by a registration.
// The WHERE used = 0 guard makes the mark atomic: of two concurrent
// registrations with the same code exactly one succeeds.
func (s *Storage) MarkCodeUsed(ctx context.Context, code, userID string) error {
	query := `
		UPDATE activation_codes
		SET used = 1, used_by = ?, used_at = ?
		WHERE code = ? AND used = 0
	`

	return s.markCode(ctx, query, code, userID)
}

// MarkCodeUsedForReset marks the code as consumed by a password reset
func (s *Storage) MarkCodeUsedForReset(ctx context.Context, code, userID string) error {
	query := `
		UPDATE activation_codes
		SET used_for_pw_reset = 1, pw_reset_by = ?, pw_reset_at = ?
		WHERE code = ? AND used_for_pw_reset = 0
	`

	return s.markCode(ctx, query, code, userID)
}

// markCode выполняет условное проставление отметки на коде
func (s *Storage) markCode(ctx context.Context, query, code, userID string) error {
	result, err := s.db.ExecContext(ctx, query, userID, time.Now(), code)
	if err != nil {
		return fmt.Errorf("failed to mark code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Либо кода нет, либо отметка уже стоит
		if _, err := s.GetCode(ctx, code); err != nil {
			return err
		}
		return storage.ErrCodeAlreadyUsed
	}

	return nil
}

// ListUnusedCodes returns all codes not yet consumed by a registration
func (s *Storage) ListUnusedCodes(ctx context.Context) ([]string, error) {
	query := `SELECT code FROM activation_codes WHERE used = 0 ORDER BY created_at, code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate codes: %w", err)
	}

	return codes, nil
}
