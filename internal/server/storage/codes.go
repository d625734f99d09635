package storage

import (
	"context"

	"github.com/prebaalex/voicememos/internal/models"
)

// CodeStorage defines interface for activation code persistence
type CodeStorage interface {
	// CreateCodes inserts a batch of fresh unused activation codes
	CreateCodes(ctx context.Context, codes []string) error

	// GetCode retrieves an activation code
	// Returns ErrCodeNotFound if the code doesn't exist
	GetCode(ctx context.Context, code string) (*models.ActivationCode, error)

	// MarkCodeUsed marks the code as consumed by a registration.
	// Conditional on the code being unused; returns ErrCodeAlreadyUsed
	// if it was consumed concurrently, ErrCodeNotFound if it doesn't exist.
	MarkCodeUsed(ctx context.Context, code, userID string) error

	// MarkCodeUsedForReset marks the code as consumed by a password reset.
	// Returns ErrCodeAlreadyUsed if it was already used for a reset,
	// ErrCodeNotFound if it doesn't exist.
	MarkCodeUsedForReset(ctx context.Context, code, userID string) error

	// ListUnusedCodes returns all codes not yet consumed by a registration
	ListUnusedCodes(ctx context.Context) ([]string, error)
}
