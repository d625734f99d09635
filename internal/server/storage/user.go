package storage

import (
	"context"

	"github.com/prebaalex/voicememos/internal/models"
)

// UserStorage defines interface for user data persistence.
//
// active_device is the single-session marker: it holds either "" (no
// session) or exactly one device id. It is mutated only through
// CompareAndSetActiveDevice / SetActiveDevice / ResetCredentials so that
// the atomicity requirement lives in the storage layer, not in process
// memory.
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username or email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByLogin retrieves user by username or email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// CompareAndSetActiveDevice atomically replaces active_device with next
	// only if the stored value still equals expected.
	// Returns ErrDeviceCASConflict if the stored value differs,
	// ErrUserNotFound if the user doesn't exist.
	CompareAndSetActiveDevice(ctx context.Context, userID, expected, next string) error

	// SetActiveDevice unconditionally replaces active_device.
	// Returns ErrUserNotFound if the user doesn't exist.
	SetActiveDevice(ctx context.Context, userID, device string) error

	// ResetCredentials updates the password hash and clears active_device
	// in a single statement, forcing re-authentication on every device.
	// Returns ErrUserNotFound if the user doesn't exist.
	ResetCredentials(ctx context.Context, userID, passwordHash string) error
}
