package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username or email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrDeviceCASConflict indicates that a compare-and-set on active_device
	// lost to a concurrent writer: the stored value no longer matches the
	// expected one
	ErrDeviceCASConflict = errors.New("active device changed concurrently")

	// ErrCodeNotFound indicates that activation code was not found
	ErrCodeNotFound = errors.New("activation code not found")

	// ErrCodeAlreadyUsed indicates that activation code has already been consumed
	ErrCodeAlreadyUsed = errors.New("activation code already used")
)
