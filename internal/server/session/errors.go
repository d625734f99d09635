package session

import "errors"

// Session authority error taxonomy. Every failed transition leaves
// account state unchanged and reports exactly one of these kinds.
var (
	// ErrInvalidCredentials indicates a bad login/password pair. Never
	// retried automatically.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDeviceConflict indicates another device currently owns the
	// single session slot for the account.
	ErrDeviceConflict = errors.New("already logged in from another device")

	// ErrUnauthenticated covers missing, malformed, expired and
	// device-mismatched tokens. The causes are collapsed into one
	// externally visible kind; the specific reason is only logged.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound indicates an unknown account.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists indicates the username or email is taken.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrInvalidActivationCode indicates an unknown activation code.
	ErrInvalidActivationCode = errors.New("invalid activation code")

	// ErrActivationCodeUsed indicates the activation code was already consumed.
	ErrActivationCodeUsed = errors.New("activation code already used")

	// ErrTransient indicates a store failure (unavailable, timeout).
	// Safe for the caller to retry with backoff.
	ErrTransient = errors.New("transient storage error")
)
