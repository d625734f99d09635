// Package session implements the device-bound session authority: an
// account has at most one active login device at a time, session tokens
// are bound to that device, and a token silently becomes unusable the
// instant active_device changes away from it (lazy invalidation, no
// revocation list).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prebaalex/voicememos/internal/models"
	"github.com/prebaalex/voicememos/internal/server/jwt"
	"github.com/prebaalex/voicememos/internal/server/storage"
)

// Session возвращается при успешном логине
type Session struct {
	UserID    string
	Username  string
	Token     string
	ExpiresIn int64 // секунды
}

// Principal — аутентифицированный пользователь, извлеченный из токена
// после проверки против текущего состояния аккаунта
type Principal struct {
	UserID   string
	Username string
	DeviceID string
}

// Authority is the single writer of active_device. Each operation is a
// short read-compare-write sequence against UserStorage; the
// compare-and-set primitive there is the sole synchronization point, so
// no in-process locks are needed and the service can run as multiple
// instances.
type Authority struct {
	logger     *slog.Logger
	users      storage.UserStorage
	codes      storage.CodeStorage
	tokens     *jwt.Service
	bcryptCost int
}

// NewAuthority создает session authority
func NewAuthority(logger *slog.Logger, users storage.UserStorage, codes storage.CodeStorage, tokens *jwt.Service, bcryptCost int) *Authority {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Authority{
		logger:     logger,
		users:      users,
		codes:      codes,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// Register creates the account with no active session. The activation
// code must exist and be unused; it is consumed atomically so the same
// code cannot provision two accounts.
func (a *Authority) Register(ctx context.Context, username, email, password, code string) (string, error) {
	ac, err := a.codes.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return "", ErrInvalidActivationCode
		}
		return "", fmt.Errorf("%w: get activation code: %v", ErrTransient, err)
	}
	if ac.Used {
		return "", ErrActivationCodeUsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ActiveDevice: "", // новый аккаунт всегда без активной сессии
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("%w: create user: %v", ErrTransient, err)
	}

	// Помечаем код использованным; при гонке двух регистраций с одним
	// кодом здесь проигравший получает ErrActivationCodeUsed
	if err := a.codes.MarkCodeUsed(ctx, code, user.ID); err != nil {
		if errors.Is(err, storage.ErrCodeAlreadyUsed) {
			a.logger.WarnContext(ctx, "activation code raced during registration",
				slog.String("user_id", user.ID))
			return "", ErrActivationCodeUsed
		}
		return "", fmt.Errorf("%w: mark activation code: %v", ErrTransient, err)
	}

	a.logger.InfoContext(ctx, "user registered",
		slog.String("username", username),
		slog.String("user_id", user.ID))

	return user.ID, nil
}

// Login verifies credentials, then claims the single session slot for
// deviceID. Re-login from the device already recorded as active is
// idempotent and issues a fresh token. A different active device fails
// with ErrDeviceConflict; takeover is reachable only through
// ForceLogout/ResetPassword.
func (a *Authority) Login(ctx context.Context, login, password, deviceID string) (*Session, error) {
	user, err := a.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Не раскрываем, существует ли аккаунт
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: get user: %v", ErrTransient, err)
	}

	// Проверка пароля до любых изменений состояния
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Read-decide-write с одним внутренним повтором на случай проигранного CAS
	const maxAttempts = 2
	current := user.ActiveDevice
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if current != "" && current != deviceID {
			a.logger.WarnContext(ctx, "login rejected: device conflict",
				slog.String("user_id", user.ID))
			return nil, ErrDeviceConflict
		}

		err := a.users.CompareAndSetActiveDevice(ctx, user.ID, current, deviceID)
		if err == nil {
			return a.issueSession(ctx, user, deviceID)
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		if !errors.Is(err, storage.ErrDeviceCASConflict) {
			return nil, fmt.Errorf("%w: claim session: %v", ErrTransient, err)
		}

		// CAS проиграл конкурентному логину: перечитываем и решаем заново
		a.logger.DebugContext(ctx, "login CAS lost, re-reading account state",
			slog.String("user_id", user.ID),
			slog.Int("attempt", attempt))

		fresh, err := a.users.GetUserByID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("%w: re-read user: %v", ErrTransient, err)
		}
		current = fresh.ActiveDevice
	}

	// Повторная контention — наружу уходит конфликт устройств
	return nil, ErrDeviceConflict
}

// issueSession выпускает токен для уже завоеванного session slot
func (a *Authority) issueSession(ctx context.Context, user *models.User, deviceID string) (*Session, error) {
	token, expiresIn, err := a.tokens.Issue(user.ID, user.Username, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.InfoContext(ctx, "user logged in",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	return &Session{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresIn: expiresIn,
	}, nil
}

// Logout clears the session only if the caller's device still owns it.
// Logging out a session that is no longer yours is harmless, so a device
// mismatch is a no-op success.
func (a *Authority) Logout(ctx context.Context, userID, deviceID string) error {
	err := a.users.CompareAndSetActiveDevice(ctx, userID, deviceID, "")
	switch {
	case err == nil:
		a.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
		return nil
	case errors.Is(err, storage.ErrDeviceCASConflict):
		// Сессия уже не принадлежит этому устройству
		a.logger.InfoContext(ctx, "logout no-op: device no longer owns session",
			slog.String("user_id", userID))
		return nil
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: clear session: %v", ErrTransient, err)
	}
}

// LogoutByToken is the transport-facing form of Logout. Only structural
// token validity is required (signature, expiry): a device whose session
// was taken over may still log itself out, and that logout is a no-op
// rather than Unauthenticated.
func (a *Authority) LogoutByToken(ctx context.Context, token string) error {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		a.logger.WarnContext(ctx, "logout token rejected", slog.Any("reason", err))
		return ErrUnauthenticated
	}

	return a.Logout(ctx, claims.UserID, claims.DeviceID)
}

// ForceLogout unconditionally clears the session regardless of the
// current device. Escape hatch for reclaiming access when the original
// device is unavailable.
func (a *Authority) ForceLogout(ctx context.Context, userID string) error {
	if err := a.users.SetActiveDevice(ctx, userID, ""); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: force logout: %v", ErrTransient, err)
	}

	a.logger.InfoContext(ctx, "forced logout", slog.String("user_id", userID))
	return nil
}

// Reclaim is the credential-verified self-service form of ForceLogout:
// the password proves account ownership when the active device (and its
// token) is unavailable.
func (a *Authority) Reclaim(ctx context.Context, login, password string) error {
	user, err := a.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: get user: %v", ErrTransient, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return a.ForceLogout(ctx, user.ID)
}

// ResetPassword updates the credential hash and unconditionally clears
// the active device, forcing re-authentication everywhere. Requires an
// activation code not yet used for a reset.
func (a *Authority) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ac, err := a.codes.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return ErrInvalidActivationCode
		}
		return fmt.Errorf("%w: get activation code: %v", ErrTransient, err)
	}
	if ac.UsedForPassReset {
		return ErrActivationCodeUsed
	}

	user, err := a.users.GetUserByLogin(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: get user: %v", ErrTransient, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Новый хеш и сброс active_device одним statement
	if err := a.users.ResetCredentials(ctx, user.ID, string(hash)); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: reset credentials: %v", ErrTransient, err)
	}

	if err := a.codes.MarkCodeUsedForReset(ctx, code, user.ID); err != nil {
		if errors.Is(err, storage.ErrCodeAlreadyUsed) {
			return ErrActivationCodeUsed
		}
		return fmt.Errorf("%w: mark activation code: %v", ErrTransient, err)
	}

	a.logger.InfoContext(ctx, "password reset, all sessions cleared",
		slog.String("user_id", user.ID))

	return nil
}

// Validate checks a token against current account state. Validity is
// derived: the signature and expiry must hold AND the token's device id
// must equal the account's active_device right now. All failure causes
// collapse into ErrUnauthenticated; the reason is only logged.
func (a *Authority) Validate(ctx context.Context, token string) (*Principal, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		// Истекший и malformed токены для клиента неразличимы
		a.logger.WarnContext(ctx, "token rejected", slog.Any("reason", err))
		return nil, ErrUnauthenticated
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			a.logger.WarnContext(ctx, "token references unknown account",
				slog.String("user_id", claims.UserID))
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: get user: %v", ErrTransient, err)
	}

	if claims.DeviceID != user.ActiveDevice {
		a.logger.WarnContext(ctx, "token rejected: session taken over by another device",
			slog.String("user_id", user.ID))
		return nil, ErrUnauthenticated
	}

	return &Principal{
		UserID:   user.ID,
		Username: user.Username,
		DeviceID: claims.DeviceID,
	}, nil
}

// CheckCode reports whether the activation code is valid and unused
// (the /verify-activation-code flow used by the client before showing
// the registration form).
func (a *Authority) CheckCode(ctx context.Context, code string) error {
	ac, err := a.codes.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			return ErrInvalidActivationCode
		}
		return fmt.Errorf("%w: get activation code: %v", ErrTransient, err)
	}
	if ac.Used {
		return ErrActivationCodeUsed
	}
	return nil
}
