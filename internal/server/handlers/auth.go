package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prebaalex/voicememos/internal/server/session"
	"github.com/prebaalex/voicememos/internal/validation"
	"github.com/prebaalex/voicememos/pkg/api"
)

// contextKey — тип ключей контекста для данных аутентификации
type contextKey string

// Context keys, заполняются auth middleware
const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
	DeviceIDKey contextKey = "device_id"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger    *slog.Logger
	authority *session.Authority
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, authority *session.Authority) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		authority: authority,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя по коду активации
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Валидация полей
	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ActivationCode == "" {
		h.sendError(w, "activation_code is required", http.StatusBadRequest)
		return
	}

	userID, err := h.authority.Register(ctx, req.Username, req.Email, req.Password, req.ActivationCode)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyExists):
			h.sendError(w, "username or email already taken", http.StatusConflict)
		case errors.Is(err, session.ErrInvalidActivationCode):
			h.sendError(w, "invalid activation code", http.StatusBadRequest)
		case errors.Is(err, session.ErrActivationCodeUsed):
			h.sendError(w, "activation code already used", http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	resp := api.RegisterResponse{
		UserID:  userID,
		Message: "User registered successfully",
	}

	h.sendJSON(w, resp, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация: логин возможен только если аккаунт не занят другим
// устройством; повторный логин с того же устройства идемпотентен
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		h.sendError(w, "login and password are required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.authority.Login(ctx, req.Login, req.Password, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			h.logger.WarnContext(ctx, "login failed: invalid credentials", slog.String("login", req.Login))
			h.sendError(w, "invalid credentials", http.StatusUnauthorized)
		case errors.Is(err, session.ErrDeviceConflict):
			// Клиент показывает явное "already logged in elsewhere",
			// а не generic auth failure
			h.sendError(w, "already logged in from another device, sign out there first", http.StatusConflict)
		default:
			h.logger.ErrorContext(ctx, "failed to log in", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	resp := api.TokenResponse{
		Token:     sess.Token,
		ExpiresIn: sess.ExpiresIn,
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Снимает сессию, если она все еще принадлежит устройству из токена;
// чужую сессию не трогает (no-op success)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := bearerToken(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.authority.LogoutByToken(ctx, token); err != nil {
		switch {
		case errors.Is(err, session.ErrUnauthenticated):
			h.sendError(w, "invalid or expired token", http.StatusUnauthorized)
		case errors.Is(err, session.ErrNotFound):
			h.sendError(w, "account not found", http.StatusNotFound)
		default:
			h.logger.ErrorContext(ctx, "failed to log out", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForceLogout обрабатывает POST /api/v1/auth/force-logout
// Сброс сессии по паролю, когда активное устройство недоступно
func (h *AuthHandler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ForceLogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode force-logout request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		h.sendError(w, "login and password are required", http.StatusBadRequest)
		return
	}

	if err := h.authority.Reclaim(ctx, req.Login, req.Password); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			h.sendError(w, "invalid credentials", http.StatusUnauthorized)
		case errors.Is(err, session.ErrNotFound):
			h.sendError(w, "account not found", http.StatusNotFound)
		default:
			h.logger.ErrorContext(ctx, "failed to force logout", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.sendJSON(w, api.MessageResponse{Message: "session cleared, you can now log in from a new device"}, http.StatusOK)
}

// ResetPassword обрабатывает POST /api/v1/auth/reset-password
// Сброс пароля по email и коду активации; все сессии сбрасываются
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode reset-password request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ActivationCode == "" {
		h.sendError(w, "activation_code is required", http.StatusBadRequest)
		return
	}

	if err := h.authority.ResetPassword(ctx, req.Email, req.ActivationCode, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			h.sendError(w, "no user found with this email address", http.StatusNotFound)
		case errors.Is(err, session.ErrInvalidActivationCode):
			h.sendError(w, "invalid activation code", http.StatusBadRequest)
		case errors.Is(err, session.ErrActivationCodeUsed):
			h.sendError(w, "activation code already used for password reset", http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to reset password", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.sendJSON(w, api.MessageResponse{Message: "password reset successful, please log in with your new password"}, http.StatusOK)
}

// VerifyCode обрабатывает POST /api/v1/auth/codes/verify
// Проверка кода активации перед показом формы регистрации
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		h.sendError(w, "code is required", http.StatusBadRequest)
		return
	}

	err := h.authority.CheckCode(ctx, req.Code)
	switch {
	case err == nil:
		h.sendJSON(w, api.VerifyCodeResponse{Valid: true, Message: "activation code is valid"}, http.StatusOK)
	case errors.Is(err, session.ErrInvalidActivationCode):
		h.sendJSON(w, api.VerifyCodeResponse{Valid: false, Message: "activation code not found"}, http.StatusNotFound)
	case errors.Is(err, session.ErrActivationCodeUsed):
		h.sendJSON(w, api.VerifyCodeResponse{Valid: false, Message: "activation code has already been used"}, http.StatusOK)
	default:
		h.logger.ErrorContext(ctx, "failed to verify code", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header is required")
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", errors.New("invalid Authorization header format")
	}

	token := authHeader[len(bearerPrefix):]
	if token == "" {
		return "", errors.New("token is required")
	}

	return token, nil
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
