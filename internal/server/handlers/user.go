package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prebaalex/voicememos/internal/server/storage"
	"github.com/prebaalex/voicememos/pkg/api"
)

// UserHandler обрабатывает запросы профиля пользователя
// Это типичный downstream-потребитель session authority: до него
// добираются только запросы, прошедшие auth middleware
type UserHandler struct {
	logger *slog.Logger
	users  storage.UserStorage
}

// NewUserHandler создает новый handler профиля
func NewUserHandler(logger *slog.Logger, users storage.UserStorage) *UserHandler {
	return &UserHandler{
		logger: logger,
		users:  users,
	}
}

// Me обрабатывает GET /api/v1/me
// Возвращает профиль аутентифицированного пользователя
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := ctx.Value(UserIDKey).(string)
	deviceID, _ := ctx.Value(DeviceIDKey).(string)
	if userID == "" {
		// Сюда можно попасть только минуя auth middleware
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.MeResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		DeviceID: deviceID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode me response", slog.Any("error", err))
	}
}
