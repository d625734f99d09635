package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prebaalex/voicememos/internal/server/handlers"
	"github.com/prebaalex/voicememos/internal/server/session"
)

// AuthMiddleware создает middleware для проверки сессионного токена.
// Каждый запрос проверяется через session authority против текущего
// состояния аккаунта: токен устройства, у которого отобрали сессию,
// перестает работать немедленно, без каких-либо revocation-списков.
func AuthMiddleware(logger *slog.Logger, authority *session.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			// Валидация против текущего active_device аккаунта
			principal, err := authority.Validate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, session.ErrUnauthenticated) {
					// Причина (expired / malformed / takeover) уже
					// залогирована внутри authority и наружу не уходит
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				logger.Error("token validation failed", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			// Добавляем данные аутентификации в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, principal.UserID)
			ctx = context.WithValue(ctx, handlers.UsernameKey, principal.Username)
			ctx = context.WithValue(ctx, handlers.DeviceIDKey, principal.DeviceID)

			logger.Debug("User authenticated", "user_id", principal.UserID, "username", principal.Username)

			// Передаем запрос дальше с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
