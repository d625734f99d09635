package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prebaalex/voicememos/internal/server/handlers"
	"github.com/prebaalex/voicememos/internal/server/middleware"
	"github.com/prebaalex/voicememos/internal/server/session"
	"github.com/prebaalex/voicememos/internal/server/storage"
)

// Options собирает зависимости HTTP слоя
type Options struct {
	Logger     *slog.Logger
	Authority  *session.Authority
	Users      storage.UserStorage
	Version    string
	RateLimit  int
	RateWindow time.Duration
}

// NewHandler строит полный HTTP handler сервера: маршруты плюс цепочка
// middleware recovery -> logging -> rate limit; защищенные маршруты
// дополнительно проходят через auth middleware
func NewHandler(opts Options) http.Handler {
	authHandler := handlers.NewAuthHandler(opts.Logger, opts.Authority)
	userHandler := handlers.NewUserHandler(opts.Logger, opts.Users)
	healthHandler := handlers.NewHealthHandler(opts.Logger, opts.Version)

	requireAuth := middleware.AuthMiddleware(opts.Logger, opts.Authority)

	mux := http.NewServeMux()

	// Публичные маршруты
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/force-logout", authHandler.ForceLogout)
	mux.HandleFunc("POST /api/v1/auth/reset-password", authHandler.ResetPassword)
	mux.HandleFunc("POST /api/v1/auth/codes/verify", authHandler.VerifyCode)
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Logout сам разбирает Bearer токен: ему достаточно структурной
	// валидности, поэтому полный auth middleware здесь не нужен
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)

	// Защищенные маршруты: каждый запрос валидируется против текущего
	// active_device аккаунта
	mux.Handle("GET /api/v1/me", requireAuth(http.HandlerFunc(userHandler.Me)))

	// Собираем цепочку middleware снаружи внутрь
	var handler http.Handler = mux
	if opts.RateLimit > 0 {
		handler = middleware.RateLimitMiddleware(opts.RateLimit, opts.RateWindow, opts.Logger)(handler)
	}
	handler = middleware.LoggingWithSkip(opts.Logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(opts.Logger)(handler)

	return handler
}
