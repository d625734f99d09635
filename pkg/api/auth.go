package api

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username       string `json:"username"`        // username пользователя
	Email          string `json:"email"`           // email пользователя
	Password       string `json:"password"`        // пароль
	ActivationCode string `json:"activation_code"` // одноразовый код активации
}

// RegisterResponse представляет ответ на успешную регистрацию
type RegisterResponse struct {
	UserID  string `json:"user_id"` // UUID пользователя
	Message string `json:"message"` // сообщение об успешной регистрации
}

// LoginRequest представляет запрос на аутентификацию
// Login принимает username или email; device_id — стабильный
// client-generated идентификатор устройства
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// TokenResponse представляет ответ с сессионным токеном
type TokenResponse struct {
	Token     string `json:"token"`      // JWT, привязанный к устройству
	ExpiresIn int64  `json:"expires_in"` // время жизни токена в секундах
}

// ForceLogoutRequest представляет запрос на принудительный сброс сессии
// Пароль подтверждает владение аккаунтом, когда активное устройство недоступно
type ForceLogoutRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ResetPasswordRequest представляет запрос на сброс пароля
type ResetPasswordRequest struct {
	Email          string `json:"email"`
	ActivationCode string `json:"activation_code"`
	NewPassword    string `json:"new_password"`
}

// VerifyCodeRequest представляет запрос на проверку кода активации
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyCodeResponse представляет результат проверки кода активации
type VerifyCodeResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// MeResponse представляет профиль текущего пользователя
type MeResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	DeviceID string `json:"device_id"` // устройство, которому принадлежит сессия
}

// MessageResponse представляет ответ с информационным сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
