package models

import "time"

// User представляет пользователя в системе
type User struct {
	ID           string    `json:"id"`            // UUID пользователя
	Username     string    `json:"username"`      // уникальный username
	Email        string    `json:"email"`         // уникальный email
	PasswordHash string    `json:"-"`             // bcrypt хеш пароля
	ActiveDevice string    `json:"active_device"` // device id активной сессии, "" = нет сессии
	CreatedAt    time.Time `json:"created_at"`    // время создания
	UpdatedAt    time.Time `json:"updated_at"`    // время последнего обновления
}

// LoggedIn reports whether the account currently has an active session.
// ActiveDevice holds zero or exactly one device id; the empty string is
// the canonical "no session" value.
func (u *User) LoggedIn() bool {
	return u.ActiveDevice != ""
}
