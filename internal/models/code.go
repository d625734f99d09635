package models

import "time"

// ActivationCode представляет код активации
// Один код может быть использован один раз при регистрации
// и один раз для сброса пароля
type ActivationCode struct {
	Code             string     `json:"code"`              // сам код
	Used             bool       `json:"used"`              // использован при регистрации
	UsedBy           string     `json:"used_by"`           // ID пользователя, активировавшего код
	UsedAt           *time.Time `json:"used_at"`           // время активации
	UsedForPassReset bool       `json:"used_for_pw_reset"` // использован для сброса пароля
	PassResetBy      string     `json:"pw_reset_by"`       // ID пользователя, сбросившего пароль
	PassResetAt      *time.Time `json:"pw_reset_at"`       // время сброса пароля
	CreatedAt        time.Time  `json:"created_at"`        // время создания кода
}
