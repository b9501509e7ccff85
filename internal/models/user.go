package models

import (
	"time"

	"cesde/internal/authz"
)

// Identity is a registered person of the portal.
type Identity struct {
	ID             int        `json:"id"`
	Identification string     `json:"identification"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"` // never leaves the service layer
	Active         bool       `json:"active"`
	Role           authz.Role `json:"role"`
	TelegramChatID int64      `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Public returns a copy without the password hash.
func (i *Identity) Public() *Identity {
	cp := *i
	cp.PasswordHash = ""
	return &cp
}

type LoginRequest struct {
	Identification string `json:"identification" form:"identificacion"`
	Password       string `json:"password" form:"contrasena"`
	BotToken       string `json:"bot_token" form:"g-recaptcha-response"`
}

type RegisterRequest struct {
	FullName        string `json:"full_name" form:"nombres_y_apellidos" binding:"required"`
	Identification  string `json:"identification" form:"identificacion" binding:"required"`
	Password        string `json:"password" form:"contrasena" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" form:"confirmar_contrasena" binding:"required"`
	Email           string `json:"email" form:"correo_electronico" binding:"required"`
	Role            string `json:"role" form:"rol"`
	BotToken        string `json:"bot_token" form:"g-recaptcha-response"`
}

// UserInput is the body of the admin create and update endpoints. Password
// may be empty on update to keep the current one; Active defaults to true.
type UserInput struct {
	FullName       string `json:"full_name" binding:"required"`
	Identification string `json:"identification" binding:"required"`
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password"`
	Active         *bool  `json:"active"`
	Role           string `json:"role"`
}
