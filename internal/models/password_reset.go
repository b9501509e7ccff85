package models

type ForgotPasswordRequest struct {
	Identification string `json:"identification" form:"identificacion" binding:"required"`
	BotToken       string `json:"bot_token" form:"g-recaptcha-response"`
}

type ResetPasswordRequest struct {
	Identification  string `json:"identification" form:"identificacion" binding:"required"`
	Code            string `json:"code" form:"otp" binding:"required"`
	Password        string `json:"password" form:"contrasena" binding:"required"`
	ConfirmPassword string `json:"confirm_password" form:"confirmar_contrasena" binding:"required"`
}
