package models

import "time"

const (
	OTPPurposeLogin2FA      = "login_2fa"
	OTPPurposePasswordReset = "password_reset"

	OTPChannelEmail    = "email"
	OTPChannelTelegram = "telegram"
)

// OTPRecord is one issued one-time code. Only the bcrypt hash of the code is kept.
type OTPRecord struct {
	ID             int64     `json:"id"`
	Identification string    `json:"identification"`
	CodeHash       string    `json:"-"`
	ExpiresAt      time.Time `json:"expires_at"`
	Used           bool      `json:"used"`
	Attempts       int       `json:"attempts"`
	MaxAttempts    int       `json:"max_attempts"`
	Channel        string    `json:"channel"`
	Purpose        string    `json:"purpose"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *OTPRecord) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

type VerifyOTPRequest struct {
	Code string `json:"code" form:"otp" binding:"required"`
}
