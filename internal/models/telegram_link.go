package models

import "time"

// TelegramLink is a one-shot code that ties a Telegram chat to an identity.
type TelegramLink struct {
	ID             int64     `json:"id"`
	Identification string    `json:"-"`
	Code           string    `json:"code"`
	ExpiresAt      time.Time `json:"expires_at"`
	Used           bool      `json:"-"`
	CreatedAt      time.Time `json:"-"`
}
