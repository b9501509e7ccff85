package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlocked          = errors.New("too many failed login attempts")
	ErrBotCheckMissing  = errors.New("bot verification token missing")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrInactive         = errors.New("account is inactive")
	ErrBadSecret        = errors.New("invalid password")
	ErrOTPNotFound      = errors.New("no active code")
	ErrOTPExpired       = errors.New("code expired")
	ErrOTPExhausted     = errors.New("too many code attempts")
	ErrOTPMismatch      = errors.New("code invalid")
	ErrOTPTooSoon       = errors.New("resend requested too soon")
	ErrDeliveryFailed   = errors.New("code could not be delivered")
	ErrStore            = errors.New("store error")
	ErrNotPending       = errors.New("no login pending second factor")

	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrIdentityExists   = errors.New("identification already registered")
	ErrEmailExists      = errors.New("email already registered")
	ErrRoleNotAllowed   = errors.New("role not allowed")

	ErrUserNotFound     = errors.New("user not found")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password too short")
	ErrSelfDelete       = errors.New("cannot delete own account")
)

// BotCheckFailedError carries the reason codes returned by the verifier.
type BotCheckFailedError struct {
	Reasons []string
}

func (e *BotCheckFailedError) Error() string {
	if len(e.Reasons) == 0 {
		return "bot verification failed"
	}
	return "bot verification failed: " + strings.Join(e.Reasons, ",")
}

// Message is the user-facing text for the failure.
func (e *BotCheckFailedError) Message() string {
	return BotCheckMessage(e.Reasons)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
