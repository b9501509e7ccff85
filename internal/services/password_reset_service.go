package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/models"
	"cesde/internal/repositories"
)

// PasswordResetService lets an identity set a new password after proving
// control of its delivery channel with a one-time code.
type PasswordResetService struct {
	users      repositories.UserRepository
	otp        *OTPService
	bot        BotVerifier
	bcryptCost int
	logger     *zap.Logger
}

func NewPasswordResetService(users repositories.UserRepository, otp *OTPService, bot BotVerifier, bcryptCost int, logger *zap.Logger) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PasswordResetService{users: users, otp: otp, bot: bot, bcryptCost: bcryptCost, logger: logger.Named("password_reset")}
}

// RequestReset sends a reset code. Unknown or inactive identities, the resend
// cooldown and delivery failures all look like success to the caller.
func (s *PasswordResetService) RequestReset(ctx context.Context, req models.ForgotPasswordRequest, remoteIP string) error {
	if req.BotToken == "" {
		return ErrBotCheckMissing
	}
	if res := s.bot.Verify(ctx, req.BotToken, remoteIP); !res.Success {
		return &BotCheckFailedError{Reasons: res.ErrorCodes}
	}

	identification := strings.TrimSpace(req.Identification)
	log := s.logger.With(zap.String("identification", identification))

	user, err := s.users.GetByIdentification(ctx, identification)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Info("reset requested for unknown identity")
			return nil
		}
		return storeErr("reset lookup", err)
	}
	if !user.Active {
		log.Info("reset requested for inactive identity")
		return nil
	}

	_, err = s.otp.Resend(ctx, user, models.OTPPurposePasswordReset)
	switch {
	case err == nil:
		log.Info("reset code sent")
	case errors.Is(err, ErrOTPTooSoon):
		log.Info("reset requested during cooldown")
	case errors.Is(err, ErrDeliveryFailed):
		log.Error("reset code not delivered", zap.Error(err))
	default:
		return err
	}
	return nil
}

// ResetPassword consumes the reset code and stores the new password hash.
func (s *PasswordResetService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(req.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	identification := strings.TrimSpace(req.Identification)

	if _, err := s.otp.Verify(ctx, identification, models.OTPPurposePasswordReset, strings.TrimSpace(req.Code)); err != nil {
		return err
	}

	user, err := s.users.GetByIdentification(ctx, identification)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return storeErr("reset lookup", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("bcrypt generate: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return storeErr("reset update", err)
	}

	s.logger.Info("password reset", zap.String("identification", identification))
	return nil
}
