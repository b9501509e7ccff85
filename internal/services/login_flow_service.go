package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"cesde/internal/models"
	"cesde/internal/utils"
)

// LoginFlow drives the password stage and the second-factor stage of a login.
// The caller owns the session state; LoginFlow only says whether a transition
// is allowed.
type LoginFlow struct {
	throttle    *AttemptThrottle
	bot         BotVerifier
	credentials *CredentialService
	otp         *OTPService
	users       UserService
	logger      *zap.Logger
}

func NewLoginFlow(throttle *AttemptThrottle, bot BotVerifier, credentials *CredentialService, otp *OTPService, users UserService, logger *zap.Logger) *LoginFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginFlow{
		throttle:    throttle,
		bot:         bot,
		credentials: credentials,
		otp:         otp,
		users:       users,
		logger:      logger.Named("auth"),
	}
}

// Login checks the throttle, the bot token and the credentials in that order,
// then sends a second-factor code. On success the caller moves the client to
// pending second factor for the returned identity.
func (f *LoginFlow) Login(ctx context.Context, clientKey string, req models.LoginRequest) (*models.Identity, error) {
	log := f.logger.With(zap.String("client", clientKey), zap.String("identification", req.Identification))

	if st := f.throttle.Check(ctx, clientKey); st.Blocked {
		log.Warn("login blocked", zap.Int("attempts", st.Attempts))
		return nil, ErrBlocked
	}

	if req.BotToken == "" {
		f.throttle.RecordFailure(ctx, clientKey)
		return nil, ErrBotCheckMissing
	}
	if res := f.bot.Verify(ctx, req.BotToken, clientKey); !res.Success {
		f.throttle.RecordFailure(ctx, clientKey)
		return nil, &BotCheckFailedError{Reasons: res.ErrorCodes}
	}

	identity, err := f.credentials.Verify(ctx, req.Identification, req.Password)
	if err != nil {
		n := f.throttle.RecordFailure(ctx, clientKey)
		if errors.Is(err, ErrStore) {
			log.Error("credential lookup failed", zap.Error(err))
		} else {
			log.Info("login rejected", zap.Error(err), zap.Int("attempts", n))
		}
		return nil, err
	}

	if _, err := f.otp.Send(ctx, identity, models.OTPPurposeLogin2FA); err != nil {
		log.Error("second factor not sent", zap.Error(err))
		return nil, err
	}

	log.Info("credentials accepted, code sent", zap.String("email", utils.MaskEmail(identity.Email)))
	return identity, nil
}

// VerifySecondFactor consumes code for the pending identity. On success the
// client's failure record is cleared and the fresh identity is returned.
func (f *LoginFlow) VerifySecondFactor(ctx context.Context, clientKey, identification, code string) (*models.Identity, error) {
	if identification == "" {
		return nil, ErrNotPending
	}
	if _, err := f.otp.Verify(ctx, identification, models.OTPPurposeLogin2FA, code); err != nil {
		return nil, err
	}

	identity, err := f.users.GetByIdentification(ctx, identification)
	if err != nil {
		return nil, err
	}
	if !identity.Active {
		return nil, ErrInactive
	}

	f.throttle.ClearFailures(ctx, clientKey)
	f.logger.Info("login completed",
		zap.String("client", clientKey),
		zap.String("identification", identification),
		zap.String("role", string(identity.Role)),
	)
	return identity, nil
}

// ResendCode sends a new code to the pending identity, subject to the cooldown.
func (f *LoginFlow) ResendCode(ctx context.Context, identification string) (*models.OTPRecord, error) {
	if identification == "" {
		return nil, ErrNotPending
	}
	identity, err := f.users.GetByIdentification(ctx, identification)
	if err != nil {
		return nil, err
	}
	return f.otp.Resend(ctx, identity, models.OTPPurposeLogin2FA)
}
