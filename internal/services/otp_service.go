package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/models"
	"cesde/internal/repositories"
	"cesde/internal/utils"
)

const (
	DefaultCodeLength     = 6
	DefaultCodeTTL        = 10 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultResendCooldown = 60 * time.Second
)

type OTPSettings struct {
	Length         int
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	BcryptCost     int
}

func (s *OTPSettings) withDefaults() {
	if s.Length <= 0 {
		s.Length = DefaultCodeLength
	}
	if s.TTL <= 0 {
		s.TTL = DefaultCodeTTL
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.ResendCooldown <= 0 {
		s.ResendCooldown = DefaultResendCooldown
	}
	if s.BcryptCost == 0 {
		s.BcryptCost = bcrypt.DefaultCost
	}
}

// IssuedCode pairs the stored record with the plaintext code, which exists
// only long enough to be delivered.
type IssuedCode struct {
	Record *models.OTPRecord
	Code   string
}

type OTPService struct {
	repo     repositories.OTPRepository
	delivery CodeDeliverer
	settings OTPSettings
	clock    Clock
	logger   *zap.Logger
}

func NewOTPService(repo repositories.OTPRepository, delivery CodeDeliverer, settings OTPSettings, clock Clock, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings.withDefaults()
	return &OTPService{
		repo:     repo,
		delivery: delivery,
		settings: settings,
		clock:    clock,
		logger:   logger.Named("otp"),
	}
}

func (s *OTPService) Settings() OTPSettings { return s.settings }

// Issue invalidates the active code of (identity, purpose) and stores a new one.
func (s *OTPService) Issue(ctx context.Context, identity *models.Identity, purpose string) (*IssuedCode, error) {
	if _, err := s.repo.InvalidateActive(ctx, identity.Identification, purpose); err != nil {
		return nil, storeErr("otp invalidate", err)
	}

	code, err := utils.GenerateNumericCode(s.settings.Length)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.settings.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt generate: %w", err)
	}

	now := s.clock.now()
	channel := models.OTPChannelEmail
	if s.delivery != nil {
		channel = s.delivery.ChannelFor(identity)
	}
	rec := &models.OTPRecord{
		Identification: identity.Identification,
		CodeHash:       string(hash),
		ExpiresAt:      now.Add(s.settings.TTL),
		MaxAttempts:    s.settings.MaxAttempts,
		Channel:        channel,
		Purpose:        purpose,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, storeErr("otp create", err)
	}

	s.logger.Info("code issued",
		zap.String("identification", identity.Identification),
		zap.String("purpose", purpose),
		zap.String("channel", channel),
		zap.Int64("otp_id", rec.ID),
	)
	return &IssuedCode{Record: rec, Code: code}, nil
}

// Send issues a code and delivers it. On delivery failure the record stays
// valid and ErrDeliveryFailed is returned.
func (s *OTPService) Send(ctx context.Context, identity *models.Identity, purpose string) (*models.OTPRecord, error) {
	issued, err := s.Issue(ctx, identity, purpose)
	if err != nil {
		return nil, err
	}
	if s.delivery == nil {
		return nil, fmt.Errorf("%w: no delivery configured", ErrDeliveryFailed)
	}
	if err := s.delivery.Deliver(ctx, issued.Record.Channel, identity, issued.Code, s.settings.TTL); err != nil {
		s.logger.Error("code delivery failed",
			zap.String("identification", identity.Identification),
			zap.String("channel", issued.Record.Channel),
			zap.Error(err),
		)
		return issued.Record, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return issued.Record, nil
}

// Resend sends a fresh code unless the active one is younger than the cooldown.
func (s *OTPService) Resend(ctx context.Context, identity *models.Identity, purpose string) (*models.OTPRecord, error) {
	latest, err := s.repo.LatestActive(ctx, identity.Identification, purpose)
	switch {
	case err == nil:
		if s.clock.now().Sub(latest.CreatedAt) < s.settings.ResendCooldown {
			return nil, ErrOTPTooSoon
		}
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return nil, storeErr("otp latest", err)
	}
	return s.Send(ctx, identity, purpose)
}

// Verify checks code against the latest unused record of (identification, purpose).
func (s *OTPService) Verify(ctx context.Context, identification, purpose, code string) (*models.OTPRecord, error) {
	rec, err := s.repo.LatestActive(ctx, identification, purpose)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, storeErr("otp latest", err)
	}
	if rec.Expired(s.clock.now()) {
		return nil, ErrOTPExpired
	}
	if rec.Exhausted() {
		return nil, ErrOTPExhausted
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		attempts, err := s.repo.IncrementAttempts(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrOTPNotFound
			}
			return nil, storeErr("otp increment", err)
		}
		s.logger.Info("code mismatch",
			zap.String("identification", identification),
			zap.Int("attempts", attempts),
			zap.Int("max_attempts", rec.MaxAttempts),
		)
		return nil, ErrOTPMismatch
	}

	if err := s.repo.MarkUsed(ctx, rec.ID); err != nil {
		// another session consumed it between our read and write
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, storeErr("otp mark used", err)
	}
	rec.Used = true
	return rec, nil
}

// PurgeExpired deletes records that expired before now.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.now())
	if err != nil {
		return 0, storeErr("otp purge", err)
	}
	return n, nil
}
