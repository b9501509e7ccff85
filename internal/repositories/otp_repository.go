package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cesde/internal/models"
)

type OTPRepository interface {
	// InvalidateActive marks every unused record of the pair as used.
	InvalidateActive(ctx context.Context, identification, purpose string) (int64, error)
	Create(ctx context.Context, rec *models.OTPRecord) error
	// LatestActive returns the most recently created unused record.
	LatestActive(ctx context.Context, identification, purpose string) (*models.OTPRecord, error)
	IncrementAttempts(ctx context.Context, id int64) (int, error)
	// MarkUsed flips used on an unused record; ErrNotFound when someone got there first.
	MarkUsed(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type otpRepository struct {
	DB *sql.DB
}

func NewOTPRepository(db *sql.DB) OTPRepository {
	return &otpRepository{DB: db}
}

func (r *otpRepository) InvalidateActive(ctx context.Context, identification, purpose string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE user_otp SET used = TRUE WHERE identification = $1 AND purpose = $2 AND used = FALSE`,
		identification, purpose,
	)
	if err != nil {
		return 0, fmt.Errorf("otp invalidate: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *otpRepository) Create(ctx context.Context, rec *models.OTPRecord) error {
	const q = `
		INSERT INTO user_otp (identification, otp_hash, expires_at, used, attempts, max_attempts, channel, purpose, created_at)
		VALUES ($1, $2, $3, FALSE, 0, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, q,
		rec.Identification, rec.CodeHash, rec.ExpiresAt, rec.MaxAttempts, rec.Channel, rec.Purpose, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("otp create: %w", err)
	}
	return nil
}

func (r *otpRepository) LatestActive(ctx context.Context, identification, purpose string) (*models.OTPRecord, error) {
	const q = `
		SELECT id, identification, otp_hash, expires_at, used, attempts, max_attempts, channel, purpose, created_at
		FROM user_otp
		WHERE identification = $1 AND purpose = $2 AND used = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var rec models.OTPRecord
	err := r.DB.QueryRowContext(ctx, q, identification, purpose).Scan(
		&rec.ID, &rec.Identification, &rec.CodeHash, &rec.ExpiresAt, &rec.Used,
		&rec.Attempts, &rec.MaxAttempts, &rec.Channel, &rec.Purpose, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("otp latest: %w", err)
	}
	return &rec, nil
}

// IncrementAttempts adds one attempt and returns the new value.
func (r *otpRepository) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.DB.QueryRowContext(ctx,
		`UPDATE user_otp SET attempts = attempts + 1 WHERE id = $1 AND used = FALSE RETURNING attempts`, id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("otp increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE user_otp SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("otp mark used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("otp mark used: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM user_otp WHERE expires_at < $1 OR used = TRUE AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("otp delete expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
