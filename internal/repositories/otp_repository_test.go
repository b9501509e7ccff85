package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesde/internal/models"
)

func TestOTPRepository_InvalidateActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec(`UPDATE user_otp SET used = TRUE WHERE identification = \$1 AND purpose = \$2 AND used = FALSE`).
		WithArgs("12345", models.OTPPurposeLogin2FA).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.InvalidateActive(context.Background(), "12345", models.OTPPurposeLogin2FA)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := &models.OTPRecord{
		Identification: "12345",
		CodeHash:       "hash",
		ExpiresAt:      now.Add(10 * time.Minute),
		MaxAttempts:    5,
		Channel:        models.OTPChannelEmail,
		Purpose:        models.OTPPurposeLogin2FA,
		CreatedAt:      now,
	}
	mock.ExpectQuery(`INSERT INTO user_otp .+ RETURNING id`).
		WithArgs("12345", "hash", rec.ExpiresAt, 5, "email", "login_2fa", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.EqualValues(t, 42, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_LatestActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "identification", "otp_hash", "expires_at", "used", "attempts", "max_attempts", "channel", "purpose", "created_at"}).
		AddRow(int64(9), "12345", "hash", now.Add(10*time.Minute), false, 2, 5, "email", "login_2fa", now)
	mock.ExpectQuery(`FROM user_otp\s+WHERE identification = \$1 AND purpose = \$2 AND used = FALSE\s+ORDER BY created_at DESC, id DESC\s+LIMIT 1`).
		WithArgs("12345", "login_2fa").
		WillReturnRows(rows)

	rec, err := repo.LatestActive(context.Background(), "12345", "login_2fa")
	require.NoError(t, err)
	assert.EqualValues(t, 9, rec.ID)
	assert.Equal(t, 2, rec.Attempts)
	assert.False(t, rec.Used)
}

func TestOTPRepository_LatestActive_None(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectQuery(`FROM user_otp`).WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestActive(context.Background(), "12345", "login_2fa")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPRepository_IncrementAttempts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectQuery(`UPDATE user_otp SET attempts = attempts \+ 1 WHERE id = \$1 AND used = FALSE RETURNING attempts`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))

	n, err := repo.IncrementAttempts(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOTPRepository_MarkUsed_SingleWinner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec(`UPDATE user_otp SET used = TRUE WHERE id = \$1 AND used = FALSE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_otp SET used = TRUE WHERE id = \$1 AND used = FALSE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkUsed(context.Background(), 9))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), 9), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)
	cutoff := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM user_otp WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
