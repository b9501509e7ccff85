package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesde/internal/models"
)

func TestTelegramLinkRepository_UseByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTelegramLinkRepository(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM telegram_links\s+WHERE code = \$1\s+FOR UPDATE`).
		WithArgs("ABC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "identification", "code", "expires_at", "used", "created_at"}).
			AddRow(int64(1), "12345", "ABC", now.Add(time.Minute), false, now))
	mock.ExpectExec(`UPDATE telegram_links SET used = TRUE WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l, err := repo.UseByCode(context.Background(), "ABC", now)
	require.NoError(t, err)
	assert.Equal(t, "12345", l.Identification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelegramLinkRepository_ExpiredCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTelegramLinkRepository(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM telegram_links`).
		WithArgs("ABC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "identification", "code", "expires_at", "used", "created_at"}).
			AddRow(int64(1), "12345", "ABC", now.Add(-time.Minute), false, now.Add(-time.Hour)))
	mock.ExpectRollback()

	_, err := repo.UseByCode(context.Background(), "ABC", now)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryTelegramLinkRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTelegramLinkRepository()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.TelegramLink{Identification: "1", Code: "C", ExpiresAt: now.Add(time.Minute)}))

	l, err := repo.UseByCode(ctx, "C", now)
	require.NoError(t, err)
	assert.Equal(t, "1", l.Identification)

	_, err = repo.UseByCode(ctx, "C", now)
	assert.ErrorIs(t, err, ErrNotFound)
}
