package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesde/internal/authz"
	"cesde/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_GetByIdentification(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "identification", "full_name", "email", "password_hash", "active", "role", "telegram_chat_id", "created_at"}).
		AddRow(3, "12345", "Ana Gomez", "ana@cesde.edu.co", "$2a$hash", true, "admin", int64(0), created)
	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE identification = \$1`).
		WithArgs("12345").
		WillReturnRows(rows)

	u, err := repo.GetByIdentification(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, 3, u.ID)
	assert.Equal(t, authz.RoleAdmin, u.Role)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
	assert.True(t, u.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIdentification_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIdentification(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByIdentification_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`SELECT .+ FROM users`).WithArgs("12345").WillReturnError(boom)

	_, err := repo.GetByIdentification(context.Background(), "12345")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Exists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE identification = \$1\)`).
		WithArgs("12345").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE LOWER\(email\) = LOWER\(\$1\)\)`).
		WithArgs("x@y.co").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.ExistsByIdentification(context.Background(), "12345")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(context.Background(), "x@y.co")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users .+ RETURNING id, created_at`).
		WithArgs("999", "Luis", "luis@x.co", "hash", true, "normal", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, created))

	u := &models.Identity{
		Identification: "999",
		FullName:       "Luis",
		Email:          "luis@x.co",
		PasswordHash:   "hash",
		Active:         true,
		Role:           authz.RoleNormal,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, 11, u.ID)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetTelegramChatID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET telegram_chat_id = NULLIF\(\$2, 0\) WHERE identification = \$1`).
		WithArgs("12345", int64(777)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET telegram_chat_id`).
		WithArgs("0", int64(777)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetTelegramChatID(context.Background(), "12345", 777))
	assert.ErrorIs(t, repo.SetTelegramChatID(context.Background(), "0", 777), ErrNotFound)
}

func TestUserRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "identification", "full_name", "email", "password_hash", "active", "role", "telegram_chat_id", "created_at"}).
		AddRow(1, "1", "A", "a@cesde.edu.co", "h1", true, "normal", int64(0), created).
		AddRow(2, "2", "B", "", "h2", false, "superadmin", int64(99), created)
	mock.ExpectQuery(`SELECT .+ FROM users\s+ORDER BY id\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 40).
		WillReturnRows(rows)

	users, err := repo.List(context.Background(), 20, 40)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, authz.RoleSuperAdmin, users[1].Role)
	assert.Equal(t, int64(99), users[1].TelegramChatID)
	assert.False(t, users[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE id = \$1`).WithArgs(5).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	u := &models.Identity{ID: 4, Identification: "44", FullName: "D", Email: "", PasswordHash: "h", Active: true, Role: authz.RoleAdmin}

	mock.ExpectExec(`UPDATE users\s+SET identification = \$2`).
		WithArgs(4, "44", "D", "", "h", true, "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), u))

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), u), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), 8))

	mock.ExpectExec(`DELETE FROM users`).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 9), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
