package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cesde/internal/models"
)

type UserRepository interface {
	GetByIdentification(ctx context.Context, identification string) (*models.Identity, error)
	ExistsByIdentification(ctx context.Context, identification string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.Identity) error
	SetTelegramChatID(ctx context.Context, identification string, chatID int64) error

	GetByID(ctx context.Context, id int) (*models.Identity, error)
	List(ctx context.Context, limit, offset int) ([]*models.Identity, error)
	Update(ctx context.Context, user *models.Identity) error
	Delete(ctx context.Context, id int) error
}

const userColumns = `id, identification, full_name, COALESCE(email, ''), password_hash,
		       active, role, COALESCE(telegram_chat_id, 0), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.Identity, error) {
	var u models.Identity
	err := row.Scan(
		&u.ID, &u.Identification, &u.FullName, &u.Email, &u.PasswordHash,
		&u.Active, &u.Role, &u.TelegramChatID, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) GetByIdentification(ctx context.Context, identification string) (*models.Identity, error) {
	q := `SELECT ` + userColumns + `
		FROM users
		WHERE identification = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, identification))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user get by identification: %w", err)
	}
	return u, nil
}

func (r *userRepository) ExistsByIdentification(ctx context.Context, identification string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE identification = $1)`, identification,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists by identification: %w", err)
	}
	return exists, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists by email: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.Identity) error {
	const q = `
		INSERT INTO users (identification, full_name, email, password_hash, active, role, telegram_chat_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, 0))
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.Identification,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Active,
		string(user.Role),
		user.TelegramChatID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *userRepository) SetTelegramChatID(ctx context.Context, identification string, chatID int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET telegram_chat_id = NULLIF($2, 0) WHERE identification = $1`, identification, chatID,
	)
	if err != nil {
		return fmt.Errorf("user set telegram chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.Identity, error) {
	q := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user get by id: %w", err)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*models.Identity, error) {
	q := `SELECT ` + userColumns + `
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var res []*models.Identity
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user list scan: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// Update overwrites every editable column of the row with user.ID.
func (r *userRepository) Update(ctx context.Context, user *models.Identity) error {
	const q = `
		UPDATE users
		SET identification = $2, full_name = $3, email = NULLIF($4, ''),
		    password_hash = $5, active = $6, role = $7
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, q,
		user.ID,
		user.Identification,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Active,
		string(user.Role),
	)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
