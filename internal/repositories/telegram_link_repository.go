package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"cesde/internal/models"
)

type TelegramLinkRepository interface {
	Create(ctx context.Context, link *models.TelegramLink) error
	// UseByCode consumes an unused, unexpired code. ErrNotFound otherwise.
	UseByCode(ctx context.Context, code string, now time.Time) (*models.TelegramLink, error)
}

type telegramLinkRepository struct{ db *sql.DB }

func NewTelegramLinkRepository(db *sql.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

func (r *telegramLinkRepository) Create(ctx context.Context, link *models.TelegramLink) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO telegram_links (identification, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, link.Identification, link.Code, link.ExpiresAt, link.CreatedAt).Scan(&link.ID)
	if err != nil {
		return fmt.Errorf("telegram link create: %w", err)
	}
	return nil
}

func (r *telegramLinkRepository) UseByCode(ctx context.Context, code string, now time.Time) (*models.TelegramLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram link begin: %w", err)
	}
	defer tx.Rollback()

	var l models.TelegramLink
	err = tx.QueryRowContext(ctx, `
		SELECT id, identification, code, expires_at, used, created_at
		FROM telegram_links
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&l.ID, &l.Identification, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("telegram link select: %w", err)
	}

	if l.Used || now.After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE telegram_links SET used = TRUE WHERE id = $1`, l.ID); err != nil {
		return nil, fmt.Errorf("telegram link use: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("telegram link commit: %w", err)
	}
	l.Used = true
	return &l, nil
}

type MemoryTelegramLinkRepository struct {
	mu     sync.Mutex
	nextID int64
	links  map[string]*models.TelegramLink
}

func NewMemoryTelegramLinkRepository() *MemoryTelegramLinkRepository {
	return &MemoryTelegramLinkRepository{links: make(map[string]*models.TelegramLink)}
}

func (r *MemoryTelegramLinkRepository) Create(_ context.Context, link *models.TelegramLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	link.ID = r.nextID
	cp := *link
	r.links[link.Code] = &cp
	return nil
}

func (r *MemoryTelegramLinkRepository) UseByCode(_ context.Context, code string, now time.Time) (*models.TelegramLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[code]
	if !ok || l.Used || now.After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	l.Used = true
	cp := *l
	return &cp, nil
}
