package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cesde/internal/models"
)

// MemoryUserRepository keeps identities in process memory. Used when no
// database is configured and in tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int
	users  map[string]*models.Identity
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.Identity)}
}

func (r *MemoryUserRepository) GetByIdentification(_ context.Context, identification string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[identification]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) ExistsByIdentification(_ context.Context, identification string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[identification]
	return ok, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	r.users[user.Identification] = &cp
	return nil
}

func (r *MemoryUserRepository) SetTelegramChatID(_ context.Context, identification string, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identification]
	if !ok {
		return ErrNotFound
	}
	u.TelegramChatID = chatID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.byID(id); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]*models.Identity, error) {
	r.mu.RLock()
	all := make([]*models.Identity, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.byID(user.ID)
	if old == nil {
		return ErrNotFound
	}
	delete(r.users, old.Identification)
	cp := *user
	cp.CreatedAt = old.CreatedAt
	cp.TelegramChatID = old.TelegramChatID
	r.users[cp.Identification] = &cp
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID(id)
	if u == nil {
		return ErrNotFound
	}
	delete(r.users, u.Identification)
	return nil
}

func (r *MemoryUserRepository) byID(id int) *models.Identity {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// MemoryOTPRepository is the in-process counterpart of the user_otp table.
type MemoryOTPRepository struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.OTPRecord
}

func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{}
}

func (r *MemoryOTPRepository) InvalidateActive(_ context.Context, identification, purpose string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Identification == identification && rec.Purpose == purpose && !rec.Used {
			rec.Used = true
			n++
		}
	}
	return n, nil
}

func (r *MemoryOTPRepository) Create(_ context.Context, rec *models.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *MemoryOTPRepository) LatestActive(_ context.Context, identification, purpose string) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.OTPRecord
	for _, rec := range r.records {
		if rec.Identification != identification || rec.Purpose != purpose || rec.Used {
			continue
		}
		if latest == nil || !rec.CreatedAt.Before(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryOTPRepository) IncrementAttempts(_ context.Context, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.find(id)
	if rec == nil || rec.Used {
		return 0, ErrNotFound
	}
	rec.Attempts++
	return rec.Attempts, nil
}

func (r *MemoryOTPRepository) MarkUsed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.find(id)
	if rec == nil || rec.Used {
		return ErrNotFound
	}
	rec.Used = true
	return nil
}

func (r *MemoryOTPRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	var n int64
	for _, rec := range r.records {
		if rec.ExpiresAt.Before(before) || (rec.Used && rec.CreatedAt.Before(before)) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return n, nil
}

// All returns copies of every stored record, oldest first.
func (r *MemoryOTPRepository) All() []models.OTPRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.OTPRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out
}

func (r *MemoryOTPRepository) find(id int64) *models.OTPRecord {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}
