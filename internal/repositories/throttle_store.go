package repositories

import (
	"context"
	"sync"
	"time"

	"cesde/internal/models"
)

// ThrottleStore holds failed-login counters keyed by client address.
type ThrottleStore interface {
	// Get returns nil when no counter exists for key.
	Get(ctx context.Context, key string) (*models.AttemptCounter, error)
	// Increment records one failure at now, restarting the counter when the
	// previous failure is older than window, and returns the new count.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	Delete(ctx context.Context, key string) error
}

type MemoryThrottleStore struct {
	mu      sync.Mutex
	entries map[string]*models.AttemptCounter
}

func NewMemoryThrottleStore() *MemoryThrottleStore {
	return &MemoryThrottleStore{entries: make(map[string]*models.AttemptCounter)}
}

func (s *MemoryThrottleStore) Get(_ context.Context, key string) (*models.AttemptCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryThrottleStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.Stale(now, window) {
		e = &models.AttemptCounter{}
		s.entries[key] = e
	}
	e.Count++
	e.LastFailure = now
	return e.Count, nil
}

func (s *MemoryThrottleStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Cleanup drops counters whose last failure is older than window.
func (s *MemoryThrottleStore) Cleanup(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.Stale(now, window) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryThrottleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
