package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cesde/internal/repositories"
)

const (
	DefaultMaxFailures    = 5
	DefaultThrottleWindow = 15 * time.Minute
)

type ThrottleStatus struct {
	Blocked  bool
	Attempts int
}

// AttemptThrottle gates logins by the number of recent failures per client.
// Store errors are logged and the request is let through.
type AttemptThrottle struct {
	store       repositories.ThrottleStore
	maxFailures int
	window      time.Duration
	clock       Clock
	logger      *zap.Logger
}

type ThrottleOption func(*AttemptThrottle)

func WithThrottleLimits(maxFailures int, window time.Duration) ThrottleOption {
	return func(t *AttemptThrottle) {
		if maxFailures > 0 {
			t.maxFailures = maxFailures
		}
		if window > 0 {
			t.window = window
		}
	}
}

func WithThrottleClock(c Clock) ThrottleOption {
	return func(t *AttemptThrottle) { t.clock = c }
}

func NewAttemptThrottle(store repositories.ThrottleStore, logger *zap.Logger, opts ...ThrottleOption) *AttemptThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &AttemptThrottle{
		store:       store,
		maxFailures: DefaultMaxFailures,
		window:      DefaultThrottleWindow,
		logger:      logger.Named("throttle"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *AttemptThrottle) Window() time.Duration { return t.window }

// Check reports whether key is blocked. A counter idle for longer than the
// window is deleted and the client starts over.
func (t *AttemptThrottle) Check(ctx context.Context, key string) ThrottleStatus {
	rec, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.Error("throttle lookup failed", zap.String("client", key), zap.Error(err))
		return ThrottleStatus{}
	}
	if rec == nil {
		return ThrottleStatus{}
	}
	if rec.Stale(t.clock.now(), t.window) {
		if err := t.store.Delete(ctx, key); err != nil {
			t.logger.Warn("throttle reset failed", zap.String("client", key), zap.Error(err))
		}
		return ThrottleStatus{}
	}
	return ThrottleStatus{Blocked: rec.Count >= t.maxFailures, Attempts: rec.Count}
}

func (t *AttemptThrottle) RecordFailure(ctx context.Context, key string) int {
	n, err := t.store.Increment(ctx, key, t.clock.now(), t.window)
	if err != nil {
		t.logger.Error("throttle record failed", zap.String("client", key), zap.Error(err))
		return 0
	}
	if n >= t.maxFailures {
		t.logger.Warn("client blocked", zap.String("client", key), zap.Int("attempts", n))
	}
	return n
}

func (t *AttemptThrottle) ClearFailures(ctx context.Context, key string) {
	if err := t.store.Delete(ctx, key); err != nil {
		t.logger.Warn("throttle clear failed", zap.String("client", key), zap.Error(err))
	}
}
