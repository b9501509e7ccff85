package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ThrottleCleaner drops idle throttle counters. Redis expires its own keys,
// so only the in-memory store needs one.
type ThrottleCleaner interface {
	Cleanup(now time.Time, window time.Duration) int
}

// Janitor periodically purges expired codes and idle throttle counters.
type Janitor struct {
	otp      *OTPService
	cleaner  ThrottleCleaner
	window   time.Duration
	interval time.Duration
	clock    Clock
	logger   *zap.Logger
}

func NewJanitor(otp *OTPService, cleaner ThrottleCleaner, window, interval time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		otp:      otp,
		cleaner:  cleaner,
		window:   window,
		interval: interval,
		logger:   logger.Named("janitor"),
	}
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *Janitor) RunOnce(ctx context.Context) {
	if j.otp != nil {
		n, err := j.otp.PurgeExpired(ctx)
		if err != nil {
			j.logger.Error("purge expired codes", zap.Error(err))
		} else if n > 0 {
			j.logger.Info("purged expired codes", zap.Int64("count", n))
		}
	}
	if j.cleaner != nil {
		if n := j.cleaner.Cleanup(j.clock.now(), j.window); n > 0 {
			j.logger.Info("dropped idle throttle counters", zap.Int("count", n))
		}
	}
}
