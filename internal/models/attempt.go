package models

import "time"

// AttemptCounter is the volatile failed-login state of one client address.
type AttemptCounter struct {
	Count       int       `json:"count"`
	LastFailure time.Time `json:"last_failure"`
}

// Stale reports whether the window since the last failure has elapsed.
func (a *AttemptCounter) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(a.LastFailure) > window
}
