package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesde/internal/authz"
	"cesde/internal/models"
)

func TestJanitor_RunOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.addIdentity(t, "12345", "pw123", true, authz.RoleNormal)
	_, err := h.otp.Issue(ctx, u, models.OTPPurposeLogin2FA)
	require.NoError(t, err)
	h.clock.Advance(11 * time.Minute)

	// counter from well outside the window
	_, _ = h.store.Increment(ctx, "old", time.Now().Add(-time.Hour), 15*time.Minute)

	NewJanitor(h.otp, h.store, 15*time.Minute, time.Minute, nil).RunOnce(ctx)

	assert.Empty(t, h.otpRepo.All())
	assert.Equal(t, 0, h.store.Len())
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewJanitor(nil, nil, time.Minute, time.Millisecond, nil).Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
