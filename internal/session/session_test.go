package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesde/internal/authz"
	"cesde/internal/models"
)

func TestCodec_RoundTripStates(t *testing.T) {
	c := NewCodec("secret", 15*time.Minute, 24*time.Hour)

	tok, err := c.Encode(Pending{Identification: "12345", Email: "a@b.co"})
	require.NoError(t, err)
	st, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, Pending{Identification: "12345", Email: "a@b.co"}, st)

	user := &models.Identity{ID: 4, Identification: "12345", FullName: "Ana", Email: "a@b.co", Role: authz.RoleSuperAdmin, PasswordHash: "h"}
	tok, err = c.Encode(Authenticated{User: user})
	require.NoError(t, err)
	st, err = c.Decode(tok)
	require.NoError(t, err)
	auth, ok := st.(Authenticated)
	require.True(t, ok)
	assert.Equal(t, authz.RoleSuperAdmin, auth.User.Role)
	assert.Equal(t, 4, auth.User.ID)
	assert.Empty(t, auth.User.PasswordHash)
}

func TestCodec_AnonymousCannotBeEncoded(t *testing.T) {
	_, err := NewCodec("k", time.Minute, time.Hour).Encode(Anonymous{})
	assert.Error(t, err)
}

func TestCodec_RejectsTamperedAndExpired(t *testing.T) {
	c := NewCodec("secret", 15*time.Minute, 24*time.Hour)
	tok, err := c.Encode(Pending{Identification: "12345"})
	require.NoError(t, err)

	other := NewCodec("other", 15*time.Minute, 24*time.Hour)
	st, err := other.Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, Anonymous{}, st)

	base := time.Now()
	c.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_TTL(t *testing.T) {
	c := NewCodec("secret", 15*time.Minute, 24*time.Hour)
	assert.Equal(t, 15*time.Minute, c.TTL(Pending{}))
	assert.Equal(t, 24*time.Hour, c.TTL(Authenticated{}))
}
