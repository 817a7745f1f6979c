package authenticator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T, ttl time.Duration) *Authenticator {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewWithDenylist("test-secret", ttl, client)
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	token, err := a.GenerateToken("user-1", "Jamie", "jamie@example.com", []string{"Manager"})
	require.NoError(t, err)

	claims, err := a.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jamie@example.com", claims.Email)
	assert.Equal(t, []string{"Manager"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
}

func TestExpiredTokenRejected(t *testing.T) {
	a := newTestAuthenticator(t, -time.Minute)

	token, err := a.GenerateToken("user-1", "Jamie", "jamie@example.com", nil)
	require.NoError(t, err)

	_, err = a.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	token, err := a.GenerateToken("user-1", "Jamie", "jamie@example.com", nil)
	require.NoError(t, err)

	other := NewWithDenylist("other-secret", time.Hour, nil)
	_, err = other.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokedTokenRejected(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)
	ctx := context.Background()

	token, err := a.GenerateToken("user-1", "Jamie", "jamie@example.com", nil)
	require.NoError(t, err)

	claims, err := a.VerifyAccessToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, claims))

	_, err = a.VerifyAccessToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeWithoutDenylistIsNoop(t *testing.T) {
	a := NewWithDenylist("test-secret", time.Hour, nil)
	ctx := context.Background()

	token, err := a.GenerateToken("user-1", "Jamie", "jamie@example.com", nil)
	require.NoError(t, err)

	claims, err := a.VerifyAccessToken(ctx, token)
	require.NoError(t, err)

	assert.NoError(t, a.Revoke(ctx, claims))

	// Still valid: nothing records the revocation.
	_, err = a.VerifyAccessToken(ctx, token)
	assert.NoError(t, err)
}
