package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBlacklistRedis(t *testing.T) {
	m, client := newMiniredis(t)
	bl := NewBlacklist(client)

	ctx := context.Background()
	token := "access-token-1"
	require.NoError(t, bl.Revoke(ctx, token, 2*time.Second))

	ok, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	m.FastForward(3 * time.Second)

	ok2, err := bl.IsRevoked(ctx, token)
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestBlacklistMemory(t *testing.T) {
	bl := NewBlacklist(nil)
	ctx := context.Background()
	now := time.Now()
	bl.now = func() time.Time { return now }

	require.NoError(t, bl.Revoke(ctx, "tok", time.Minute))
	require.NoError(t, bl.Revoke(ctx, "ignored", 0))

	ok, err := bl.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.True(t, ok)
	ok, _ = bl.IsRevoked(ctx, "ignored")
	require.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = bl.IsRevoked(ctx, "tok")
	require.False(t, ok)
}
