package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "admin", time.Hour)
	require.NoError(t, err)
	require.Len(t, r, 64)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "admin", sess.Subject)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess2, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess2)
}

func TestValidateRefreshExpired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "admin", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess)

	// expired sessions are cleaned up
	raw, _ := repo.GetByRefresh(ctx, r)
	require.Nil(t, raw)
}

func TestRotate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	first, err := svc.CreateSession(ctx, "admin", time.Hour)
	require.NoError(t, err)

	sess, second, err := svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.Equal(t, "admin", sess.Subject)
	require.NotEqual(t, first, second)

	_, _, err = svc.Rotate(ctx, first, time.Hour)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	again, err := svc.ValidateRefresh(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, again)
}
