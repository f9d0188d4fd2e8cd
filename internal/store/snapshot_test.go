package store

import (
	"context"
	"errors"
	"testing"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/devfolio/portfolio-api/internal/storage"
	"github.com/stretchr/testify/require"
)

type fakeBlob struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlob) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return b, nil
}

func TestSnapshotSaveRestore(t *testing.T) {
	ctx := context.Background()
	blob := &fakeBlob{objects: map[string][]byte{}}

	src := NewMemorySet()
	_, _ = src.Ratings.Insert(ctx, models.Rating{Rating: 5, Comment: "Great"})
	_, _ = src.Projects.Insert(ctx, models.Project{Name: "site", Status: models.ProjectActive})
	require.NoError(t, NewSnapshotter(src, blob, "snap.json").Save(ctx))

	dst := NewMemorySet()
	require.NoError(t, NewSnapshotter(dst, blob, "snap.json").Restore(ctx))
	ratings, err := dst.Ratings.List(ctx)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	require.Equal(t, "Great", ratings[0].Comment)
	projects, err := dst.Projects.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "site", projects[0].Name)
}

func TestSnapshotRestoreMissingIsNoop(t *testing.T) {
	set := NewMemorySet()
	blob := &fakeBlob{objects: map[string][]byte{}}
	require.NoError(t, NewSnapshotter(set, blob, "absent.json").Restore(context.Background()))
	list, err := set.Messages.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSnapshotSaveError(t *testing.T) {
	blob := &fakeBlob{objects: map[string][]byte{}, putErr: errors.New("bucket gone")}
	err := NewSnapshotter(NewMemorySet(), blob, "k").Save(context.Background())
	require.EqualError(t, err, "bucket gone")
}
