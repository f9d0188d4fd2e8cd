package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/devfolio/portfolio-api/internal/storage"
	"github.com/devfolio/portfolio-api/pkg/logger"
	"github.com/devfolio/portfolio-api/pkg/metrics"
)

// BlobStore is the object storage used for snapshots (storage.MinIOStorage).
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Snapshotter copies a MemorySet to and from object storage so the memory
// backend survives restarts.
type Snapshotter struct {
	set  *MemorySet
	blob BlobStore
	key  string
}

func NewSnapshotter(set *MemorySet, blob BlobStore, key string) *Snapshotter {
	return &Snapshotter{set: set, blob: blob, key: key}
}

// Save writes the current contents of every collection.
func (s *Snapshotter) Save(ctx context.Context) error {
	data, err := json.Marshal(s.set)
	if err != nil {
		metrics.SnapshotRuns.WithLabelValues("save", "error").Inc()
		return err
	}
	if err := s.blob.Put(ctx, s.key, data, "application/json"); err != nil {
		metrics.SnapshotRuns.WithLabelValues("save", "error").Inc()
		return err
	}
	metrics.SnapshotRuns.WithLabelValues("save", "ok").Inc()
	return nil
}

// Restore loads the last snapshot. A missing snapshot is not an error and
// leaves the set empty.
func (s *Snapshotter) Restore(ctx context.Context) error {
	data, err := s.blob.Get(ctx, s.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		metrics.SnapshotRuns.WithLabelValues("restore", "missing").Inc()
		return nil
	}
	if err != nil {
		metrics.SnapshotRuns.WithLabelValues("restore", "error").Inc()
		return err
	}
	if err := json.Unmarshal(data, s.set); err != nil {
		metrics.SnapshotRuns.WithLabelValues("restore", "error").Inc()
		return err
	}
	metrics.SnapshotRuns.WithLabelValues("restore", "ok").Inc()
	return nil
}

// Run saves a snapshot every interval until ctx is cancelled.
func (s *Snapshotter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Save(ctx); err != nil {
				logger.Warnf("snapshot save failed: %v", err)
			}
		}
	}
}
