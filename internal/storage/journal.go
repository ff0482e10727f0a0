package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dline-edu/prova-backend/internal/config"
)

// OrphanEntry records a blob whose metadata write failed after a
// successful upload.
type OrphanEntry struct {
	Object   string `json:"object"`
	QueuedAt int64  `json:"queued_at"`
}

// OrphanJournal records orphaned blobs for out-of-band reconciliation.
type OrphanJournal interface {
	Record(ctx context.Context, objectName string) error
}

// RedisOrphanJournal pushes orphan entries onto a Redis queue consumed by
// the orphan worker.
type RedisOrphanJournal struct {
	rdb *redis.Client
}

// NewRedisOrphanJournal creates a Redis-backed orphan journal.
func NewRedisOrphanJournal(rdb *redis.Client) *RedisOrphanJournal {
	return &RedisOrphanJournal{rdb: rdb}
}

// Record enqueues the object name. Failures here are reported to the
// caller but must not fail the ingest request; the blob is already an
// orphan either way.
func (j *RedisOrphanJournal) Record(ctx context.Context, objectName string) error {
	raw, err := json.Marshal(OrphanEntry{
		Object:   objectName,
		QueuedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return j.rdb.RPush(ctx, config.WorkerKey.OrphanBlobQueue, raw).Err()
}
