package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/config"
	"github.com/dline-edu/prova-backend/internal/storage"
)

const (
	// GracePeriod holds entries back so a slow metadata write that
	// eventually lands is never raced by the deleter.
	GracePeriod = 5 * time.Minute

	BatchSize    = 50
	BatchTimeout = 30 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// referenceChecker reports whether any metadata row still points at a
// blob URL.
type referenceChecker interface {
	IsBlobReferenced(ctx context.Context, url string) (bool, error)
}

// OrphanWorker reconciles blobs whose metadata write failed after the
// upload succeeded. Ingest journals the object name to a Redis queue;
// this worker drains it, waits out a grace period, re-checks the
// database and deletes blobs nothing references.
type OrphanWorker struct {
	rdb   *redis.Client
	blobs storage.BlobStore
	refs  referenceChecker
	log   zerolog.Logger
}

func NewOrphanWorker(rdb *redis.Client, blobs storage.BlobStore, refs referenceChecker, log zerolog.Logger) *OrphanWorker {
	return &OrphanWorker{
		rdb:   rdb,
		blobs: blobs,
		refs:  refs,
		log:   log.With().Str("component", "orphan_worker").Logger(),
	}
}

func (w *OrphanWorker) Start(ctx context.Context) {
	w.log.Info().Msg("OrphanWorker started")

	buffer := make([]*storage.OrphanEntry, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check Flush Conditions (Time or Size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				buffer = w.flush(ctx, buffer)
				lastFlushTime = time.Now()
			}
		}

		// 2. Check Context (Graceful Shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
			// Continue
		}

		// 3. Fetch from Redis
		// BLPop blocks for 1 second. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.OrphanBlobQueue).Result()

		if err != nil {
			if err == redis.Nil {
				continue // Timeout (Queue empty), loop back to check flush timer
			}
			if ctx.Err() != nil {
				return // Context cancelled
			}
			// Real Redis error (e.g., connection lost)
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process Data
		if len(result) < 2 {
			continue
		}

		var entry storage.OrphanEntry
		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &entry)
	}
}

// flush processes entries past their grace period and returns the rest
// as the new buffer.
func (w *OrphanWorker) flush(ctx context.Context, batch []*storage.OrphanEntry) []*storage.OrphanEntry {
	cutoff := time.Now().Add(-GracePeriod).Unix()

	held := make([]*storage.OrphanEntry, 0, len(batch))
	requeueList := make([]*storage.OrphanEntry, 0)

	for _, entry := range batch {
		if entry.QueuedAt > cutoff {
			held = append(held, entry)
			continue
		}
		if err := w.reconcile(ctx, entry); err != nil {
			w.log.Error().Err(err).Str("object", entry.Object).Msg("Reconcile failed, requeueing")
			requeueList = append(requeueList, entry)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}

	return held
}

// reconcile deletes the blob unless a metadata row turned up after all.
func (w *OrphanWorker) reconcile(ctx context.Context, entry *storage.OrphanEntry) error {
	url := w.blobs.URL(entry.Object)

	referenced, err := w.refs.IsBlobReferenced(ctx, url)
	if err != nil {
		return err
	}
	if referenced {
		// The write recovered; the blob is not an orphan.
		w.log.Info().Str("object", entry.Object).Msg("Blob is referenced, skipping delete")
		return nil
	}

	if err := w.blobs.Remove(ctx, entry.Object); err != nil {
		return err
	}

	w.log.Info().Str("object", entry.Object).Msg("Deleted orphaned blob")
	return nil
}

func (w *OrphanWorker) requeue(ctx context.Context, items []*storage.OrphanEntry) {
	// Use a pipeline to push everything back quickly
	pipe := w.rdb.Pipeline()
	for _, entry := range items {
		data, _ := json.Marshal(entry)
		pipe.RPush(ctx, config.WorkerKey.OrphanBlobQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Sleep a bit to avoid thrashing if storage is down hard
		time.Sleep(2 * time.Second)
	}
}

func (w *OrphanWorker) shutdown(buffer []*storage.OrphanEntry) {
	w.log.Info().Msg("Worker stopping, requeueing remaining buffer...")

	// Entries still inside their grace period go back to Redis so a
	// restart picks them up instead of losing them.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.requeue(shutdownCtx, buffer)
	}
}
