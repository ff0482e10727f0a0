package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dline-edu/prova-backend/internal/model"
)

// EvidenceRepository handles the append-only proctoring evidence log.
// Rows are never updated or deleted; readers sort explicitly by capture
// time because insertion order carries no meaning.
type EvidenceRepository struct {
	pool *pgxpool.Pool
}

// NewEvidenceRepository creates a new EvidenceRepository.
func NewEvidenceRepository(pool *pgxpool.Pool) *EvidenceRepository {
	return &EvidenceRepository{pool: pool}
}

// InsertSnapshot appends a snapshot record.
func (r *EvidenceRepository) InsertSnapshot(ctx context.Context, s *model.Snapshot) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO snapshots (test_id, user_email, image_url, captured_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.TestID, s.UserEmail, s.ImageURL, s.CapturedAt,
	).Scan(&s.ID)
}

// InsertVideoChunk appends a video chunk record.
func (r *EvidenceRepository) InsertVideoChunk(ctx context.Context, c *model.VideoChunk) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO video_chunks (test_id, user_email, chunk_index, video_url, captured_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		c.TestID, c.UserEmail, c.ChunkIndex, c.VideoURL, c.CapturedAt,
	).Scan(&c.ID)
}

// InsertVisibilityEvent appends a visibility change record.
func (r *EvidenceRepository) InsertVisibilityEvent(ctx context.Context, e *model.VisibilityEvent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO visibility_events (test_id, user_email, event, client_switch_count, switch_count, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		e.TestID, e.UserEmail, e.Event, e.ClientSwitchCount, e.SwitchCount, e.CapturedAt,
	).Scan(&e.ID)
}

// ListSnapshots returns all snapshots for a pair, oldest first.
func (r *EvidenceRepository) ListSnapshots(ctx context.Context, testID uuid.UUID, email string) ([]model.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, user_email, image_url, captured_at
		 FROM snapshots
		 WHERE test_id = $1 AND user_email = $2
		 ORDER BY captured_at ASC, id ASC`, testID, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.TestID, &s.UserEmail, &s.ImageURL, &s.CapturedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// ListVideoChunks returns all video chunks for a pair, oldest first.
func (r *EvidenceRepository) ListVideoChunks(ctx context.Context, testID uuid.UUID, email string) ([]model.VideoChunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, user_email, chunk_index, video_url, captured_at
		 FROM video_chunks
		 WHERE test_id = $1 AND user_email = $2
		 ORDER BY captured_at ASC, id ASC`, testID, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.VideoChunk
	for rows.Next() {
		var c model.VideoChunk
		if err := rows.Scan(&c.ID, &c.TestID, &c.UserEmail, &c.ChunkIndex, &c.VideoURL, &c.CapturedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ListVisibilityEvents returns all visibility events for a pair, oldest
// first.
func (r *EvidenceRepository) ListVisibilityEvents(ctx context.Context, testID uuid.UUID, email string) ([]model.VisibilityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, user_email, event, client_switch_count, switch_count, captured_at
		 FROM visibility_events
		 WHERE test_id = $1 AND user_email = $2
		 ORDER BY captured_at ASC, id ASC`, testID, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.VisibilityEvent
	for rows.Next() {
		var e model.VisibilityEvent
		if err := rows.Scan(&e.ID, &e.TestID, &e.UserEmail, &e.Event, &e.ClientSwitchCount, &e.SwitchCount, &e.CapturedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// IsBlobReferenced reports whether any metadata row references the given
// media URL. Used by the orphan reconciler before deleting a blob.
func (r *EvidenceRepository) IsBlobReferenced(ctx context.Context, url string) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM snapshots WHERE image_url = $1)
		     OR EXISTS (SELECT 1 FROM video_chunks WHERE video_url = $1)
		     OR EXISTS (SELECT 1 FROM exam_sessions WHERE identity_photo_url = $1)`,
		url,
	).Scan(&referenced)
	return referenced, err
}
