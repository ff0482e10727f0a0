package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dline-edu/prova-backend/internal/model"
)

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new OPEN session. A zero StartedAt falls back to
// server time; a caller-supplied value is stored as given.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (test_id, user_email, user_name, identity_photo_url, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.TestID, s.UserEmail, s.UserName, s.IdentityPhotoURL, model.SessionStatusOpen, s.StartedAt,
	).Scan(&s.ID)
}

// GetLatestByPair retrieves the most recent session for a (test, user)
// pair. Returns pgx.ErrNoRows when the pair never started a session.
func (r *ExamSessionRepository) GetLatestByPair(ctx context.Context, testID uuid.UUID, email string) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_email, user_name, identity_photo_url, status, started_at, closed_at
		 FROM exam_sessions
		 WHERE test_id = $1 AND user_email = $2
		 ORDER BY started_at DESC
		 LIMIT 1`, testID, email,
	).Scan(&s.ID, &s.TestID, &s.UserEmail, &s.UserName, &s.IdentityPhotoURL, &s.Status, &s.StartedAt, &s.ClosedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CloseOpen transitions the open session for a pair to the given terminal
// status. Closing when no open session exists is a no-op.
func (r *ExamSessionRepository) CloseOpen(ctx context.Context, testID uuid.UUID, email string, status model.SessionStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, closed_at = $2
		 WHERE test_id = $3 AND user_email = $4 AND status = $5`,
		status, time.Now(), testID, email, model.SessionStatusOpen)
	return err
}

// ListByTest retrieves all sessions for a test ordered by start time.
func (r *ExamSessionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, user_email, user_name, identity_photo_url, status, started_at, closed_at
		 FROM exam_sessions
		 WHERE test_id = $1
		 ORDER BY started_at ASC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.TestID, &s.UserEmail, &s.UserName, &s.IdentityPhotoURL, &s.Status, &s.StartedAt, &s.ClosedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
