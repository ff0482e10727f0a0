package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dline-edu/prova-backend/internal/model"
)

// SubmissionRepository handles graded submission data access. Submissions
// are append-only; there is no update or delete path.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a submission. When allowRetake is false the insert is
// conditional on no prior submission for the (test, user) pair and returns
// ErrDuplicate if one exists.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission, allowRetake bool) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	if allowRetake {
		return r.pool.QueryRow(ctx,
			`INSERT INTO submissions
			   (test_id, user_email, user_name, score, total_questions, correct_count, wrong_count, answers)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
			 RETURNING id, submitted_at`,
			s.TestID, s.UserEmail, s.UserName, s.Score, s.TotalQuestions, s.CorrectCount, s.WrongCount, answers,
		).Scan(&s.ID, &s.SubmittedAt)
	}

	// Conditional insert: the WHERE NOT EXISTS guard makes the
	// check-and-insert a single statement, so two concurrent submits
	// cannot both succeed.
	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions
		   (test_id, user_email, user_name, score, total_questions, correct_count, wrong_count, answers)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8::jsonb
		 WHERE NOT EXISTS (
		   SELECT 1 FROM submissions WHERE test_id = $1 AND user_email = $2
		 )
		 RETURNING id, submitted_at`,
		s.TestID, s.UserEmail, s.UserName, s.Score, s.TotalQuestions, s.CorrectCount, s.WrongCount, answers,
	).Scan(&s.ID, &s.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByTestAndEmail retrieves the most recent submission for a pair.
func (r *SubmissionRepository) GetByTestAndEmail(ctx context.Context, testID uuid.UUID, email string) (*model.Submission, error) {
	s := &model.Submission{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_email, user_name, score, total_questions, correct_count, wrong_count, answers, submitted_at
		 FROM submissions
		 WHERE test_id = $1 AND user_email = $2
		 ORDER BY submitted_at DESC
		 LIMIT 1`, testID, email,
	).Scan(&s.ID, &s.TestID, &s.UserEmail, &s.UserName, &s.Score, &s.TotalQuestions, &s.CorrectCount, &s.WrongCount, &answers, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return s, nil
}

// ListByTest retrieves all submissions for a test, newest first, with
// pagination. The per-question traces are included.
func (r *SubmissionRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]model.Submission, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE test_id = $1`, testID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, user_email, user_name, score, total_questions, correct_count, wrong_count, answers, submitted_at
		 FROM submissions
		 WHERE test_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2 OFFSET $3`, testID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		var answers []byte
		if err := rows.Scan(&s.ID, &s.TestID, &s.UserEmail, &s.UserName, &s.Score, &s.TotalQuestions, &s.CorrectCount, &s.WrongCount, &answers, &s.SubmittedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, 0, fmt.Errorf("unmarshal answers: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}
