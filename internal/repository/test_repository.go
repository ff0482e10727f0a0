package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dline-edu/prova-backend/internal/model"
)

// TestRepository handles test and question data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// Create inserts a test together with its questions in one transaction.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tests (title, subject, duration_minutes)
		 VALUES ($1, $2, $3)
		 RETURNING id, results_declared, created_at`,
		t.Title, t.Subject, t.DurationMinutes,
	).Scan(&t.ID, &t.ResultsDeclared, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}

	for i := range t.Questions {
		q := &t.Questions[i]
		q.TestID = t.ID
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (test_id, question_text, options, correct_answer, explanation, order_num)
			 VALUES ($1, $2, $3::jsonb, $4, $5, $6)
			 RETURNING id`,
			q.TestID, q.QuestionText, opts, q.CorrectAnswer, q.Explanation, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a test with its questions ordered by order_num.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, subject, duration_minutes, results_declared, created_at
		 FROM tests
		 WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Subject, &t.DurationMinutes, &t.ResultsDeclared, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, question_text, options, correct_answer, COALESCE(explanation, ''), order_num
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY order_num ASC, id ASC`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		var opts []byte
		if err := rows.Scan(&q.ID, &q.TestID, &q.QuestionText, &opts, &q.CorrectAnswer, &q.Explanation, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opts, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		t.Questions = append(t.Questions, q)
	}
	return t, rows.Err()
}

// List retrieves tests without questions, newest first, with pagination.
func (r *TestRepository) List(ctx context.Context, page, perPage int) ([]model.Test, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, subject, duration_minutes, results_declared, created_at
		 FROM tests
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Subject, &t.DurationMinutes, &t.ResultsDeclared, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// SetResultsDeclared toggles the results gate for a test.
func (r *TestRepository) SetResultsDeclared(ctx context.Context, id uuid.UUID, declared bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET results_declared = $1 WHERE id = $2`, declared, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("test %s: no rows updated", id)
	}
	return nil
}

// Delete removes a test and its questions (cascade in schema).
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}
