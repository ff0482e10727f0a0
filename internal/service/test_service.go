package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/repository"
)

// Sentinel errors for test management.
var (
	ErrTestNotFound = errors.New("test not found")
	// ErrAnswerKeyBounds is returned when a question's correct answer index
	// does not point into its options. The upstream schema does not enforce
	// this, so it is validated here at write time.
	ErrAnswerKeyBounds = errors.New("correct answer index outside options")
)

// TestService handles test content management.
type TestService struct {
	repo *repository.TestRepository
	log  zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(repo *repository.TestRepository, log zerolog.Logger) *TestService {
	return &TestService{
		repo: repo,
		log:  log.With().Str("component", "test_service").Logger(),
	}
}

// Create validates and persists a new test with its questions.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:           req.Title,
		Subject:         req.Subject,
		DurationMinutes: req.DurationMinutes,
		Questions:       make([]model.Question, 0, len(req.Questions)),
	}

	for i, q := range req.Questions {
		if *q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d has %d options, correct answer %d",
				ErrAnswerKeyBounds, i, len(q.Options), *q.CorrectAnswer)
		}
		t.Questions = append(t.Questions, model.Question{
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: *q.CorrectAnswer,
			Explanation:   q.Explanation,
			OrderNum:      i,
		})
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}

	s.log.Info().
		Str("test_id", t.ID.String()).
		Int("questions", len(t.Questions)).
		Msg("Test created")

	return t, nil
}

// GetByID retrieves a test with questions.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}

// GetPaper retrieves the student-facing view of a test: questions without
// correct answers or explanations.
func (s *TestService) GetPaper(ctx context.Context, id uuid.UUID) (*model.TestPaper, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Paper(), nil
}

// List retrieves tests without questions, with pagination.
func (s *TestService) List(ctx context.Context, page, perPage int) ([]model.Test, int64, error) {
	return s.repo.List(ctx, page, perPage)
}

// DeclareResults opens or closes the results gate for a test.
func (s *TestService) DeclareResults(ctx context.Context, id uuid.UUID, declared bool) error {
	if err := s.repo.SetResultsDeclared(ctx, id, declared); err != nil {
		return fmt.Errorf("declare results: %w", err)
	}
	return nil
}

// Delete removes a test and its questions.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
