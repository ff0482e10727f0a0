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

// Sentinel errors for scoring.
var (
	// ErrEmptyTest guards the score division: a zero-question test cannot
	// be graded.
	ErrEmptyTest = errors.New("test has no questions")
	// ErrTooManyAnswers is returned when the answers slice is longer than
	// the test's question list.
	ErrTooManyAnswers     = errors.New("more answers than questions")
	ErrAlreadySubmitted   = errors.New("test already submitted")
	ErrResultsNotDeclared = errors.New("results not declared")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// testGetter loads a test with its questions.
type testGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// submissionStore persists and reads graded submissions.
type submissionStore interface {
	Create(ctx context.Context, s *model.Submission, allowRetake bool) error
	GetByTestAndEmail(ctx context.Context, testID uuid.UUID, email string) (*model.Submission, error)
	ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]model.Submission, int64, error)
}

// sessionCloser transitions the open exam session for a pair.
type sessionCloser interface {
	CloseOpen(ctx context.Context, testID uuid.UUID, email string, status model.SessionStatus) error
}

// userFlagger marks a user as having taken a test.
type userFlagger interface {
	MarkTestsTaken(ctx context.Context, email string) error
}

// ScoringService grades submissions against a test's answer key and
// records the result exactly once per submit action.
type ScoringService struct {
	tests       testGetter
	submissions submissionStore
	sessions    sessionCloser
	users       userFlagger
	allowRetake bool
	log         zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	tests testGetter,
	submissions submissionStore,
	sessions sessionCloser,
	users userFlagger,
	allowRetake bool,
	log zerolog.Logger,
) *ScoringService {
	return &ScoringService{
		tests:       tests,
		submissions: submissions,
		sessions:    sessions,
		users:       users,
		allowRetake: allowRetake,
		log:         log.With().Str("component", "scoring_service").Logger(),
	}
}

// Grade scores answers against the test's answer key. It is pure: no
// persistence, no mutation of the test. Answer slots align with question
// order; a nil slot, a short slice, or an index outside the question's
// options all grade as wrong.
func Grade(t *model.Test, answers []*int) (*model.Grade, error) {
	total := len(t.Questions)
	if total == 0 {
		return nil, ErrEmptyTest
	}
	if len(answers) > total {
		return nil, fmt.Errorf("%w: got %d, test has %d", ErrTooManyAnswers, len(answers), total)
	}

	g := &model.Grade{
		TotalQuestions: total,
		Answers:        make([]model.AnswerTrace, 0, total),
	}

	for i, q := range t.Questions {
		var selected *int
		if i < len(answers) {
			selected = answers[i]
		}

		correctText := ""
		if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) {
			correctText = q.Options[q.CorrectAnswer]
		}

		correct := selected != nil && *selected == q.CorrectAnswer
		if correct {
			g.CorrectCount++
		}

		g.Answers = append(g.Answers, model.AnswerTrace{
			QuestionID:    q.ID,
			Selected:      selected,
			CorrectAnswer: q.CorrectAnswer,
			CorrectText:   correctText,
			Correct:       correct,
			Explanation:   q.Explanation,
		})
	}

	g.WrongCount = total - g.CorrectCount
	g.Score = 100 * float64(g.CorrectCount) / float64(total)
	return g, nil
}

// Submit grades a student's answers and persists the submission. The
// submission is immutable once created; whether a second submit for the
// same pair succeeds is controlled by the retake flag.
func (s *ScoringService) Submit(ctx context.Context, testID uuid.UUID, email, name string, answers []*int) (*model.Submission, error) {
	t, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	g, err := Grade(t, answers)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		TestID:         testID,
		UserEmail:      email,
		UserName:       name,
		Score:          g.Score,
		TotalQuestions: g.TotalQuestions,
		CorrectCount:   g.CorrectCount,
		WrongCount:     g.WrongCount,
		Answers:        g.Answers,
	}

	if err := s.submissions.Create(ctx, sub, s.allowRetake); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}

	// Close the open proctoring session so late evidence is rejected.
	// Best effort: the submission is already durable.
	if err := s.sessions.CloseOpen(ctx, testID, email, model.SessionStatusSubmitted); err != nil {
		s.log.Warn().Err(err).
			Str("test_id", testID.String()).
			Str("email", email).
			Msg("Failed to close exam session after submit")
	}
	if err := s.users.MarkTestsTaken(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("Failed to flag tests_taken")
	}

	s.log.Info().
		Str("test_id", testID.String()).
		Str("email", email).
		Float64("score", sub.Score).
		Int("correct", sub.CorrectCount).
		Int("total", sub.TotalQuestions).
		Msg("Submission graded")

	return sub, nil
}

// Result returns the student's own submission, gated on the test's
// results_declared flag.
func (s *ScoringService) Result(ctx context.Context, testID uuid.UUID, email string) (*model.Submission, error) {
	t, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !t.ResultsDeclared {
		return nil, ErrResultsNotDeclared
	}

	sub, err := s.submissions.GetByTestAndEmail(ctx, testID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns all submissions for a test for admin review.
func (s *ScoringService) ListSubmissions(ctx context.Context, testID uuid.UUID, page, perPage int) ([]model.Submission, int64, error) {
	return s.submissions.ListByTest(ctx, testID, page, perPage)
}
