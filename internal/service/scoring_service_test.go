package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/repository"
)

func intPtr(v int) *int { return &v }

func twoQuestionTest() *model.Test {
	return &model.Test{
		ID:    uuid.New(),
		Title: "Basics",
		Questions: []model.Question{
			{
				ID:            uuid.New(),
				QuestionText:  "Q1",
				Options:       []string{"a", "b", "c"},
				CorrectAnswer: 0,
				Explanation:   "first option",
			},
			{
				ID:            uuid.New(),
				QuestionText:  "Q2",
				Options:       []string{"x", "y"},
				CorrectAnswer: 0,
			},
		},
	}
}

func TestGrade(t *testing.T) {
	test := twoQuestionTest()

	// First answer correct, second wrong.
	g, err := Grade(test, []*int{intPtr(0), intPtr(1)})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if g.Score != 50 {
		t.Errorf("score = %v, want 50", g.Score)
	}
	if g.CorrectCount != 1 || g.WrongCount != 1 {
		t.Errorf("correct/wrong = %d/%d, want 1/1", g.CorrectCount, g.WrongCount)
	}
	if g.TotalQuestions != 2 {
		t.Errorf("total = %d, want 2", g.TotalQuestions)
	}
	if !g.Answers[0].Correct || g.Answers[1].Correct {
		t.Errorf("trace correctness = %v/%v, want true/false", g.Answers[0].Correct, g.Answers[1].Correct)
	}
	if g.Answers[0].CorrectText != "a" {
		t.Errorf("correct text = %q, want %q", g.Answers[0].CorrectText, "a")
	}
}

func TestGradeEmptyTest(t *testing.T) {
	empty := &model.Test{ID: uuid.New(), Title: "Empty"}
	if _, err := Grade(empty, nil); !errors.Is(err, ErrEmptyTest) {
		t.Fatalf("err = %v, want ErrEmptyTest", err)
	}
}

func TestGradeMissingAnswers(t *testing.T) {
	test := twoQuestionTest()

	cases := []struct {
		name    string
		answers []*int
		correct int
	}{
		{"all nil slots", []*int{nil, nil}, 0},
		{"short slice", []*int{intPtr(0)}, 1},
		{"empty slice", []*int{}, 0},
		{"index outside options", []*int{intPtr(7), intPtr(0)}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Grade(test, tc.answers)
			if err != nil {
				t.Fatalf("Grade: %v", err)
			}
			if g.CorrectCount != tc.correct {
				t.Errorf("correct = %d, want %d", g.CorrectCount, tc.correct)
			}
			if g.CorrectCount+g.WrongCount != g.TotalQuestions {
				t.Errorf("correct+wrong = %d, want %d", g.CorrectCount+g.WrongCount, g.TotalQuestions)
			}
			if len(g.Answers) != len(test.Questions) {
				t.Errorf("trace length = %d, want %d", len(g.Answers), len(test.Questions))
			}
		})
	}
}

func TestGradeTooManyAnswers(t *testing.T) {
	test := twoQuestionTest()
	if _, err := Grade(test, []*int{intPtr(0), intPtr(0), intPtr(0)}); !errors.Is(err, ErrTooManyAnswers) {
		t.Fatalf("err = %v, want ErrTooManyAnswers", err)
	}
}

func TestGradeIsPure(t *testing.T) {
	test := twoQuestionTest()

	first, err := Grade(test, []*int{intPtr(0), nil})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	second, err := Grade(test, []*int{intPtr(0), nil})
	if err != nil {
		t.Fatalf("Grade second run: %v", err)
	}
	if first.Score != second.Score || first.CorrectCount != second.CorrectCount {
		t.Errorf("repeated grading diverged: %v vs %v", first, second)
	}
	if len(test.Questions) != 2 {
		t.Errorf("grading mutated the test: %d questions", len(test.Questions))
	}
}

// ─── Submit path fakes ──────────────────────────────────────────────────

type fakeTestGetter struct {
	test *model.Test
}

func (f *fakeTestGetter) GetByID(_ context.Context, _ uuid.UUID) (*model.Test, error) {
	return f.test, nil
}

type fakeSubmissionStore struct {
	created   []*model.Submission
	createErr error
}

func (f *fakeSubmissionStore) Create(_ context.Context, s *model.Submission, _ bool) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = uuid.New()
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSubmissionStore) GetByTestAndEmail(_ context.Context, _ uuid.UUID, _ string) (*model.Submission, error) {
	if len(f.created) == 0 {
		return nil, errors.New("not found")
	}
	return f.created[len(f.created)-1], nil
}

func (f *fakeSubmissionStore) ListByTest(_ context.Context, _ uuid.UUID, _, _ int) ([]model.Submission, int64, error) {
	out := make([]model.Submission, 0, len(f.created))
	for _, s := range f.created {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

type fakeSessionCloser struct {
	closedWith model.SessionStatus
	calls      int
}

func (f *fakeSessionCloser) CloseOpen(_ context.Context, _ uuid.UUID, _ string, status model.SessionStatus) error {
	f.closedWith = status
	f.calls++
	return nil
}

type fakeUserFlagger struct {
	flagged []string
}

func (f *fakeUserFlagger) MarkTestsTaken(_ context.Context, email string) error {
	f.flagged = append(f.flagged, email)
	return nil
}

func newScoringFixture(test *model.Test, allowRetake bool) (*ScoringService, *fakeSubmissionStore, *fakeSessionCloser, *fakeUserFlagger) {
	subs := &fakeSubmissionStore{}
	sessions := &fakeSessionCloser{}
	users := &fakeUserFlagger{}
	svc := NewScoringService(&fakeTestGetter{test: test}, subs, sessions, users, allowRetake, zerolog.Nop())
	return svc, subs, sessions, users
}

func TestSubmitPersistsAndClosesSession(t *testing.T) {
	test := twoQuestionTest()
	svc, subs, sessions, users := newScoringFixture(test, false)

	sub, err := svc.Submit(context.Background(), test.ID, "s@example.com", "Student", []*int{intPtr(0), intPtr(0)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Score != 100 {
		t.Errorf("score = %v, want 100", sub.Score)
	}
	if len(subs.created) != 1 {
		t.Fatalf("submissions created = %d, want 1", len(subs.created))
	}
	if sessions.closedWith != model.SessionStatusSubmitted {
		t.Errorf("session closed with %q, want %q", sessions.closedWith, model.SessionStatusSubmitted)
	}
	if len(users.flagged) != 1 || users.flagged[0] != "s@example.com" {
		t.Errorf("tests_taken flagged = %v", users.flagged)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	test := twoQuestionTest()
	svc, subs, _, _ := newScoringFixture(test, false)
	subs.createErr = repository.ErrDuplicate

	_, err := svc.Submit(context.Background(), test.ID, "s@example.com", "Student", []*int{intPtr(0), intPtr(0)})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitEmptyTest(t *testing.T) {
	empty := &model.Test{ID: uuid.New(), Title: "Empty"}
	svc, subs, sessions, _ := newScoringFixture(empty, false)

	_, err := svc.Submit(context.Background(), empty.ID, "s@example.com", "Student", nil)
	if !errors.Is(err, ErrEmptyTest) {
		t.Fatalf("err = %v, want ErrEmptyTest", err)
	}
	if len(subs.created) != 0 {
		t.Errorf("submission persisted for empty test")
	}
	if sessions.calls != 0 {
		t.Errorf("session closed despite rejected submit")
	}
}

func TestResultGatedOnDeclaration(t *testing.T) {
	test := twoQuestionTest()
	svc, _, _, _ := newScoringFixture(test, false)

	if _, err := svc.Submit(context.Background(), test.ID, "s@example.com", "Student", []*int{intPtr(0), nil}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.Result(context.Background(), test.ID, "s@example.com"); !errors.Is(err, ErrResultsNotDeclared) {
		t.Fatalf("err = %v, want ErrResultsNotDeclared", err)
	}

	test.ResultsDeclared = true
	sub, err := svc.Result(context.Background(), test.ID, "s@example.com")
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if sub.Score != 50 {
		t.Errorf("score = %v, want 50", sub.Score)
	}
}
