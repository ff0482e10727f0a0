package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents an exam paper.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	DurationMinutes int        `json:"duration_minutes"`
	ResultsDeclared bool       `json:"results_declared"`
	CreatedAt       time.Time  `json:"created_at"`
	Questions       []Question `json:"questions,omitempty"`
}

// Question is a single multiple-choice question. CorrectAnswer is a
// zero-based index into Options; the service validates the bound at write
// time and the schema carries a CHECK for it.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correct_answer"`
	Explanation   string    `json:"explanation,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// QuestionInput is the payload shape for one question when creating a test.
type QuestionInput struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=10,dive,required,max=500"`
	CorrectAnswer *int     `json:"correct_answer" binding:"required,min=0"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=2000"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title           string          `json:"title" binding:"required,min=3,max=255"`
	Subject         string          `json:"subject" binding:"required,min=2,max=100"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

// TestPaper is the student-facing view of a test: no correct answers, no
// explanations.
type TestPaper struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Subject         string          `json:"subject"`
	DurationMinutes int             `json:"duration_minutes"`
	Questions       []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question as shown to a student during the exam.
type PaperQuestion struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	OrderNum     int       `json:"order_num"`
}

// Paper derives the student-facing view from a fully loaded test.
func (t *Test) Paper() *TestPaper {
	paper := &TestPaper{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		DurationMinutes: t.DurationMinutes,
		Questions:       make([]PaperQuestion, 0, len(t.Questions)),
	}
	for _, q := range t.Questions {
		paper.Questions = append(paper.Questions, PaperQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			OrderNum:     q.OrderNum,
		})
	}
	return paper
}
