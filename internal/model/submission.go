package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerTrace is the per-question grading record embedded in a submission.
// Selected is nil when the student left the question unanswered.
type AnswerTrace struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Selected      *int      `json:"selected"`
	CorrectAnswer int       `json:"correct_answer"`
	CorrectText   string    `json:"correct_text"`
	Correct       bool      `json:"correct"`
	Explanation   string    `json:"explanation,omitempty"`
}

// Grade is the pure scoring result before persistence.
type Grade struct {
	Score          float64       `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	CorrectCount   int           `json:"correct_count"`
	WrongCount     int           `json:"wrong_count"`
	Answers        []AnswerTrace `json:"answers"`
}

// Submission is the immutable record of one graded attempt.
type Submission struct {
	ID             uuid.UUID     `json:"id"`
	TestID         uuid.UUID     `json:"test_id"`
	UserEmail      string        `json:"user_email"`
	UserName       string        `json:"user_name"`
	Score          float64       `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	CorrectCount   int           `json:"correct_count"`
	WrongCount     int           `json:"wrong_count"`
	Answers        []AnswerTrace `json:"answers"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

// SubmitRequest is the payload for submitting a test. Answers is an
// ordered slice aligned with question order; a null slot means the
// question was left unanswered.
type SubmitRequest struct {
	Answers []*int `json:"answers" binding:"required"`
}

// SubmitResponse is returned to the student after grading.
type SubmitResponse struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Score        float64   `json:"score"`
	CorrectCount int       `json:"correct_count"`
	WrongCount   int       `json:"wrong_count"`
}
