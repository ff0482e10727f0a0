package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusOpen      SessionStatus = "OPEN"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusAbandoned SessionStatus = "ABANDONED"
)

// ExamSession marks one proctored exam attempt. It is created when the
// student passes the identity check and closed by submission or
// abandonment.
type ExamSession struct {
	ID               uuid.UUID     `json:"id"`
	TestID           uuid.UUID     `json:"test_id"`
	UserEmail        string        `json:"user_email"`
	UserName         string        `json:"user_name"`
	IdentityPhotoURL string        `json:"identity_photo_url"`
	Status           SessionStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
}
