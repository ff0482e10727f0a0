package model

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one webcam still captured during an attempt.
type Snapshot struct {
	ID         int64     `json:"id"`
	TestID     uuid.UUID `json:"test_id"`
	UserEmail  string    `json:"user_email"`
	ImageURL   string    `json:"image_url"`
	CapturedAt time.Time `json:"captured_at"`
}

// VideoChunk is one independently uploaded slice of the webcam recording.
// ChunkIndex is advisory ordering metadata supplied by the client; chunks
// may arrive and persist out of order.
type VideoChunk struct {
	ID         int64     `json:"id"`
	TestID     uuid.UUID `json:"test_id"`
	UserEmail  string    `json:"user_email"`
	ChunkIndex int       `json:"chunk_index"`
	VideoURL   string    `json:"video_url"`
	CapturedAt time.Time `json:"captured_at"`
}

// VisibilityState is the page visibility reported by the client.
type VisibilityState string

const (
	VisibilityHidden  VisibilityState = "hidden"
	VisibilityVisible VisibilityState = "visible"
)

// VisibilityEvent records one tab visibility change. ClientSwitchCount is
// the client-reported running tally, stored verbatim; SwitchCount is the
// server-side tally recomputed at ingest.
type VisibilityEvent struct {
	ID                int64           `json:"id"`
	TestID            uuid.UUID       `json:"test_id"`
	UserEmail         string          `json:"user_email"`
	Event             VisibilityState `json:"event"`
	ClientSwitchCount int             `json:"client_switch_count"`
	SwitchCount       int64           `json:"switch_count"`
	CapturedAt        time.Time       `json:"captured_at"`
}

// ExamMedia is the admin review timeline for one (test, student) pair.
// Both slices are ordered by ascending capture time and are empty, never
// nil, when no evidence exists.
type ExamMedia struct {
	Snapshots []Snapshot `json:"snapshots"`
	VideoURLs []string   `json:"video_urls"`
}

// VisibilityReport aggregates the visibility timeline for review.
type VisibilityReport struct {
	Events      []VisibilityEvent `json:"events"`
	SwitchCount int64             `json:"switch_count"`
}

// IngestSnapshotRequest is the payload for a webcam snapshot. Snapshot is
// base64-encoded image bytes. Timestamp is unix milliseconds; zero means
// "use server time".
type IngestSnapshotRequest struct {
	TestID    uuid.UUID `json:"test_id" binding:"required"`
	Snapshot  string    `json:"snapshot" binding:"required"`
	Timestamp int64     `json:"timestamp" binding:"omitempty,min=0"`
}

// IngestVisibilityRequest is the payload for a tab visibility change.
type IngestVisibilityRequest struct {
	TestID      uuid.UUID `json:"test_id" binding:"required"`
	Event       string    `json:"event" binding:"required,oneof=hidden visible"`
	SwitchCount int       `json:"switch_count" binding:"min=0"`
	Timestamp   int64     `json:"timestamp" binding:"omitempty,min=0"`
}
