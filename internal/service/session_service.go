package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/config"
	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/storage"
)

// ErrPhotoRequired is returned when a session is started without an
// identity photo.
var ErrPhotoRequired = errors.New("identity photo required")

// sessionStore is the exam session log.
type sessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetLatestByPair(ctx context.Context, testID uuid.UUID, email string) (*model.ExamSession, error)
	CloseOpen(ctx context.Context, testID uuid.UUID, email string, status model.SessionStatus) error
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.ExamSession, error)
}

// photoRecorder stores a user's identity photo reference on the profile.
type photoRecorder interface {
	SetPhotoURL(ctx context.Context, email, url string) error
}

// SessionService opens and closes proctored exam attempts. The identity
// photo goes through the same two-phase protocol as evidence: blob first,
// session row second.
type SessionService struct {
	sessions sessionStore
	users    photoRecorder
	blobs    storage.BlobStore
	journal  storage.OrphanJournal
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions sessionStore,
	users photoRecorder,
	blobs storage.BlobStore,
	journal storage.OrphanJournal,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		blobs:    blobs,
		journal:  journal,
		cfg:      cfg,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Start opens an exam session after the identity check. Starting while a
// session is already open returns the existing session unchanged, so a
// page refresh does not burn a new attempt or a second photo upload.
func (s *SessionService) Start(ctx context.Context, testID uuid.UUID, email, name string, photo []byte, startedAt time.Time) (*model.ExamSession, error) {
	if len(photo) == 0 {
		return nil, ErrPhotoRequired
	}
	if int64(len(photo)) > s.cfg.MaxSnapshotBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(photo), s.cfg.MaxSnapshotBytes)
	}

	contentType := http.DetectContentType(photo)
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}

	existing, err := s.sessions.GetLatestByPair(ctx, testID, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if existing != nil && existing.Status == model.SessionStatusOpen {
		return existing, nil
	}

	object := storage.IdentityObject(email, ext)
	url, err := s.blobs.Put(ctx, object, photo, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	session := &model.ExamSession{
		TestID:           testID,
		UserEmail:        email,
		UserName:         name,
		IdentityPhotoURL: url,
		Status:           model.SessionStatusOpen,
	}
	if !startedAt.IsZero() {
		session.StartedAt = startedAt
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if jerr := s.journal.Record(ctx, object); jerr != nil {
			s.log.Error().Err(jerr).Str("object", object).Msg("Failed to journal orphaned blob")
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	// Keep the latest identity photo on the profile for the review UI.
	// Best effort: the session row already carries the reference.
	if err := s.users.SetPhotoURL(ctx, email, url); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("Failed to record profile photo")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("test_id", testID.String()).
		Str("email", email).
		Msg("Exam session opened")

	return session, nil
}

// Abandon closes the open session for a pair without a submission.
func (s *SessionService) Abandon(ctx context.Context, testID uuid.UUID, email string) error {
	if err := s.sessions.CloseOpen(ctx, testID, email, model.SessionStatusAbandoned); err != nil {
		return fmt.Errorf("abandon session: %w", err)
	}
	return nil
}

// GetLatest returns the most recent session for a pair, or nil when the
// pair never opened one.
func (s *SessionService) GetLatest(ctx context.Context, testID uuid.UUID, email string) (*model.ExamSession, error) {
	sess, err := s.sessions.GetLatestByPair(ctx, testID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListByTest returns all sessions recorded for a test, newest first.
func (s *SessionService) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.ExamSession, error) {
	sessions, err := s.sessions.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}
	return sessions, nil
}
