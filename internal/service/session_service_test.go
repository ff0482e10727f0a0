package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/config"
	"github.com/dline-edu/prova-backend/internal/model"
)

type fakeSessionStore struct {
	sessions  []*model.ExamSession
	createErr error
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = uuid.New()
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeSessionStore) GetLatestByPair(_ context.Context, testID uuid.UUID, email string) (*model.ExamSession, error) {
	for i := len(f.sessions) - 1; i >= 0; i-- {
		s := f.sessions[i]
		if s.TestID == testID && s.UserEmail == email {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSessionStore) CloseOpen(_ context.Context, testID uuid.UUID, email string, status model.SessionStatus) error {
	now := time.Now()
	for _, s := range f.sessions {
		if s.TestID == testID && s.UserEmail == email && s.Status == model.SessionStatusOpen {
			s.Status = status
			s.ClosedAt = &now
		}
	}
	return nil
}

func (f *fakeSessionStore) ListByTest(_ context.Context, testID uuid.UUID) ([]model.ExamSession, error) {
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.TestID == testID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakePhotoRecorder struct {
	urls map[string]string
}

func (f *fakePhotoRecorder) SetPhotoURL(_ context.Context, email, url string) error {
	if f.urls == nil {
		f.urls = make(map[string]string)
	}
	f.urls[email] = url
	return nil
}

type sessionFixture struct {
	svc     *SessionService
	store   *fakeSessionStore
	users   *fakePhotoRecorder
	blobs   *fakeBlobStore
	journal *fakeJournal
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		store:   &fakeSessionStore{},
		users:   &fakePhotoRecorder{},
		blobs:   newFakeBlobStore(),
		journal: &fakeJournal{},
	}
	cfg := &config.Config{MaxSnapshotBytes: 1 << 20}
	f.svc = NewSessionService(f.store, f.users, f.blobs, f.journal, cfg, zerolog.Nop())
	return f
}

func TestStartSession(t *testing.T) {
	f := newSessionFixture()
	testID := uuid.New()

	sess, err := f.svc.Start(context.Background(), testID, "s@example.com", "Student", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Status != model.SessionStatusOpen {
		t.Errorf("status = %q, want OPEN", sess.Status)
	}
	if !strings.Contains(sess.IdentityPhotoURL, "identity/s_example_com_") {
		t.Errorf("identity photo URL = %q", sess.IdentityPhotoURL)
	}
	if f.users.urls["s@example.com"] == "" {
		t.Error("profile photo URL not recorded")
	}
}

func TestStartSessionKeepsClientTimestamp(t *testing.T) {
	f := newSessionFixture()
	testID := uuid.New()
	startedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	sess, err := f.svc.Start(context.Background(), testID, "s@example.com", "Student", pngBytes, startedAt)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sess.StartedAt.Equal(startedAt) {
		t.Errorf("started at = %v, want %v", sess.StartedAt, startedAt)
	}
}

func TestStartSessionIdempotentWhileOpen(t *testing.T) {
	f := newSessionFixture()
	testID := uuid.New()
	ctx := context.Background()

	first, err := f.svc.Start(ctx, testID, "s@example.com", "Student", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := f.svc.Start(ctx, testID, "s@example.com", "Student", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second start created a new session")
	}
	// The refresh must not upload a second identity photo.
	if len(f.blobs.objects) != 1 {
		t.Errorf("blob count = %d, want 1", len(f.blobs.objects))
	}
}

func TestStartSessionRequiresPhoto(t *testing.T) {
	f := newSessionFixture()

	_, err := f.svc.Start(context.Background(), uuid.New(), "s@example.com", "Student", nil, time.Time{})
	if !errors.Is(err, ErrPhotoRequired) {
		t.Fatalf("err = %v, want ErrPhotoRequired", err)
	}
}

func TestStartSessionPersistFailureJournalsOrphan(t *testing.T) {
	f := newSessionFixture()
	f.store.createErr = errors.New("db down")

	_, err := f.svc.Start(context.Background(), uuid.New(), "s@example.com", "Student", pngBytes, time.Time{})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	if len(f.journal.entries) != 1 {
		t.Errorf("journal entries = %d, want 1", len(f.journal.entries))
	}
}

func TestAbandonThenStartOpensNewSession(t *testing.T) {
	f := newSessionFixture()
	testID := uuid.New()
	ctx := context.Background()

	first, err := f.svc.Start(ctx, testID, "s@example.com", "Student", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.svc.Abandon(ctx, testID, "s@example.com"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	latest, err := f.svc.GetLatest(ctx, testID, "s@example.com")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.Status != model.SessionStatusAbandoned {
		t.Errorf("status = %q, want ABANDONED", latest.Status)
	}
	if latest.ClosedAt == nil {
		t.Error("closed_at not set")
	}

	second, err := f.svc.Start(ctx, testID, "s@example.com", "Student", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if second.ID == first.ID {
		t.Errorf("abandoned session was reused")
	}
}

func TestGetLatestNoSession(t *testing.T) {
	f := newSessionFixture()

	sess, err := f.svc.GetLatest(context.Background(), uuid.New(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}
