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

// pngBytes is a minimal payload sniffed as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeBlobStore struct {
	objects map[string][]byte
	putErr  error
	removed []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[objectName] = data
	return f.URL(objectName), nil
}

func (f *fakeBlobStore) Remove(_ context.Context, objectName string) error {
	delete(f.objects, objectName)
	f.removed = append(f.removed, objectName)
	return nil
}

func (f *fakeBlobStore) URL(objectName string) string {
	return "http://blobs.test/media/" + objectName
}

type fakeEvidenceStore struct {
	snapshots []model.Snapshot
	chunks    []model.VideoChunk
	events    []model.VisibilityEvent
	insertErr error
	nextRowID int64
}

func (f *fakeEvidenceStore) rowID() int64 {
	f.nextRowID++
	return f.nextRowID
}

func (f *fakeEvidenceStore) InsertSnapshot(_ context.Context, s *model.Snapshot) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	s.ID = f.rowID()
	f.snapshots = append(f.snapshots, *s)
	return nil
}

func (f *fakeEvidenceStore) InsertVideoChunk(_ context.Context, c *model.VideoChunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	c.ID = f.rowID()
	f.chunks = append(f.chunks, *c)
	return nil
}

func (f *fakeEvidenceStore) InsertVisibilityEvent(_ context.Context, e *model.VisibilityEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	e.ID = f.rowID()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEvidenceStore) ListSnapshots(_ context.Context, _ uuid.UUID, _ string) ([]model.Snapshot, error) {
	return f.snapshots, nil
}

func (f *fakeEvidenceStore) ListVideoChunks(_ context.Context, _ uuid.UUID, _ string) ([]model.VideoChunk, error) {
	return f.chunks, nil
}

func (f *fakeEvidenceStore) ListVisibilityEvents(_ context.Context, _ uuid.UUID, _ string) ([]model.VisibilityEvent, error) {
	return f.events, nil
}

type fakeSessionReader struct {
	session *model.ExamSession
}

func (f *fakeSessionReader) GetLatestByPair(_ context.Context, _ uuid.UUID, _ string) (*model.ExamSession, error) {
	if f.session == nil {
		return nil, pgx.ErrNoRows
	}
	return f.session, nil
}

type fakeJournal struct {
	entries []string
}

func (f *fakeJournal) Record(_ context.Context, objectName string) error {
	f.entries = append(f.entries, objectName)
	return nil
}

type fakeTally struct {
	count int64
}

func (f *fakeTally) Bump(_ context.Context, _ uuid.UUID, _ string) (int64, error) {
	f.count++
	return f.count, nil
}

func (f *fakeTally) Current(_ context.Context, _ uuid.UUID, _ string) (int64, error) {
	return f.count, nil
}

type proctorFixture struct {
	svc      *ProctorService
	blobs    *fakeBlobStore
	evidence *fakeEvidenceStore
	sessions *fakeSessionReader
	journal  *fakeJournal
	tally    *fakeTally
}

func newProctorFixture() *proctorFixture {
	f := &proctorFixture{
		blobs:    newFakeBlobStore(),
		evidence: &fakeEvidenceStore{},
		sessions: &fakeSessionReader{},
		journal:  &fakeJournal{},
		tally:    &fakeTally{},
	}
	cfg := &config.Config{
		MaxSnapshotBytes: 1 << 20,
		MaxChunkBytes:    1 << 20,
	}
	f.svc = NewProctorService(f.evidence, f.sessions, f.blobs, f.journal, f.tally, cfg, zerolog.Nop())
	return f
}

func TestIngestSnapshot(t *testing.T) {
	f := newProctorFixture()
	testID := uuid.New()

	snap, err := f.svc.IngestSnapshot(context.Background(), testID, "s@example.com", pngBytes, time.Time{})
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if snap.ImageURL == "" {
		t.Error("snapshot has no URL")
	}
	if !strings.Contains(snap.ImageURL, "snapshots/s_example_com/") {
		t.Errorf("unexpected object path in %q", snap.ImageURL)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("capture time not defaulted to server time")
	}
	if len(f.blobs.objects) != 1 {
		t.Errorf("blob count = %d, want 1", len(f.blobs.objects))
	}
	if len(f.evidence.snapshots) != 1 {
		t.Errorf("snapshot rows = %d, want 1", len(f.evidence.snapshots))
	}
}

func TestIngestSnapshotUploadFailure(t *testing.T) {
	f := newProctorFixture()
	f.blobs.putErr = errors.New("connection refused")

	_, err := f.svc.IngestSnapshot(context.Background(), uuid.New(), "s@example.com", pngBytes, time.Time{})
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
	// Phase one failed, so phase two must not have run.
	if len(f.evidence.snapshots) != 0 {
		t.Errorf("metadata row written despite failed upload")
	}
	if len(f.journal.entries) != 0 {
		t.Errorf("journal written despite no orphan")
	}
}

func TestIngestSnapshotPersistFailureJournalsOrphan(t *testing.T) {
	f := newProctorFixture()
	f.evidence.insertErr = errors.New("db down")

	_, err := f.svc.IngestSnapshot(context.Background(), uuid.New(), "s@example.com", pngBytes, time.Time{})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	// The blob exists and must be journalled for reconciliation.
	if len(f.blobs.objects) != 1 {
		t.Fatalf("blob count = %d, want 1", len(f.blobs.objects))
	}
	if len(f.journal.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(f.journal.entries))
	}
	for object := range f.blobs.objects {
		if f.journal.entries[0] != object {
			t.Errorf("journalled %q, blob is %q", f.journal.entries[0], object)
		}
	}
}

func TestIngestSnapshotRejectsNonImage(t *testing.T) {
	f := newProctorFixture()

	_, err := f.svc.IngestSnapshot(context.Background(), uuid.New(), "s@example.com", []byte("%PDF-1.4 not an image"), time.Time{})
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("err = %v, want ErrUnsupportedFileType", err)
	}
	if len(f.blobs.objects) != 0 {
		t.Errorf("rejected payload was uploaded")
	}
}

func TestIngestSnapshotRejectsClosedSession(t *testing.T) {
	f := newProctorFixture()
	f.sessions.session = &model.ExamSession{Status: model.SessionStatusSubmitted}

	_, err := f.svc.IngestSnapshot(context.Background(), uuid.New(), "s@example.com", pngBytes, time.Time{})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestIngestVideoChunkSizeCeiling(t *testing.T) {
	f := newProctorFixture()

	big := make([]byte, (1<<20)+1)
	_, err := f.svc.IngestVideoChunk(context.Background(), uuid.New(), "s@example.com", 0, big, "video/webm", time.Time{})
	if !errors.Is(err, ErrChunkTooLarge) {
		t.Fatalf("err = %v, want ErrChunkTooLarge", err)
	}
	// The ceiling is checked before the upload.
	if len(f.blobs.objects) != 0 {
		t.Errorf("oversized chunk was uploaded")
	}
}

func TestIngestVideoChunksOutOfOrder(t *testing.T) {
	f := newProctorFixture()
	testID := uuid.New()

	for _, idx := range []int{2, 0, 1} {
		if _, err := f.svc.IngestVideoChunk(context.Background(), testID, "s@example.com", idx, []byte("webm data"), "", time.Time{}); err != nil {
			t.Fatalf("chunk %d: %v", idx, err)
		}
	}

	if len(f.evidence.chunks) != 3 {
		t.Fatalf("chunk rows = %d, want 3", len(f.evidence.chunks))
	}
	// The advisory index is stored as sent; nothing reorders on ingest.
	if f.evidence.chunks[0].ChunkIndex != 2 {
		t.Errorf("first stored index = %d, want 2", f.evidence.chunks[0].ChunkIndex)
	}
}

func TestIngestVisibilityTally(t *testing.T) {
	f := newProctorFixture()
	testID := uuid.New()
	ctx := context.Background()

	// Two hide/show cycles with a lying client counter.
	seq := []struct {
		state       model.VisibilityState
		clientCount int
		wantServer  int64
	}{
		{model.VisibilityHidden, 1, 1},
		{model.VisibilityVisible, 1, 1},
		{model.VisibilityHidden, 99, 2},
		{model.VisibilityVisible, 99, 2},
	}

	for i, step := range seq {
		e, err := f.svc.IngestVisibilityEvent(ctx, testID, "s@example.com", step.state, step.clientCount, time.Time{})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if e.SwitchCount != step.wantServer {
			t.Errorf("step %d: server count = %d, want %d", i, e.SwitchCount, step.wantServer)
		}
		if e.ClientSwitchCount != step.clientCount {
			t.Errorf("step %d: client count = %d, want %d", i, e.ClientSwitchCount, step.clientCount)
		}
	}

	report, err := f.svc.GetVisibilityReport(ctx, testID, "s@example.com")
	if err != nil {
		t.Fatalf("GetVisibilityReport: %v", err)
	}
	if report.SwitchCount != 2 {
		t.Errorf("report switch count = %d, want 2", report.SwitchCount)
	}
	if len(report.Events) != 4 {
		t.Errorf("report events = %d, want 4", len(report.Events))
	}
}

func TestGetExamMediaEmpty(t *testing.T) {
	f := newProctorFixture()

	media, err := f.svc.GetExamMedia(context.Background(), uuid.New(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetExamMedia: %v", err)
	}
	if media.Snapshots == nil || media.VideoURLs == nil {
		t.Error("empty timeline must be non-nil slices")
	}
	if len(media.Snapshots) != 0 || len(media.VideoURLs) != 0 {
		t.Errorf("expected empty timeline, got %d/%d", len(media.Snapshots), len(media.VideoURLs))
	}
}

func TestGetExamMedia(t *testing.T) {
	f := newProctorFixture()
	testID := uuid.New()
	ctx := context.Background()

	if _, err := f.svc.IngestSnapshot(ctx, testID, "s@example.com", pngBytes, time.Now()); err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if _, err := f.svc.IngestVideoChunk(ctx, testID, "s@example.com", 0, []byte("webm"), "video/webm", time.Now()); err != nil {
		t.Fatalf("IngestVideoChunk: %v", err)
	}

	media, err := f.svc.GetExamMedia(ctx, testID, "s@example.com")
	if err != nil {
		t.Fatalf("GetExamMedia: %v", err)
	}
	if len(media.Snapshots) != 1 || len(media.VideoURLs) != 1 {
		t.Fatalf("timeline = %d snapshots, %d videos; want 1/1", len(media.Snapshots), len(media.VideoURLs))
	}
	if !strings.HasPrefix(media.VideoURLs[0], "http://blobs.test/media/uploads/") {
		t.Errorf("video URL = %q", media.VideoURLs[0])
	}
}
