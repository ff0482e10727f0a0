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

// Sentinel errors for evidence ingestion.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrChunkTooLarge       = errors.New("video chunk too large")
	// ErrUploadFailed means blob storage rejected the payload; nothing was
	// recorded.
	ErrUploadFailed = errors.New("blob upload failed")
	// ErrPersistFailed means the blob upload succeeded but the metadata
	// write did not; the blob is now an orphan, journalled for the
	// reconciler. Surfaced distinctly from ErrUploadFailed so operators
	// can tell the two apart.
	ErrPersistFailed = errors.New("metadata write failed after upload")
	// ErrSessionClosed rejects evidence for a pair whose latest exam
	// session has been submitted or abandoned.
	ErrSessionClosed = errors.New("exam session is closed")
)

// evidenceStore is the append-only evidence log.
type evidenceStore interface {
	InsertSnapshot(ctx context.Context, s *model.Snapshot) error
	InsertVideoChunk(ctx context.Context, c *model.VideoChunk) error
	InsertVisibilityEvent(ctx context.Context, e *model.VisibilityEvent) error
	ListSnapshots(ctx context.Context, testID uuid.UUID, email string) ([]model.Snapshot, error)
	ListVideoChunks(ctx context.Context, testID uuid.UUID, email string) ([]model.VideoChunk, error)
	ListVisibilityEvents(ctx context.Context, testID uuid.UUID, email string) ([]model.VisibilityEvent, error)
}

// sessionReader looks up the latest exam session for a pair.
type sessionReader interface {
	GetLatestByPair(ctx context.Context, testID uuid.UUID, email string) (*model.ExamSession, error)
}

// ProctorService ingests proctoring evidence and assembles the review
// timeline. Every media ingestion follows the same two-phase protocol:
// upload the blob first, write the metadata row second. A metadata row
// must never reference a missing blob; an orphaned blob is the accepted
// failure mode and is journalled for out-of-band cleanup.
//
// Ingestions are independent: concurrent calls for the same pair share no
// mutable state and may persist in any order. Readers sort by timestamp.
type ProctorService struct {
	evidence evidenceStore
	sessions sessionReader
	blobs    storage.BlobStore
	journal  storage.OrphanJournal
	tally    SwitchTally
	cfg      *config.Config
	log      zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	evidence evidenceStore,
	sessions sessionReader,
	blobs storage.BlobStore,
	journal storage.OrphanJournal,
	tally SwitchTally,
	cfg *config.Config,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		evidence: evidence,
		sessions: sessions,
		blobs:    blobs,
		journal:  journal,
		tally:    tally,
		cfg:      cfg,
		log:      log.With().Str("component", "proctor_service").Logger(),
	}
}

// IngestSnapshot uploads a webcam still and appends its record.
func (s *ProctorService) IngestSnapshot(ctx context.Context, testID uuid.UUID, email string, image []byte, capturedAt time.Time) (*model.Snapshot, error) {
	if err := s.ensureIngestAllowed(ctx, testID, email); err != nil {
		return nil, err
	}
	if int64(len(image)) > s.cfg.MaxSnapshotBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(image), s.cfg.MaxSnapshotBytes)
	}

	contentType := http.DetectContentType(image)
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}

	object := storage.SnapshotObject(email, ext)
	url, err := s.blobs.Put(ctx, object, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	snap := &model.Snapshot{
		TestID:     testID,
		UserEmail:  email,
		ImageURL:   url,
		CapturedAt: orNow(capturedAt),
	}
	if err := s.evidence.InsertSnapshot(ctx, snap); err != nil {
		s.journalOrphan(ctx, object)
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.log.Debug().
		Str("test_id", testID.String()).
		Str("email", email).
		Str("url", url).
		Msg("Snapshot ingested")

	return snap, nil
}

// IngestVideoChunk uploads one recording chunk and appends its record.
// The chunk index is stored as advisory ordering metadata; out-of-order
// and concurrent chunks are expected.
func (s *ProctorService) IngestVideoChunk(ctx context.Context, testID uuid.UUID, email string, chunkIndex int, video []byte, contentType string, capturedAt time.Time) (*model.VideoChunk, error) {
	if err := s.ensureIngestAllowed(ctx, testID, email); err != nil {
		return nil, err
	}
	// The chunk is buffered in memory before streaming to blob storage,
	// so the ceiling bounds the ingest path's memory use.
	if int64(len(video)) > s.cfg.MaxChunkBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrChunkTooLarge, len(video), s.cfg.MaxChunkBytes)
	}
	if contentType == "" {
		contentType = "video/webm"
	}

	object := storage.VideoChunkObject(email, chunkIndex)
	url, err := s.blobs.Put(ctx, object, video, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	chunk := &model.VideoChunk{
		TestID:     testID,
		UserEmail:  email,
		ChunkIndex: chunkIndex,
		VideoURL:   url,
		CapturedAt: orNow(capturedAt),
	}
	if err := s.evidence.InsertVideoChunk(ctx, chunk); err != nil {
		s.journalOrphan(ctx, object)
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.log.Debug().
		Str("test_id", testID.String()).
		Str("email", email).
		Int("chunk_index", chunkIndex).
		Msg("Video chunk ingested")

	return chunk, nil
}

// IngestVisibilityEvent appends a tab visibility change. No blob is
// involved. The client's running tally is stored verbatim; the switch
// count used for review is recomputed here from the event stream.
func (s *ProctorService) IngestVisibilityEvent(ctx context.Context, testID uuid.UUID, email string, event model.VisibilityState, clientCount int, capturedAt time.Time) (*model.VisibilityEvent, error) {
	if err := s.ensureIngestAllowed(ctx, testID, email); err != nil {
		return nil, err
	}

	var serverCount int64
	var err error
	if event == model.VisibilityHidden {
		serverCount, err = s.tally.Bump(ctx, testID, email)
	} else {
		serverCount, err = s.tally.Current(ctx, testID, email)
	}
	if err != nil {
		return nil, fmt.Errorf("switch tally: %w", err)
	}

	e := &model.VisibilityEvent{
		TestID:            testID,
		UserEmail:         email,
		Event:             event,
		ClientSwitchCount: clientCount,
		SwitchCount:       serverCount,
		CapturedAt:        orNow(capturedAt),
	}
	if err := s.evidence.InsertVisibilityEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return e, nil
}

// GetExamMedia assembles the review timeline for a pair. Both sequences
// come back sorted ascending by capture time; a pair without evidence
// yields empty sequences, not an error.
func (s *ProctorService) GetExamMedia(ctx context.Context, testID uuid.UUID, email string) (*model.ExamMedia, error) {
	snaps, err := s.evidence.ListSnapshots(ctx, testID, email)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	chunks, err := s.evidence.ListVideoChunks(ctx, testID, email)
	if err != nil {
		return nil, fmt.Errorf("list video chunks: %w", err)
	}

	media := &model.ExamMedia{
		Snapshots: make([]model.Snapshot, 0, len(snaps)),
		VideoURLs: make([]string, 0, len(chunks)),
	}
	media.Snapshots = append(media.Snapshots, snaps...)
	for _, c := range chunks {
		media.VideoURLs = append(media.VideoURLs, c.VideoURL)
	}
	return media, nil
}

// GetVisibilityReport assembles the visibility timeline and the highest
// server-side switch count seen for a pair.
func (s *ProctorService) GetVisibilityReport(ctx context.Context, testID uuid.UUID, email string) (*model.VisibilityReport, error) {
	events, err := s.evidence.ListVisibilityEvents(ctx, testID, email)
	if err != nil {
		return nil, fmt.Errorf("list visibility events: %w", err)
	}

	report := &model.VisibilityReport{
		Events: make([]model.VisibilityEvent, 0, len(events)),
	}
	report.Events = append(report.Events, events...)
	for _, e := range events {
		if e.SwitchCount > report.SwitchCount {
			report.SwitchCount = e.SwitchCount
		}
	}
	return report, nil
}

// ensureIngestAllowed rejects evidence once the latest session for the
// pair is closed. A pair with no session record at all is still accepted:
// the log must stay usable for clients that never managed to open one.
func (s *ProctorService) ensureIngestAllowed(ctx context.Context, testID uuid.UUID, email string) error {
	sess, err := s.sessions.GetLatestByPair(ctx, testID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("check session: %w", err)
	}
	if sess.Status != model.SessionStatusOpen {
		return ErrSessionClosed
	}
	return nil
}

func (s *ProctorService) journalOrphan(ctx context.Context, object string) {
	if err := s.journal.Record(ctx, object); err != nil {
		s.log.Error().Err(err).Str("object", object).Msg("Failed to journal orphaned blob")
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
