package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dline-edu/prova-backend/internal/middleware"
	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/response"
	"github.com/dline-edu/prova-backend/internal/service"
	"github.com/dline-edu/prova-backend/internal/validator"
)

// ProctorHandler receives proctoring evidence from the student client
// during an exam: webcam snapshots, recorded video chunks, and tab
// visibility events.
type ProctorHandler struct {
	proctorService *service.ProctorService
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(proctorService *service.ProctorService) *ProctorHandler {
	return &ProctorHandler{proctorService: proctorService}
}

// IngestSnapshot godoc
// POST /api/v1/student/proctor/snapshot
// Body carries the image as a base64 string so the client can fire it
// from a visibilitychange handler without building a multipart form.
func (h *ProctorHandler) IngestSnapshot(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.IngestSnapshotRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	image, err := base64.StdEncoding.DecodeString(stripDataURL(req.Snapshot))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	snap, err := h.proctorService.IngestSnapshot(c.Request.Context(), req.TestID, claims.Email, image, unixMillisOrZero(req.Timestamp))
	if err != nil {
		failIngest(c, err)
		return
	}

	response.Success(c, http.StatusCreated, snap)
}

// IngestVideoChunk godoc
// POST /api/v1/student/proctor/video
// Multipart form: "chunk" file, "test_id", "chunk_index", optional
// "timestamp" (unix milliseconds).
func (h *ProctorHandler) IngestVideoChunk(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := parseUUIDForm(c, "test_id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	chunkIndex, err := strconv.Atoi(c.PostForm("chunk_index"))
	if err != nil || chunkIndex < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	file, header, err := c.Request.FormFile("chunk")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	video, err := io.ReadAll(file)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	contentType := header.Header.Get("Content-Type")

	chunk, err := h.proctorService.IngestVideoChunk(
		c.Request.Context(), testID, claims.Email, chunkIndex, video, contentType,
		timestampOrNow(c.PostForm("timestamp")),
	)
	if err != nil {
		failIngest(c, err)
		return
	}

	response.Success(c, http.StatusCreated, chunk)
}

// IngestVisibility godoc
// POST /api/v1/student/proctor/visibility
func (h *ProctorHandler) IngestVisibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.IngestVisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	event, err := h.proctorService.IngestVisibilityEvent(
		c.Request.Context(), req.TestID, claims.Email,
		model.VisibilityState(req.Event), req.SwitchCount,
		unixMillisOrZero(req.Timestamp),
	)
	if err != nil {
		failIngest(c, err)
		return
	}

	response.Success(c, http.StatusCreated, event)
}

// failIngest maps evidence pipeline errors onto the response envelope.
func failIngest(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrChunkTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrChunkTooLarge)
	case errors.Is(err, service.ErrUploadFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrUploadFailed)
	case errors.Is(err, service.ErrPersistFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrPersistenceError)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// stripDataURL drops a leading "data:image/...;base64," prefix if the
// client sent a canvas data URL instead of bare base64.
func stripDataURL(s string) string {
	for i := 0; i < len(s) && i < 64; i++ {
		if s[i] == ',' {
			return s[i+1:]
		}
		if !isDataURLByte(s[i]) {
			break
		}
	}
	return s
}

func isDataURLByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == ':' || b == ';' || b == '/' || b == '-' || b == '.' || b == '+' || b == '=':
		return true
	}
	return false
}

func parseUUIDForm(c *gin.Context, field string) (uuid.UUID, error) {
	return uuid.Parse(c.PostForm(field))
}

// unixMillisOrZero converts a unix milliseconds value to time.Time,
// returning the zero time when the client omitted it.
func unixMillisOrZero(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// timestampOrNow parses a unix milliseconds form value, falling back to
// server time when absent or malformed.
func timestampOrNow(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
