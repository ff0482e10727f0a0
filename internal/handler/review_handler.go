package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dline-edu/prova-backend/internal/response"
	"github.com/dline-edu/prova-backend/internal/service"
	"github.com/dline-edu/prova-backend/internal/validator"
)

// ReviewHandler serves the admin proctoring review surface: the media
// timeline and visibility report for one (test, student) pair, the
// session log, and login session resets.
type ReviewHandler struct {
	proctorService *service.ProctorService
	sessionService *service.SessionService
	authService    *service.AuthService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(
	proctorService *service.ProctorService,
	sessionService *service.SessionService,
	authService *service.AuthService,
) *ReviewHandler {
	return &ReviewHandler{
		proctorService: proctorService,
		sessionService: sessionService,
		authService:    authService,
	}
}

// GetExamMedia godoc
// GET /api/v1/admin/tests/:id/media/:email
// Timestamp-ordered snapshots plus the video chunk playlist.
func (h *ReviewHandler) GetExamMedia(c *gin.Context) {
	testID, email, ok := pairParams(c)
	if !ok {
		return
	}

	media, err := h.proctorService.GetExamMedia(c.Request.Context(), testID, email)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, media)
}

// GetVisibilityReport godoc
// GET /api/v1/admin/tests/:id/visibility/:email
func (h *ReviewHandler) GetVisibilityReport(c *gin.Context) {
	testID, email, ok := pairParams(c)
	if !ok {
		return
	}

	report, err := h.proctorService.GetVisibilityReport(c.Request.Context(), testID, email)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// GetSession godoc
// GET /api/v1/admin/tests/:id/sessions/:email
// The latest session for a pair, including the identity photo reference.
func (h *ReviewHandler) GetSession(c *gin.Context) {
	testID, email, ok := pairParams(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetLatest(c.Request.Context(), testID, email)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if session == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// ListSessions godoc
// GET /api/v1/admin/tests/:id/sessions
func (h *ReviewHandler) ListSessions(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.sessionService.ListByTest(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sessions)
}

// ResetLoginSession godoc
// POST /api/v1/admin/users/reset-session
// Frees a student's single-device login so they can sign in elsewhere.
func (h *ReviewHandler) ResetLoginSession(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.ResetLoginSession(c.Request.Context(), req.Email); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"email": req.Email})
}

// pairParams extracts the (test, student) pair from the route. It writes
// the error response itself so callers can just return on !ok.
func pairParams(c *gin.Context) (uuid.UUID, string, bool) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, "", false
	}
	email := c.Param("email")
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return uuid.Nil, "", false
	}
	return testID, email, true
}
