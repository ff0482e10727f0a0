package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dline-edu/prova-backend/internal/middleware"
	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/response"
	"github.com/dline-edu/prova-backend/internal/service"
	"github.com/dline-edu/prova-backend/internal/validator"
)

// PortalHandler handles the student-facing exam endpoints.
type PortalHandler struct {
	testService    *service.TestService
	scoringService *service.ScoringService
	sessionService *service.SessionService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	testService *service.TestService,
	scoringService *service.ScoringService,
	sessionService *service.SessionService,
) *PortalHandler {
	return &PortalHandler{
		testService:    testService,
		scoringService: scoringService,
		sessionService: sessionService,
	}
}

// ListTests godoc
// GET /api/v1/student/tests?page=&per_page=
func (h *PortalHandler) ListTests(c *gin.Context) {
	page, perPage := parsePagination(c)

	tests, total, err := h.testService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Students only see headline fields, never the question bank.
	summaries := make([]gin.H, 0, len(tests))
	for _, t := range tests {
		summaries = append(summaries, gin.H{
			"id":               t.ID,
			"title":            t.Title,
			"subject":          t.Subject,
			"duration_minutes": t.DurationMinutes,
			"results_declared": t.ResultsDeclared,
			"created_at":       t.CreatedAt,
		})
	}

	response.SuccessWithPagination(c, http.StatusOK, summaries, response.NewPagination(page, perPage, total))
}

// GetPaper godoc
// GET /api/v1/student/tests/:id/paper
// Returns the question paper with answer keys and explanations stripped.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.testService.GetPaper(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// Submit godoc
// POST /api/v1/student/tests/:id/submit
func (h *PortalHandler) Submit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.scoringService.Submit(c.Request.Context(), id, claims.Email, claims.Name, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrEmptyTest):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyTest)
		case errors.Is(err, service.ErrTooManyAnswers):
			response.Fail(c, http.StatusBadRequest, response.ErrAnswerOutOfRange)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, model.SubmitResponse{
		SubmissionID: sub.ID,
		Score:        sub.Score,
		CorrectCount: sub.CorrectCount,
		WrongCount:   sub.WrongCount,
	})
}

// GetResult godoc
// GET /api/v1/student/tests/:id/result
// Full per-question breakdown, gated behind result declaration.
func (h *PortalHandler) GetResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sub, err := h.scoringService.Result(c.Request.Context(), id, claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrSubmissionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrResultsNotDeclared):
			response.Fail(c, http.StatusForbidden, response.ErrResultsNotDeclared)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sub)
}

// StartSession godoc
// POST /api/v1/student/tests/:id/session
// Multipart form with an identity photo under the "photo" field.
func (h *PortalHandler) StartSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(file)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), id, claims.Email, claims.Name, photo, timestampOrNow(c.PostForm("timestamp")))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhotoRequired):
			response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		case errors.Is(err, service.ErrUploadFailed):
			response.Fail(c, http.StatusBadGateway, response.ErrUploadFailed)
		case errors.Is(err, service.ErrPersistFailed):
			response.Fail(c, http.StatusInternalServerError, response.ErrPersistenceError)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// AbandonSession godoc
// POST /api/v1/student/tests/:id/session/abandon
func (h *PortalHandler) AbandonSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.Abandon(c.Request.Context(), id, claims.Email); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusAbandoned})
}
