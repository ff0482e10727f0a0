package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dline-edu/prova-backend/internal/model"
	"github.com/dline-edu/prova-backend/internal/response"
	"github.com/dline-edu/prova-backend/internal/service"
	"github.com/dline-edu/prova-backend/internal/validator"
)

// TestHandler handles admin test management endpoints.
type TestHandler struct {
	testService    *service.TestService
	scoringService *service.ScoringService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService, scoringService *service.ScoringService) *TestHandler {
	return &TestHandler{testService: testService, scoringService: scoringService}
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrAnswerKeyBounds) {
			response.Fail(c, http.StatusBadRequest, response.ErrCorrectAnswerBounds)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, test)
}

// GetTest godoc
// GET /api/v1/admin/tests/:id
// Returns the full test including answer key and explanations.
func (h *TestHandler) GetTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, test)
}

// ListTests godoc
// GET /api/v1/admin/tests?page=&per_page=
func (h *TestHandler) ListTests(c *gin.Context) {
	page, perPage := parsePagination(c)

	tests, total, err := h.testService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, tests, response.NewPagination(page, perPage, total))
}

// DeclareResults godoc
// POST /api/v1/admin/tests/:id/declare-results
func (h *TestHandler) DeclareResults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Declared *bool `json:"declared" binding:"required"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.testService.DeclareResults(c.Request.Context(), id, *req.Declared); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"declared": *req.Declared})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ListSubmissions godoc
// GET /api/v1/admin/tests/:id/submissions?page=&per_page=
func (h *TestHandler) ListSubmissions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := parsePagination(c)
	subs, total, err := h.scoringService.ListSubmissions(c.Request.Context(), id, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, subs, response.NewPagination(page, perPage, total))
}

// parsePagination extracts page/per_page query params with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

