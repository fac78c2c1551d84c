package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/internal/service"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/response"
)

type studentRegistry interface {
	Create(ctx context.Context, req service.CreateStudentRequest) (models.Student, error)
	List(ctx context.Context, query models.StudentQuery) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (models.Student, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest) (models.Student, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (int, error)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context, kinds ...models.BackendKind)
}

// BulkDeleteRequest is the bulk-delete payload.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// StudentHandler exposes the registration and roster endpoints.
type StudentHandler struct {
	registry studentRegistry
	stats    statsInvalidator
}

// NewStudentHandler constructs StudentHandler. stats may be nil when the
// stats cache is disabled.
func NewStudentHandler(registry studentRegistry, stats statsInvalidator) *StudentHandler {
	return &StudentHandler{registry: registry, stats: stats}
}

// Create godoc
// @Summary Submit a registration
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.registry.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateStats(c)
	response.Created(c, student)
}

// List godoc
// @Summary List registrations
// @Tags Students
// @Produce json
// @Param search query string false "Search name, roll, zprn or email"
// @Param branch query string false "Filter by branch"
// @Param year query string false "Filter by year"
// @Param division query string false "Filter by division"
// @Param sort query string false "Sort field: name, rollNumber, submittedAt"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var query models.StudentQuery
	query.Search = strings.TrimSpace(c.Query("search"))
	query.Branch = c.Query("branch")
	query.Year = c.Query("year")
	query.Division = c.Query("division")
	query.SortBy = c.Query("sort")
	query.SortOrder = c.Query("order")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}

	students, pagination, err := h.registry.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get one registration
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Edit a registration
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.registry.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateStats(c)
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a registration
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateStats(c)
	response.NoContent(c)
}

// BulkDelete godoc
// @Summary Delete multiple registrations
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body BulkDeleteRequest true "IDs to delete"
// @Success 200 {object} response.Envelope
// @Router /students/bulk-delete [post]
func (h *StudentHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.registry.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		// Partial deletions may have landed; report them alongside the error.
		h.invalidateStats(c)
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"deletedCount": count},
		})
		return
	}
	h.invalidateStats(c)
	response.JSON(c, http.StatusOK, gin.H{"deletedCount": count}, nil)
}

func (h *StudentHandler) invalidateStats(c *gin.Context) {
	if h.stats != nil {
		h.stats.Invalidate(c.Request.Context())
	}
}
