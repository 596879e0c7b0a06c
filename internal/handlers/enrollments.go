package handlers

import (
	"github.com/gin-gonic/gin"

	"health-registry-server/internal/config"
	"health-registry-server/internal/models"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

// EnrollmentHandler exposes enrollments directly.
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
	pagination  config.PaginationConfig
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollments *services.EnrollmentService, pagination config.PaginationConfig) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, pagination: pagination}
}

// ListEnrollments supports client, program and status filters.
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	q := newQueryParams(c)
	filter := services.EnrollmentFilter{
		ClientID:  q.uuid("client"),
		ProgramID: q.uuid("program"),
		Status:    q.choice("status", statusStrings(models.EnrollmentStatuses)...),
	}
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.enrollments.List(c.Request.Context(), filter, page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	rendered := make([]models.EnrollmentResponse, len(result.Results))
	for i := range result.Results {
		rendered[i] = result.Results[i].ToResponse()
	}
	utils.Success(c, "Enrollments fetched successfully", services.Page[models.EnrollmentResponse]{
		Count:    result.Count,
		Page:     result.Page,
		PageSize: result.PageSize,
		Results:  rendered,
	})
}

// GetEnrollment handles fetching an enrollment by ID.
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Enrollment fetched successfully", enrollment.ToResponse())
}

// PatchEnrollment changes the status or notes of an enrollment.
func (h *EnrollmentHandler) PatchEnrollment(c *gin.Context) {
	var req services.EnrollmentUpdate
	if !utils.BindAndValidate(c, &req) {
		return
	}

	enrollment, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Enrollment updated successfully", enrollment.ToResponse())
}
