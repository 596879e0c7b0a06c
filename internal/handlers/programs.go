package handlers

import (
	"github.com/gin-gonic/gin"

	"health-registry-server/internal/config"
	"health-registry-server/internal/models"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

// ProgramHandler handles health program requests.
type ProgramHandler struct {
	programs   *services.ProgramService
	pagination config.PaginationConfig
}

// NewProgramHandler creates a new ProgramHandler.
func NewProgramHandler(programs *services.ProgramService, pagination config.PaginationConfig) *ProgramHandler {
	return &ProgramHandler{programs: programs, pagination: pagination}
}

// ListPrograms supports status, start_date_after, start_date_before, search
// and ordering.
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	q := newQueryParams(c)
	filter := services.ProgramFilter{
		Status:          q.choice("status", statusStrings(models.ProgramStatuses)...),
		StartDateAfter:  q.date("start_date_after"),
		StartDateBefore: q.date("start_date_before"),
		Search:          q.str("search"),
		Ordering:        q.str("ordering"),
	}
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.programs.List(c.Request.Context(), filter, page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Programs fetched successfully", result)
}

// CreateProgram handles creating a new program.
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req services.ProgramInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	program, err := h.programs.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Program created successfully", program)
}

// GetProgram handles fetching a program by ID.
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	program, err := h.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Program fetched successfully", program)
}

// UpdateProgram handles PUT (full) updates.
func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	h.update(c, false)
}

// PatchProgram handles PATCH (partial) updates.
func (h *ProgramHandler) PatchProgram(c *gin.Context) {
	h.update(c, true)
}

func (h *ProgramHandler) update(c *gin.Context, partial bool) {
	var req services.ProgramInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	program, err := h.programs.Update(c.Request.Context(), c.Param("id"), req, partial)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Program updated successfully", program)
}

// DeleteProgram removes a program and its enrollments.
func (h *ProgramHandler) DeleteProgram(c *gin.Context) {
	if err := h.programs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.NoContent(c)
}

// ListProgramClients lists the clients enrolled in a program.
func (h *ProgramHandler) ListProgramClients(c *gin.Context) {
	q := newQueryParams(c)
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.programs.Clients(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Program clients fetched successfully", result)
}
