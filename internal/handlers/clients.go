package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/config"
	"health-registry-server/internal/models"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

// ClientHandler handles client records and enrollment into programs.
type ClientHandler struct {
	clients     *services.ClientService
	enrollments *services.EnrollmentService
	pagination  config.PaginationConfig
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clients *services.ClientService, enrollments *services.EnrollmentService, pagination config.PaginationConfig) *ClientHandler {
	return &ClientHandler{clients: clients, enrollments: enrollments, pagination: pagination}
}

// EnrollRequest is the body of POST /clients/{id}/enroll.
type EnrollRequest struct {
	ProgramID string `json:"program_id" validate:"required"`
}

var genders = []string{string(models.GenderMale), string(models.GenderFemale), string(models.GenderOther)}

// ListClients supports name, gender, registration_date, program, min_age,
// max_age, search and ordering.
func (h *ClientHandler) ListClients(c *gin.Context) {
	q := newQueryParams(c)
	filter := services.ClientFilter{
		Name:             q.str("name"),
		Gender:           q.choice("gender", genders...),
		RegistrationDate: q.date("registration_date"),
		ProgramID:        q.uuid("program"),
		MinAge:           q.nonNegativeInt("min_age"),
		MaxAge:           q.nonNegativeInt("max_age"),
		Search:           q.str("search"),
		Ordering:         q.str("ordering"),
	}
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.clients.List(c.Request.Context(), filter, page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Clients fetched successfully", result)
}

// SearchClients matches the query against names, email and phone number.
func (h *ClientHandler) SearchClients(c *gin.Context) {
	q := newQueryParams(c)
	query := q.str("query")
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.clients.Search(c.Request.Context(), query, page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Clients fetched successfully", result)
}

// CreateClient registers a new client.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req services.ClientInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Client created successfully", client.ToResponse())
}

// GetClient returns a client with its program enrollments.
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Client fetched successfully", client.ToResponse())
}

// UpdateClient handles PUT (full) updates.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	h.update(c, false)
}

// PatchClient handles PATCH (partial) updates.
func (h *ClientHandler) PatchClient(c *gin.Context) {
	h.update(c, true)
}

func (h *ClientHandler) update(c *gin.Context, partial bool) {
	var req services.ClientInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	client, err := h.clients.Update(c.Request.Context(), c.Param("id"), req, partial)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Client updated successfully", client.ToResponse())
}

// DeleteClient removes a client and its enrollments.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.NoContent(c)
}

// EnrollClient enrolls the client in a program. Any rejection that names a
// field is a 400; an unknown client stays a 404.
func (h *ClientHandler) EnrollClient(c *gin.Context) {
	var req EnrollRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), req.ProgramID)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Fields.HasErrors() {
			utils.ErrorWithFields(c, http.StatusBadRequest, appErr.Message, appErr.Fields)
			return
		}
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Client enrolled successfully", enrollment.ToResponse())
}
