package handlers

import (
	"github.com/gin-gonic/gin"

	"health-registry-server/internal/config"
	"health-registry-server/internal/middleware"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

// UserHandler handles staff-only account administration.
type UserHandler struct {
	users      *services.UserService
	pagination config.PaginationConfig
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService, pagination config.PaginationConfig) *UserHandler {
	return &UserHandler{users: users, pagination: pagination}
}

// SetActiveRequest represents the request body for enabling or disabling an account.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GetUsers handles fetching all users.
func (h *UserHandler) GetUsers(c *gin.Context) {
	q := newQueryParams(c)
	page := q.pagination(h.pagination)
	if !q.ok() {
		return
	}

	result, err := h.users.List(c.Request.Context(), page)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Users fetched successfully", result)
}

// SetUserActive enables or disables an account. Staff cannot disable themselves.
func (h *UserHandler) SetUserActive(c *gin.Context) {
	var req SetActiveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	id := c.Param("id")
	if currentID, ok := middleware.GetUserIDFromContext(c); ok && currentID == id && !*req.IsActive {
		utils.BadRequest(c, "You cannot deactivate your own account.")
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}
