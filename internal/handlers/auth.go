package handlers

import (
	"github.com/gin-gonic/gin"

	"health-registry-server/internal/config"
	"health-registry-server/internal/middleware"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token when no cookie is sent.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// LogoutRequest optionally names the refresh token to revoke.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// setRefreshCookie stores the refresh token as an HTTP-only cookie.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(
		refreshCookie,
		value,
		maxAge,
		"/",
		"",
		h.cfg.Environment != "development",
		true,
	)
}

func (h *AuthHandler) issued(c *gin.Context, result *services.AuthResult) {
	h.setRefreshCookie(c, result.RefreshToken, h.cfg.JWTRefreshExpirationHours*60*60)
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.issued(c, result)
	utils.Created(c, "User registered successfully", result)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.issued(c, result)
	utils.Success(c, "Login successful", result)
}

// Refresh rotates the refresh token. The cookie wins over the request body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(refreshCookie)
	if err != nil || refresh == "" {
		var req RefreshRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refresh = req.Refresh
	}

	result, err := h.auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.issued(c, result)
	utils.Success(c, "Token refreshed successfully", result)
}

// Logout deletes the token the request was made with.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.CurrentToken(c)
	if !ok {
		utils.Unauthorized(c, "Authentication credentials were not provided.")
		return
	}

	refresh, _ := c.Cookie(refreshCookie)
	if refresh == "" && c.Request.ContentLength > 0 {
		var req LogoutRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refresh = req.Refresh
	}

	if err := h.auth.Logout(c.Request.Context(), token.Key, refresh); err != nil {
		utils.HandleError(c, err)
		return
	}
	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Successfully logged out.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Authentication credentials were not provided.")
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Authentication credentials were not provided.")
		return
	}

	var req services.ProfileInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	updated, err := h.auth.UpdateProfile(c.Request.Context(), user, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", updated.Sanitize())
}

// ChangePassword replaces the password and returns fresh credentials.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Authentication credentials were not provided.")
		return
	}

	var req services.ChangePasswordInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.ChangePassword(c.Request.Context(), user, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.issued(c, result)
	utils.Success(c, "Password changed successfully", result)
}
