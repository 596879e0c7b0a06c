package middleware

import (
	"github.com/gin-gonic/gin"

	"health-registry-server/internal/models"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

const (
	userKey   = "user"
	tokenKey  = "authToken"
	userIDKey = "userID"
)

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgInactiveUser     = "User account is disabled."
	msgNotStaff         = "You do not have permission to perform this action."
)

// Authenticate resolves the bearer token on every request. Requests without
// credentials continue anonymously; a presented token that does not resolve
// is rejected with 401.
func Authenticate(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			utils.HandleError(c, err)
			c.Abort()
			return
		}
		if user != nil {
			c.Set(userKey, user)
			c.Set(tokenKey, token)
			c.Set(userIDKey, user.ID)
		}
		c.Next()
	}
}

// RequireAuthenticated rejects anonymous requests and disabled accounts.
// It must run after Authenticate.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Unauthorized(c, msgNotAuthenticated)
			c.Abort()
			return
		}
		if !user.IsActive {
			utils.Forbidden(c, msgInactiveUser)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff limits a route to staff accounts.
// It should be used *after* RequireAuthenticated.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsStaff {
			utils.Forbidden(c, msgNotStaff)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentToken returns the token the request authenticated with.
func CurrentToken(c *gin.Context) (*models.AuthToken, bool) {
	v, exists := c.Get(tokenKey)
	if !exists {
		return nil, false
	}
	token, ok := v.(*models.AuthToken)
	return token, ok && token != nil
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}
