package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"health-registry-server/internal/utils"
)

// Recovery turns a panic into the standard 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				utils.RequestLogger(c).Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				if !c.Writer.Written() {
					utils.Error(c, http.StatusInternalServerError, "An unexpected error occurred.")
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
