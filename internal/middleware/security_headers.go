package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets the response headers a JSON API holding patient data
// should always send.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "no-referrer")

		// Responses may contain client records.
		h.Set("Cache-Control", "no-store")

		c.Next()
	}
}
